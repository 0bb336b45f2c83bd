package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"notekeeper/internal/domain/record"
)

// Operation is the mutation an offline queue item replays against the remote.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Item is one local mutation not yet confirmed by the server.
type Item struct {
	Seq        int64           `json:"seq"`
	Operation  Operation       `json:"operation"`
	Table      record.Table    `json:"table"`
	RecordID   string          `json:"record_id"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
	RetryCount int             `json:"retry_count"`
	LastError  *string         `json:"last_error,omitempty"`
}

// DeletePayload is the schema of every delete item. ServerID is empty when the
// record never reached the server.
type DeletePayload struct {
	ServerID string `json:"server_id"`
}

type schemaKey struct {
	table record.Table
	op    Operation
}

// schemas holds one validator per (table, operation) pair.
var schemas = map[schemaKey]func(json.RawMessage) error{}

func init() {
	for _, t := range record.Tables {
		table := t
		full := func(raw json.RawMessage) error { return record.ValidatePayload(table, raw) }
		schemas[schemaKey{table, OpCreate}] = full
		schemas[schemaKey{table, OpUpdate}] = full
		schemas[schemaKey{table, OpDelete}] = validateDelete
	}
}

func validateDelete(raw json.RawMessage) error {
	var p DeletePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("%w: delete payload: %v", ErrInvalidItem, err)
	}
	return nil
}

// NewItem builds a queue item and validates its payload against the schema of
// its (table, operation) pair.
func NewItem(op Operation, table record.Table, recordID string, payload json.RawMessage) (*Item, error) {
	item := &Item{
		Operation: op,
		Table:     table,
		RecordID:  recordID,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// NewDeleteItem is a shortcut for the delete variant.
func NewDeleteItem(table record.Table, recordID string, serverID *string) (*Item, error) {
	var p DeletePayload
	if serverID != nil {
		p.ServerID = *serverID
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal delete payload: %w", err)
	}
	return NewItem(OpDelete, table, recordID, raw)
}

func (i *Item) Validate() error {
	if i.RecordID == "" {
		return fmt.Errorf("%w: empty record id", ErrInvalidItem)
	}
	validate, ok := schemas[schemaKey{i.Table, i.Operation}]
	if !ok {
		return fmt.Errorf("%w: no schema for %s/%s", ErrInvalidItem, i.Table, i.Operation)
	}
	return validate(i.Payload)
}

// Delete decodes the payload of a delete item.
func (i *Item) Delete() (DeletePayload, error) {
	var p DeletePayload
	if i.Operation != OpDelete {
		return p, fmt.Errorf("%w: item %d is %s, not delete", ErrInvalidItem, i.Seq, i.Operation)
	}
	if err := json.Unmarshal(i.Payload, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	return p, nil
}
