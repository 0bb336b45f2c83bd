package record

import (
	"encoding/json"
	"fmt"
)

// Payload is implemented by every table's payload type.
type Payload interface {
	Note | Person | Todo
	Validate() error
}

// Decode unmarshals and validates a record payload into its concrete type.
func Decode[T Payload](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := v.Validate(); err != nil {
		return v, err
	}
	return v, nil
}

// Encode validates and marshals a payload.
func Encode[T Payload](v T) (json.RawMessage, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return b, nil
}

// ValidatePayload checks raw against the schema of table.
func ValidatePayload(table Table, raw json.RawMessage) error {
	var err error
	switch table {
	case TableNotes:
		_, err = Decode[Note](raw)
	case TablePeople:
		_, err = Decode[Person](raw)
	case TableTodos:
		_, err = Decode[Todo](raw)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return err
}
