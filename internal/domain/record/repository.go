package record

import "context"

// Repository is the record half of the local store.
type Repository interface {
	GetRecord(ctx context.Context, table Table, id string) (*Record, error)
	GetRecordByServerID(ctx context.Context, table Table, serverID string) (*Record, error)
	// ListRecords returns all records of table, filtered by status when status is non-nil.
	ListRecords(ctx context.Context, table Table, status *Status) ([]*Record, error)
	SaveRecord(ctx context.Context, rec *Record) error
	DeleteRecord(ctx context.Context, table Table, id string) error
	CountRecords(ctx context.Context, table Table) (int, error)
	CountPending(ctx context.Context, table Table) (int, error)
}
