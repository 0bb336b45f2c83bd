package sync

import (
	"context"
	"encoding/json"

	"notekeeper/internal/domain/record"
)

// Remote is the server's REST contract as seen by the sync manager.
//
// Implementations wrap transport failures and 5xx responses in ErrNetwork,
// other rejections in ErrRejected, and return *ConflictError for HTTP 409.
// Delete of an already deleted record is not an error.
type Remote interface {
	Ping(ctx context.Context) error
	Pull(ctx context.Context, table record.Table, since string) (*PullResult, error)
	Create(ctx context.Context, table record.Table, clientID string, payload json.RawMessage) (*RemoteRecord, error)
	Update(ctx context.Context, table record.Table, serverID string, payload json.RawMessage, baseVersion int64) (*RemoteRecord, error)
	Delete(ctx context.Context, table record.Table, serverID string) error
}
