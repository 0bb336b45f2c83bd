package sync

import (
	"errors"
	"fmt"
)

var (
	ErrSyncInProgress       = errors.New("sync already in progress")
	ErrOffline              = errors.New("remote is unreachable")
	ErrNetwork              = errors.New("network error")
	ErrRejected             = errors.New("rejected by server")
	ErrStorage              = errors.New("local storage error")
	ErrConflictNotFound     = errors.New("conflict not found")
	ErrMetadataNotFound     = errors.New("sync metadata not found")
	ErrUnknownStrategy      = errors.New("unknown resolution strategy")
	ErrMergePayloadRequired = errors.New("merge resolution requires a merged payload")
	ErrInvalidInterval      = errors.New("auto-sync interval must be positive")
)

// ConflictError is returned by the remote when it rejects a write as stale.
// Remote holds the server's current copy when the response carried one.
type ConflictError struct {
	Remote *RemoteRecord
}

func (e *ConflictError) Error() string {
	if e.Remote == nil {
		return "server reported a conflict"
	}
	return fmt.Sprintf("server reported a conflict at version %d", e.Remote.Version)
}
