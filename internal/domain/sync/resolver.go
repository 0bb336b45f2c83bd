package sync

import (
	"fmt"

	"notekeeper/internal/domain/record"
)

// Plan is what applying a resolution means for the local store and the remote.
type Plan struct {
	// Record is the record to persist. It is nil when Delete is set.
	Record *record.Record
	// Push sends Record to the remote before it is persisted as synced.
	// A nil ServerID means the server no longer has the record and it is recreated.
	Push bool
	// BaseVersion is the remote version the push is made against.
	BaseVersion int64
	// Delete removes the local copy: the remote deleted it and the user agreed.
	Delete bool
}

// Resolve maps a conflict and the user's decision to a Plan. It has no side effects.
func Resolve(c *Conflict, res Resolution) (*Plan, error) {
	if c == nil || c.Local == nil {
		return nil, ErrConflictNotFound
	}
	remote := c.Remote

	switch res.Strategy {
	case KeepLocal:
		rec := c.Local.Clone()
		rebase(rec, remote)
		return &Plan{Record: rec, Push: true, BaseVersion: remote.Version}, nil

	case KeepRemote:
		if remote.Deleted {
			return &Plan{Delete: true}, nil
		}
		rec := c.Local.Clone()
		rec.Payload = append(rec.Payload[:0:0], remote.Payload...)
		rec.MarkSynced(remote.ID, remote.Version)
		return &Plan{Record: rec}, nil

	case Merge:
		if len(res.Merged) == 0 {
			return nil, ErrMergePayloadRequired
		}
		if err := record.ValidatePayload(c.Table, res.Merged); err != nil {
			return nil, fmt.Errorf("merged payload: %w", err)
		}
		rec := c.Local.Clone()
		rec.Payload = append(rec.Payload[:0:0], res.Merged...)
		rebase(rec, remote)
		return &Plan{Record: rec, Push: true, BaseVersion: remote.Version}, nil
	}

	return nil, ErrUnknownStrategy
}

// rebase points rec at the remote copy it is about to overwrite.
func rebase(rec *record.Record, remote RemoteRecord) {
	rec.Status = record.StatusPending
	if remote.Deleted {
		rec.ServerID = nil
		rec.Version = 0
		return
	}
	id := remote.ID
	rec.ServerID = &id
	rec.Version = remote.Version
}
