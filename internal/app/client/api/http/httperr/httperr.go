// Package httperr maps domain errors onto huma status errors.
package httperr

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"notekeeper/internal/domain/history"
	"notekeeper/internal/domain/queue"
	"notekeeper/internal/domain/record"
	"notekeeper/internal/domain/sync"
)

func From(err error) error {
	if err == nil {
		return nil
	}

	var ce *sync.ConflictError
	switch {
	case errors.Is(err, sync.ErrSyncInProgress):
		return huma.Error409Conflict(err.Error())
	case errors.As(err, &ce):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, sync.ErrOffline), errors.Is(err, sync.ErrNetwork):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.Is(err, sync.ErrRejected):
		return huma.Error502BadGateway(err.Error())
	case errors.Is(err, record.ErrNotFound),
		errors.Is(err, sync.ErrConflictNotFound),
		errors.Is(err, history.ErrVersionNotFound),
		errors.Is(err, queue.ErrEmpty):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, record.ErrInvalidPayload),
		errors.Is(err, record.ErrInvalidRecord),
		errors.Is(err, record.ErrUnknownTable),
		errors.Is(err, sync.ErrUnknownStrategy),
		errors.Is(err, sync.ErrMergePayloadRequired),
		errors.Is(err, sync.ErrInvalidInterval),
		errors.Is(err, history.ErrEmptyNoteID):
		return huma.Error422UnprocessableEntity(err.Error())
	}
	return huma.Error500InternalServerError("internal error", err)
}
