package sync

import (
	"notekeeper/internal/domain/record"
	"notekeeper/internal/domain/sync"
)

type syncOutput struct {
	Body *sync.Result
}

type statusOutput struct {
	Body statusResponse
}

type statusResponse struct {
	sync.Status
	AutoSync autoResponse `json:"auto_sync"`
}

type autoInput struct {
	Body autoRequest
}

type autoRequest struct {
	Enabled    bool  `json:"enabled" doc:"Turn periodic and reconnect-triggered sync on or off"`
	IntervalMS int64 `json:"interval_ms,omitempty" minimum:"0" doc:"New periodic interval in milliseconds; 0 keeps the current one"`
}

type autoOutput struct {
	Body autoResponse
}

type autoResponse struct {
	Enabled    bool  `json:"enabled"`
	IntervalMS int64 `json:"interval_ms"`
}

type conflictsOutput struct {
	Body []*sync.Conflict
}

type conflictIDInput struct {
	ID string `path:"id" doc:"Conflict id"`
}

type resolveInput struct {
	ID   string `path:"id" doc:"Conflict id"`
	Body sync.Resolution
}

type resolveOutput struct {
	Body resolveResponse
}

type resolveResponse struct {
	Status string         `json:"status"`
	Record *record.Record `json:"record,omitempty"`
}

type failedInput struct {
	Seq int64 `path:"seq" doc:"Sequence number of the failed operation"`
}

type emptyOutput struct{}
