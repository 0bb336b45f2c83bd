package sync

import (
	"time"

	"notekeeper/internal/domain/queue"
)

// Result summarizes one sync pass.
type Result struct {
	Success    bool          `json:"success"`
	Synced     int           `json:"synced"`
	Failed     int           `json:"failed"`
	Conflicts  int           `json:"conflicts"`
	Errors     []string      `json:"errors"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

// Status is what the UI polls to render sync state.
type Status struct {
	State            State         `json:"state"`
	IsRunning        bool          `json:"is_running"`
	LastSync         time.Time     `json:"last_sync"`
	LastResult       *Result       `json:"last_result,omitempty"`
	Conflicts        []*Conflict   `json:"conflicts"`
	FailedOperations []*queue.Item `json:"failed_operations"`
	Tables           []*Metadata   `json:"tables"`
}
