package history

import "time"

// Version is an immutable snapshot of a note's content.
type Version struct {
	NoteID      string    `json:"note_id"`
	Number      int       `json:"version"`
	Content     string    `json:"content"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description,omitempty"`
}

// ChangeType classifies a diff line.
type ChangeType string

const (
	Added   ChangeType = "added"
	Removed ChangeType = "removed"
)

// DiffLine is one entry of a positional line diff. Line is 1-based and refers
// to the old text for removals and to the new text for additions.
type DiffLine struct {
	Type    ChangeType `json:"type"`
	Line    int        `json:"line"`
	Content string     `json:"content"`
}
