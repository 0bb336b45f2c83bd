package history

import "errors"

var (
	ErrVersionNotFound = errors.New("note version not found")
	ErrEmptyNoteID     = errors.New("note id is required")
)
