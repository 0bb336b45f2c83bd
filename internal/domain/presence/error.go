package presence

import "errors"

var (
	ErrNotConnected   = errors.New("presence: not connected")
	ErrAlreadyStarted = errors.New("presence: session already started")
	ErrEmptyNoteID    = errors.New("presence: note id is required")
	ErrUnknownMessage = errors.New("presence: unknown message type")
)
