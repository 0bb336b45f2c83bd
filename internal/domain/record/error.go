package record

import "errors"

var (
	ErrNotFound       = errors.New("record not found")
	ErrUnknownTable   = errors.New("unknown table")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrInvalidRecord  = errors.New("invalid record")
)
