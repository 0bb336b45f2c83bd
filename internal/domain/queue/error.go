package queue

import "errors"

var (
	ErrEmpty       = errors.New("offline queue is empty")
	ErrInvalidItem = errors.New("invalid queue item")
)
