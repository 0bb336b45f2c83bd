package record

import (
	"encoding/json"

	"notekeeper/internal/domain/record"
)

type tableInput struct {
	Table  string `path:"table" enum:"notes,people,todos" doc:"Record table"`
	Status string `query:"status" enum:"pending,synced,conflict" doc:"Only records in this sync status"`
}

type idInput struct {
	Table string `path:"table" enum:"notes,people,todos" doc:"Record table"`
	ID    string `path:"id" doc:"Local record id"`
}

type createInput struct {
	Table string `path:"table" enum:"notes,people,todos" doc:"Record table"`
	Body  request
}

type updateInput struct {
	Table string `path:"table" enum:"notes,people,todos" doc:"Record table"`
	ID    string `path:"id" doc:"Local record id"`
	Body  request
}

type request struct {
	Payload json.RawMessage `json:"payload" doc:"Note, person or todo fields"`
}

type output struct {
	Body *record.Record
}

type listOutput struct {
	Body []*record.Record
}

type emptyOutput struct{}
