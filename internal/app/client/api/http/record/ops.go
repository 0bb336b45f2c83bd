package record

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "records-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/records/{table}",
		Summary:     "List cached records",
		Tags:        []string{"records"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID:   "records-create",
		Method:        http.MethodPost,
		Path:          "/api/v1/records/{table}",
		Summary:       "Create a record",
		Description:   "Saved locally as pending and queued when offline.",
		Tags:          []string{"records"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) findOp() huma.Operation {
	return huma.Operation{
		OperationID: "records-find",
		Method:      http.MethodGet,
		Path:        "/api/v1/records/{table}/{id}",
		Summary:     "Get a record",
		Tags:        []string{"records"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) updateOp() huma.Operation {
	return huma.Operation{
		OperationID: "records-update",
		Method:      http.MethodPut,
		Path:        "/api/v1/records/{table}/{id}",
		Summary:     "Replace a record's payload",
		Tags:        []string{"records"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID:   "records-delete",
		Method:        http.MethodDelete,
		Path:          "/api/v1/records/{table}/{id}",
		Summary:       "Delete a record",
		Tags:          []string{"records"},
		DefaultStatus: http.StatusNoContent,
		Middlewares:   h.middleware,
	}
}
