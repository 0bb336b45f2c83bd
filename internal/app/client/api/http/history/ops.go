package history

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "versions-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes/{id}/versions",
		Summary:     "List versions of a note, newest first",
		Tags:        []string{"history"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID:   "versions-create",
		Method:        http.MethodPost,
		Path:          "/api/v1/notes/{id}/versions",
		Summary:       "Snapshot note content",
		Tags:          []string{"history"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "versions-get",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes/{id}/versions/{version}",
		Summary:     "Get one version",
		Tags:        []string{"history"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) restoreOp() huma.Operation {
	return huma.Operation{
		OperationID: "versions-restore",
		Method:      http.MethodPost,
		Path:        "/api/v1/notes/{id}/versions/{version}/restore",
		Summary:     "Restore a version",
		Description: "Appends a copy of the version and writes its content back to the note.",
		Tags:        []string{"history"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) diffOp() huma.Operation {
	return huma.Operation{
		OperationID: "diff",
		Method:      http.MethodPost,
		Path:        "/api/v1/diff",
		Summary:     "Line diff of two versions or two texts",
		Tags:        []string{"history"},
		Middlewares: h.middleware,
	}
}
