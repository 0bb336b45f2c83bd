package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) syncOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-run",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync",
		Summary:     "Run a sync pass",
		Description: "Pulls remote changes, pushes local ones and drains the offline queue. 409 while another pass runs, 503 when offline.",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) statusOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/status",
		Summary:     "Sync status",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) autoOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-auto",
		Method:      http.MethodPut,
		Path:        "/api/v1/sync/auto",
		Summary:     "Configure auto-sync",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) resetOp() huma.Operation {
	return huma.Operation{
		OperationID:   "sync-reset",
		Method:        http.MethodDelete,
		Path:          "/api/v1/sync/cache",
		Summary:       "Reset the local cache",
		Description:   "Drops every cached record, queued change, conflict and sync token. Note history is kept.",
		Tags:          []string{"sync"},
		DefaultStatus: http.StatusNoContent,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) conflictsOp() huma.Operation {
	return huma.Operation{
		OperationID: "conflicts-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/conflicts",
		Summary:     "List unresolved conflicts",
		Tags:        []string{"conflicts"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) resolveOp() huma.Operation {
	return huma.Operation{
		OperationID: "conflicts-resolve",
		Method:      http.MethodPost,
		Path:        "/api/v1/conflicts/{id}/resolve",
		Summary:     "Resolve a conflict",
		Description: "strategy is keep_local, keep_remote or merge; merge requires merged.",
		Tags:        []string{"conflicts"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) dismissOp() huma.Operation {
	return huma.Operation{
		OperationID:   "conflicts-dismiss",
		Method:        http.MethodDelete,
		Path:          "/api/v1/conflicts/{id}",
		Summary:       "Dismiss a conflict",
		Tags:          []string{"conflicts"},
		DefaultStatus: http.StatusNoContent,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) discardFailedOp() huma.Operation {
	return huma.Operation{
		OperationID:   "sync-failed-discard",
		Method:        http.MethodDelete,
		Path:          "/api/v1/sync/failed/{seq}",
		Summary:       "Discard a permanently failed operation",
		Tags:          []string{"sync"},
		DefaultStatus: http.StatusNoContent,
		Middlewares:   h.middleware,
	}
}
