package history

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"notekeeper/internal/app/client/api/http/httperr"
	"notekeeper/internal/domain/history"
)

type Handler struct {
	service    history.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service history.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.restoreOp(), h.restore)
	huma.Register(api, h.diffOp(), h.diff)
}

func (h *Handler) list(ctx context.Context, input *noteInput) (*listOutput, error) {
	versions, err := h.service.ListVersions(ctx, input.NoteID)
	if err != nil {
		return nil, httperr.From(err)
	}
	if versions == nil {
		versions = []*history.Version{}
	}
	return &listOutput{Body: versions}, nil
}

func (h *Handler) create(ctx context.Context, input *createInput) (*versionOutput, error) {
	v, err := h.service.CreateVersion(ctx, input.NoteID, input.Body.Content, input.Body.Description)
	if err != nil {
		return nil, httperr.From(err)
	}
	return &versionOutput{Body: v}, nil
}

func (h *Handler) get(ctx context.Context, input *versionInput) (*versionOutput, error) {
	v, err := h.service.GetVersion(ctx, input.NoteID, input.Version)
	if err != nil {
		return nil, httperr.From(err)
	}
	return &versionOutput{Body: v}, nil
}

func (h *Handler) restore(ctx context.Context, input *versionInput) (*versionOutput, error) {
	v, err := h.service.RestoreVersion(ctx, input.NoteID, input.Version)
	if err != nil {
		return nil, httperr.From(err)
	}
	return &versionOutput{Body: v}, nil
}

func (h *Handler) diff(ctx context.Context, input *diffInput) (*diffOutput, error) {
	req := input.Body

	var lines []history.DiffLine
	if req.NoteID != "" {
		if req.From < 1 || req.To < 1 {
			return nil, huma.Error422UnprocessableEntity("from and to are required with note_id")
		}
		var err error
		lines, err = h.service.DiffVersions(ctx, req.NoteID, req.From, req.To)
		if err != nil {
			return nil, httperr.From(err)
		}
	} else {
		lines = history.GenerateDiff(req.Old, req.New)
	}

	out := &diffOutput{Body: diffResponse{Lines: lines}}
	if out.Body.Lines == nil {
		out.Body.Lines = []history.DiffLine{}
	}
	for _, l := range lines {
		switch l.Type {
		case history.Added:
			out.Body.Added++
		case history.Removed:
			out.Body.Removed++
		}
	}
	return out, nil
}
