package record

import (
	"context"
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"notekeeper/internal/app/client/api/http/httperr"
	"notekeeper/internal/domain/record"
)

// Servicer is the UI write path over the local store.
type Servicer interface {
	Get(ctx context.Context, table record.Table, id string) (*record.Record, error)
	List(ctx context.Context, table record.Table, status *record.Status) ([]*record.Record, error)
	Create(ctx context.Context, table record.Table, payload json.RawMessage) (*record.Record, error)
	Update(ctx context.Context, table record.Table, id string, payload json.RawMessage) (*record.Record, error)
	Delete(ctx context.Context, table record.Table, id string) error
}

type Handler struct {
	service    Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.findOp(), h.find)
	huma.Register(api, h.updateOp(), h.update)
	huma.Register(api, h.deleteOp(), h.delete)
}

func (h *Handler) list(ctx context.Context, input *tableInput) (*listOutput, error) {
	table, err := record.ParseTable(input.Table)
	if err != nil {
		return nil, httperr.From(err)
	}

	var status *record.Status
	if input.Status != "" {
		s := record.Status(input.Status)
		status = &s
	}

	records, err := h.service.List(ctx, table, status)
	if err != nil {
		return nil, httperr.From(err)
	}
	if records == nil {
		records = []*record.Record{}
	}
	return &listOutput{Body: records}, nil
}

func (h *Handler) find(ctx context.Context, input *idInput) (*output, error) {
	table, err := record.ParseTable(input.Table)
	if err != nil {
		return nil, httperr.From(err)
	}

	rec, err := h.service.Get(ctx, table, input.ID)
	if err != nil {
		return nil, httperr.From(err)
	}
	return &output{Body: rec}, nil
}

func (h *Handler) create(ctx context.Context, input *createInput) (*output, error) {
	table, err := record.ParseTable(input.Table)
	if err != nil {
		return nil, httperr.From(err)
	}

	rec, err := h.service.Create(ctx, table, input.Body.Payload)
	if err != nil {
		return nil, httperr.From(err)
	}
	return &output{Body: rec}, nil
}

func (h *Handler) update(ctx context.Context, input *updateInput) (*output, error) {
	table, err := record.ParseTable(input.Table)
	if err != nil {
		return nil, httperr.From(err)
	}

	rec, err := h.service.Update(ctx, table, input.ID, input.Body.Payload)
	if err != nil {
		return nil, httperr.From(err)
	}
	return &output{Body: rec}, nil
}

func (h *Handler) delete(ctx context.Context, input *idInput) (*emptyOutput, error) {
	table, err := record.ParseTable(input.Table)
	if err != nil {
		return nil, httperr.From(err)
	}

	if err := h.service.Delete(ctx, table, input.ID); err != nil {
		return nil, httperr.From(err)
	}
	return &emptyOutput{}, nil
}
