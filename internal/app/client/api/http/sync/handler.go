package sync

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"notekeeper/internal/app/client/api/http/httperr"
	"notekeeper/internal/domain/sync"
)

// AutoSyncer is the runtime control surface of the auto-sync scheduler.
type AutoSyncer interface {
	SetEnabled(enabled bool)
	Enabled() bool
	SetInterval(d time.Duration) error
	Interval() time.Duration
}

type Handler struct {
	service    sync.Servicer
	auto       AutoSyncer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service sync.Servicer, auto AutoSyncer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		auto:       auto,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.syncOp(), h.runSync)
	huma.Register(api, h.statusOp(), h.status)
	huma.Register(api, h.autoOp(), h.setAuto)
	huma.Register(api, h.resetOp(), h.reset)
	huma.Register(api, h.discardFailedOp(), h.discardFailed)
	huma.Register(api, h.conflictsOp(), h.conflicts)
	huma.Register(api, h.resolveOp(), h.resolve)
	huma.Register(api, h.dismissOp(), h.dismiss)
}

// runSync reports a pass that ran but had failures as 200 with success=false.
func (h *Handler) runSync(ctx context.Context, _ *struct{}) (*syncOutput, error) {
	res, err := h.service.SyncAll(ctx)
	if err != nil {
		return nil, httperr.From(err)
	}
	return &syncOutput{Body: res}, nil
}

func (h *Handler) status(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	st, err := h.service.Status(ctx)
	if err != nil {
		return nil, httperr.From(err)
	}
	return &statusOutput{Body: statusResponse{Status: *st, AutoSync: h.autoState()}}, nil
}

func (h *Handler) setAuto(_ context.Context, input *autoInput) (*autoOutput, error) {
	if h.auto == nil {
		return nil, huma.Error501NotImplemented("auto-sync is not running")
	}
	if input.Body.IntervalMS > 0 {
		if err := h.auto.SetInterval(time.Duration(input.Body.IntervalMS) * time.Millisecond); err != nil {
			return nil, httperr.From(err)
		}
	}
	h.auto.SetEnabled(input.Body.Enabled)
	h.log.Info("auto-sync reconfigured", "enabled", input.Body.Enabled, "interval_ms", input.Body.IntervalMS)

	return &autoOutput{Body: h.autoState()}, nil
}

func (h *Handler) autoState() autoResponse {
	if h.auto == nil {
		return autoResponse{}
	}
	return autoResponse{
		Enabled:    h.auto.Enabled(),
		IntervalMS: h.auto.Interval().Milliseconds(),
	}
}

func (h *Handler) reset(ctx context.Context, _ *struct{}) (*emptyOutput, error) {
	if err := h.service.Reset(ctx); err != nil {
		return nil, httperr.From(err)
	}
	return &emptyOutput{}, nil
}

func (h *Handler) discardFailed(ctx context.Context, input *failedInput) (*emptyOutput, error) {
	if err := h.service.DiscardFailed(ctx, input.Seq); err != nil {
		return nil, httperr.From(err)
	}
	return &emptyOutput{}, nil
}

func (h *Handler) conflicts(ctx context.Context, _ *struct{}) (*conflictsOutput, error) {
	list, err := h.service.Conflicts(ctx)
	if err != nil {
		return nil, httperr.From(err)
	}
	if list == nil {
		list = []*sync.Conflict{}
	}
	return &conflictsOutput{Body: list}, nil
}

func (h *Handler) resolve(ctx context.Context, input *resolveInput) (*resolveOutput, error) {
	rec, err := h.service.ResolveConflict(ctx, input.ID, input.Body)
	if err != nil {
		return nil, httperr.From(err)
	}
	return &resolveOutput{Body: resolveResponse{Status: "Ok", Record: rec}}, nil
}

func (h *Handler) dismiss(ctx context.Context, input *conflictIDInput) (*emptyOutput, error) {
	if err := h.service.DismissConflict(ctx, input.ID); err != nil {
		return nil, httperr.From(err)
	}
	return &emptyOutput{}, nil
}
