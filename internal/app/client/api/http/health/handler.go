package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	online     func() bool
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(online func() bool, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		online:     online,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(_ context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check request received")

	out := &Output{Body: Response{Status: "OK"}}
	if h.online != nil {
		out.Body.Online = h.online()
	}
	return out, nil
}
