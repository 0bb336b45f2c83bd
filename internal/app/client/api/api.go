// Package api is the local control API the desktop UI talks to.
//
//	GET    /api/v1/health
//	POST   /api/v1/sync                       # run a pass (409 running, 503 offline)
//	GET    /api/v1/sync/status
//	PUT    /api/v1/sync/auto
//	DELETE /api/v1/sync/cache                 # reset the local cache
//	DELETE /api/v1/sync/failed/{seq}
//	GET    /api/v1/conflicts
//	POST   /api/v1/conflicts/{id}/resolve
//	DELETE /api/v1/conflicts/{id}
//	GET    /api/v1/notes/{id}/versions
//	POST   /api/v1/notes/{id}/versions
//	GET    /api/v1/notes/{id}/versions/{version}
//	POST   /api/v1/notes/{id}/versions/{version}/restore
//	POST   /api/v1/diff
//	GET    /api/v1/records/{table}
//	POST   /api/v1/records/{table}
//	GET    /api/v1/records/{table}/{id}
//	PUT    /api/v1/records/{table}/{id}
//	DELETE /api/v1/records/{table}/{id}
package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	healthAPI "notekeeper/internal/app/client/api/http/health"
	historyAPI "notekeeper/internal/app/client/api/http/history"
	"notekeeper/internal/app/client/api/http/middleware"
	"notekeeper/internal/app/client/api/http/middleware/logger"
	recordAPI "notekeeper/internal/app/client/api/http/record"
	syncAPI "notekeeper/internal/app/client/api/http/sync"
	appconfig "notekeeper/internal/config"
	"notekeeper/internal/domain/history"
	"notekeeper/internal/domain/sync"
)

// Services are the domain services behind the API.
type Services struct {
	Online  func() bool
	Sync    sync.Servicer
	Auto    syncAPI.AutoSyncer
	History history.Servicer
	Records recordAPI.Servicer
}

type Handlers struct {
	Health  *healthAPI.Handler
	Sync    *syncAPI.Handler
	History *historyAPI.Handler
	Record  *recordAPI.Handler
}

// New builds the router with every operation registered through huma.
func New(services Services, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig(appconfig.AppName+" local API", "1.0.0")
	API := humachi.New(mux, config)

	h := handlers(services, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)
	h.History.SetupRoutes(API)
	h.Record.SetupRoutes(API)

	return mux
}

func handlers(services Services, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(services.Online, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	syncHandler := syncAPI.NewHandler(services.Sync, services.Auto, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	historyHandler := historyAPI.NewHandler(services.History, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	recordHandler := recordAPI.NewHandler(services.Records, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:  healthHandler,
		Sync:    syncHandler,
		History: historyHandler,
		Record:  recordHandler,
	}
}
