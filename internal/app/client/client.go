package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"notekeeper/internal/app/client/api"
	"notekeeper/internal/app/client/config"
	"notekeeper/internal/domain/history"
	"notekeeper/internal/domain/presence"
	syncdomain "notekeeper/internal/domain/sync"
	"notekeeper/internal/infrastructure/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

// App owns the local store and every service built on top of it.
type App struct {
	config   *config.Config
	log      *slog.Logger
	storage  *sqlite.Storage
	remote   *httpClient
	sync     *syncdomain.Service
	auto     *syncdomain.AutoSync
	monitor  *syncdomain.Monitor
	history  *history.Service
	records  *RecordService
	presence *presence.Service

	wg        gosync.WaitGroup
	cancel    context.CancelFunc
	closeOnce gosync.Once
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	storage, err := sqlite.New(cfg.DBPath, log)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	remote := NewHTTPClient(cfg, log)

	syncService := syncdomain.NewService(storage, remote, log, &syncdomain.Config{
		MaxRetries:  cfg.Sync.MaxRetries,
		PingTimeout: cfg.Sync.RequestTimeout,
		ConflictTTL: cfg.Sync.ConflictTTL,
	})

	monitor := syncdomain.NewMonitor(remote, log, cfg.Sync.ProbeInterval, cfg.Sync.RequestTimeout)
	auto := syncdomain.NewAutoSync(syncService, log, cfg.Sync.Interval, cfg.Sync.Debounce)
	auto.SetEnabled(cfg.Sync.Auto)
	monitor.Subscribe(auto.NotifyConnectivity)

	records := NewRecordService(storage, monitor.Online, log)
	historyService := history.NewService(storage, records, cfg.Author, log)
	records.TrackVersions(historyService)

	backoff := presence.DefaultBackoff()
	backoff.Base = cfg.Presence.BaseBackoff
	backoff.Max = cfg.Presence.MaxBackoff
	backoff.MaxAttempts = cfg.Presence.MaxAttempts
	backoff.StableAfter = cfg.Presence.StableAfter
	presenceService := presence.NewService(presence.Config{
		URL:     cfg.PresenceURL(),
		UserID:  cfg.Author,
		Token:   cfg.APIToken,
		Backoff: backoff,
	}, presence.NewWSDialer(cfg.Sync.RequestTimeout, cfg.Sync.RequestTimeout), syncService, log)

	return &App{
		config:   cfg,
		log:      log,
		storage:  storage,
		remote:   remote,
		sync:     syncService,
		auto:     auto,
		monitor:  monitor,
		history:  historyService,
		records:  records,
		presence: presenceService,
	}, nil
}

func (a *App) Config() *config.Config { return a.config }
func (a *App) Sync() *syncdomain.Service { return a.sync }
func (a *App) AutoSync() *syncdomain.AutoSync { return a.auto }
func (a *App) History() *history.Service { return a.history }
func (a *App) Records() *RecordService { return a.records }
func (a *App) Presence() *presence.Service { return a.presence }
func (a *App) Connectivity() *syncdomain.Monitor { return a.monitor }

// Handler is the local control API backed by this app.
func (a *App) Handler() http.Handler {
	return api.New(api.Services{
		Online:  a.monitor.Online,
		Sync:    a.sync,
		Auto:    a.auto,
		History: a.history,
		Records: a.records,
	}, a.log)
}

// Run serves the local API and runs connectivity probing and auto-sync until
// ctx is cancelled or the process receives a termination signal.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	defer cancel()

	go a.handleSignals(ctx)

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.monitor.Run(ctx)
	}()
	go func() {
		defer a.wg.Done()
		a.auto.Start(ctx)
	}()

	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	a.log.Info("client started",
		"listen", a.config.ListenAddress,
		"server", a.config.ServerURL(),
		"env", a.config.Env,
		"auto_sync", a.auto.Enabled(),
	)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("local api: %w", err)
		}
		cancel()
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.Error("failed to stop local api", "error", err)
	}

	a.Shutdown()
	return runErr
}

func (a *App) handleSignals(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.log.Info("received shutdown signal", "signal", sig.String())
		if a.cancel != nil {
			a.cancel()
		}
	case <-ctx.Done():
	}
}

// Shutdown stops background work, closes collaboration sessions and the store.
// It is safe to call more than once.
func (a *App) Shutdown() {
	a.closeOnce.Do(func() {
		a.log.Info("shutting down client")

		if a.cancel != nil {
			a.cancel()
		}
		a.wg.Wait()
		a.presence.CloseAll()

		if err := a.storage.Close(); err != nil {
			a.log.Error("failed to close local store", "error", err)
		}
		a.log.Info("client stopped")
	})
}

type appKey struct{}

// WithApp stores app in ctx for the CLI subcommands.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

func FromContext(ctx context.Context) (*App, error) {
	app, ok := ctx.Value(appKey{}).(*App)
	if !ok || app == nil {
		return nil, errors.New("application is not initialized")
	}
	return app, nil
}
