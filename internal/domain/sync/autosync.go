package sync

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"
)

// Syncer is the entry point auto-sync drives.
type Syncer interface {
	SyncAll(ctx context.Context) (*Result, error)
}

// AutoSync runs SyncAll on a timer and shortly after connectivity returns.
// Connectivity changes are debounced on the trailing edge: any number of
// changes within the window produce at most one sync.
type AutoSync struct {
	syncer   Syncer
	log      *slog.Logger
	debounce time.Duration

	mu       gosync.Mutex
	enabled  bool
	interval time.Duration
	online   bool
	timer    *time.Timer
	ctx      context.Context
	reset    chan time.Duration
}

func NewAutoSync(syncer Syncer, log *slog.Logger, interval, debounce time.Duration) *AutoSync {
	return &AutoSync{
		syncer:   syncer,
		log:      log.With("component", "auto_sync"),
		debounce: debounce,
		enabled:  true,
		interval: interval,
		online:   true,
		reset:    make(chan time.Duration, 1),
	}
}

// Start runs the timer loop until ctx is cancelled.
func (a *AutoSync) Start(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	interval := a.interval
	a.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.log.Info("auto-sync started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			a.mu.Lock()
			if a.timer != nil {
				a.timer.Stop()
			}
			a.ctx = nil
			a.mu.Unlock()
			a.log.Info("auto-sync stopped")
			return
		case d := <-a.reset:
			ticker.Reset(d)
		case <-ticker.C:
			a.mu.Lock()
			run := a.enabled && a.online
			a.mu.Unlock()
			if run {
				a.trigger(ctx, "timer")
			}
		}
	}
}

func (a *AutoSync) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()
	a.log.Info("auto-sync toggled", "enabled", enabled)
}

func (a *AutoSync) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// SetInterval changes the timer period, taking effect on the running loop.
func (a *AutoSync) SetInterval(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidInterval
	}
	a.mu.Lock()
	a.interval = d
	a.mu.Unlock()

	// Keep only the latest pending interval.
	select {
	case <-a.reset:
	default:
	}
	a.reset <- d
	return nil
}

func (a *AutoSync) Interval() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interval
}

// NotifyConnectivity records an online/offline transition. When the last state
// seen after the debounce window is online, one sync is triggered.
func (a *AutoSync) NotifyConnectivity(online bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.online = online
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.debounce, a.settle)
}

func (a *AutoSync) settle() {
	a.mu.Lock()
	run := a.online && a.enabled && a.ctx != nil
	ctx := a.ctx
	a.mu.Unlock()

	if run {
		a.trigger(ctx, "reconnect")
	}
}

func (a *AutoSync) trigger(ctx context.Context, reason string) {
	res, err := a.syncer.SyncAll(ctx)
	switch {
	case errors.Is(err, ErrSyncInProgress):
		a.log.Debug("auto-sync skipped, pass in progress", "reason", reason)
	case errors.Is(err, ErrOffline):
		a.log.Debug("auto-sync skipped, offline", "reason", reason)
	case err != nil:
		a.log.Error("auto-sync failed", "reason", reason, "error", err)
	default:
		a.log.Debug("auto-sync done", "reason", reason, "synced", res.Synced, "conflicts", res.Conflicts)
	}
}
