package sync

import (
	"context"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"
)

// Pinger probes remote reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor polls the remote and notifies subscribers on online/offline transitions.
type Monitor struct {
	pinger   Pinger
	log      *slog.Logger
	interval time.Duration
	timeout  time.Duration

	mu          gosync.RWMutex
	known       bool
	online      bool
	subscribers []func(online bool)
}

func NewMonitor(pinger Pinger, log *slog.Logger, interval, timeout time.Duration) *Monitor {
	return &Monitor{
		pinger:   pinger,
		log:      log.With("component", "connectivity"),
		interval: interval,
		timeout:  timeout,
	}
}

// Subscribe registers fn for transitions. fn runs on the monitor goroutine.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.mu.Unlock()
}

// Online reports the last observed state. Unknown counts as offline.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.known && m.online
}

// Check probes once and notifies subscribers if the state changed.
func (m *Monitor) Check(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.Ping(pctx)
	cancel()
	online := err == nil

	m.mu.Lock()
	changed := !m.known || m.online != online
	m.known = true
	m.online = online
	subs := append([]func(bool){}, m.subscribers...)
	m.mu.Unlock()

	if changed {
		if online {
			m.log.Info("remote reachable")
		} else {
			m.log.Warn("remote unreachable", "error", err)
		}
		for _, fn := range subs {
			fn(online)
		}
	}
	return online
}

// Run polls until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
