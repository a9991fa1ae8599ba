package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vendazap/vendazap/internal/store"
)

// DefaultAbandonAfter is how long a conversation can sit idle before the
// sweeper closes it as abandoned.
const DefaultAbandonAfter = 24 * time.Hour

// DefaultSweepInterval is how often the sweeper runs.
const DefaultSweepInterval = time.Hour

// Sweeper periodically marks idle conversations abandoned so stale threads do
// not block new ones forever.
type Sweeper struct {
	store        store.Store
	abandonAfter time.Duration
	interval     time.Duration
}

// SweeperOption configures the Sweeper.
type SweeperOption func(*Sweeper)

// WithAbandonAfter overrides how long a conversation may sit idle.
func WithAbandonAfter(d time.Duration) SweeperOption {
	return func(s *Sweeper) { s.abandonAfter = d }
}

// WithSweepInterval overrides how often the sweeper runs.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) { s.interval = d }
}

// NewSweeper creates a Sweeper with the default idle window and interval.
func NewSweeper(s store.Store, opts ...SweeperOption) *Sweeper {
	sw := &Sweeper{store: s, abandonAfter: DefaultAbandonAfter, interval: DefaultSweepInterval}
	for _, opt := range opts {
		opt(sw)
	}
	return sw
}

// Run loops until the context is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Sweeper.Run: stopping")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	cutoff := time.Now().Add(-s.abandonAfter)
	n, err := s.store.MarkAbandonedBefore(cutoff)
	if err != nil {
		slog.Error("Sweeper.sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Sweeper.sweep: closed idle conversations", "count", n)
	}
}
