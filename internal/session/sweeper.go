package session

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically prunes expired session rows. Expired tokens already
// fail signature verification, so the sweep only reclaims dangling records.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	onSweep  func(removed int) // optional metrics hook
	done     chan struct{}
}

// NewSweeper creates a Sweeper that prunes every interval. onSweep, if
// non-nil, is called with the number of removed sessions after each sweep.
func NewSweeper(registry *Registry, interval time.Duration, onSweep func(removed int)) *Sweeper {
	return &Sweeper{
		registry: registry,
		interval: interval,
		onSweep:  onSweep,
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop. It blocks until Stop is called or the context
// is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

// sweep removes expired sessions, logging errors rather than returning them.
func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	removed, err := s.registry.SweepExpired(ctx, time.Now())
	if err != nil {
		slog.Error("failed to sweep expired sessions", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("swept expired sessions", "count", removed)
	}
	if s.onSweep != nil {
		s.onSweep(removed)
	}
}

// Stop signals the sweep loop to exit.
func (s *Sweeper) Stop() {
	close(s.done)
}
