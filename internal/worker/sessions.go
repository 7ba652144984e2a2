package worker

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredSessionDeleter removes sessions past their expiry.
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionSweeper deletes expired sessions on an interval so the session
// table does not grow without bound.
type SessionSweeper struct {
	sessions ExpiredSessionDeleter
	interval time.Duration
	now      func() time.Time
}

// NewSessionSweeper creates a sweeper over sessions.
func NewSessionSweeper(sessions ExpiredSessionDeleter, interval time.Duration) *SessionSweeper {
	return &SessionSweeper{
		sessions: sessions,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps on each interval until ctx is cancelled.
func (w *SessionSweeper) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "session-sweep",
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "session-sweep",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep deletes expired sessions once.
func (w *SessionSweeper) sweep(ctx context.Context) {
	n, err := w.sessions.DeleteExpired(ctx, w.now())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("session sweep failed",
			"component", "worker",
			"action", "session_sweep_failed",
			"error", err,
		)
		return
	}
	if n > 0 {
		slog.Info("expired sessions deleted",
			"component", "worker",
			"action", "session_sweep",
			"count", n,
		)
	}
}
