package worker

import (
	"context"
	"log/slog"
	"time"
)

// BackupJob copies the documents to backup storage.
type BackupJob interface {
	Run(ctx context.Context) error
}

// BackupWorker runs a backup job periodically.
type BackupWorker struct {
	job      BackupJob
	interval time.Duration
}

// NewBackupWorker creates a worker with the given job and interval.
func NewBackupWorker(job BackupJob, interval time.Duration) *BackupWorker {
	return &BackupWorker{
		job:      job,
		interval: interval,
	}
}

// Run starts the worker loop. Backs up immediately on start, then on each
// interval. Respects context cancellation for graceful shutdown.
func (w *BackupWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "backup",
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.backup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "backup",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.backup(ctx)
		}
	}
}

// backup runs the job once and logs any errors.
func (w *BackupWorker) backup(ctx context.Context) {
	slog.Info("backup started",
		"component", "worker",
		"action", "backup_start",
	)

	if err := w.job.Run(ctx); err != nil {
		// Check if it's a context cancellation (graceful shutdown)
		if ctx.Err() != nil {
			return
		}
		slog.Warn("backup failed",
			"component", "worker",
			"action", "backup_failed",
			"error", err,
		)
	}
}
