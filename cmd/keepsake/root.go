package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/keepsake/internal/api"
	"github.com/hyperengineering/keepsake/internal/auth"
	"github.com/hyperengineering/keepsake/internal/config"
	"github.com/hyperengineering/keepsake/internal/session"
	"github.com/hyperengineering/keepsake/internal/worker"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:          "keepsake",
	Short:        "Keepsake - a private place for two",
	Long:         "Serves the shared ideas, memories, notes, gallery and music lists. Subcommands work on the data files without running the server.",
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (overrides KEEPSAKE_CONFIG_PATH)")

	rootCmd.AddCommand(dataCmd)
	rootCmd.AddCommand(galleryCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

// loadConfig loads the --config file when given, else the environment's.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func run(cmd *cobra.Command, args []string) error {
	// 1. Signal handling
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// 2. Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	slog.Info("configuration loaded")

	// 3. Initialize logger
	slog.SetDefault(newLogger(cfg.Log))
	slog.Info("logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	// 4. Load documents and build collections
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	slog.Info("store initialized",
		"document", cfg.Data.DocumentPath,
		"music", cfg.Data.MusicPath,
	)

	// 5. Rebuild the gallery list from disk before serving
	n, err := a.svc.Gallery.Sync(cfg.Gallery.KeepNotes)
	if err != nil {
		slog.Warn("gallery sync incomplete", "error", err)
	}
	slog.Info("gallery synced", "images", n)

	// 6. Session database (migrations, WAL mode)
	sessions, err := session.NewSQLiteStore(cfg.Data.SessionDBPath)
	if err != nil {
		return err
	}
	slog.Info("sessions initialized", "path", cfg.Data.SessionDBPath)

	// 7. Initialize HTTP router
	gate := auth.NewGate(a.svc.Users, sessions, time.Duration(cfg.Session.TTL))
	handler, err := api.NewHandler(a.svc, gate, a.metrics, cfg, Version)
	if err != nil {
		sessions.Close()
		return err
	}
	router := api.NewRouter(handler)
	slog.Info("router initialized")

	// 8. Configure HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	// 9. Workers
	var wg sync.WaitGroup
	if interval := time.Duration(cfg.Session.SweepInterval); interval > 0 {
		startWorker(ctx, &wg, "session-sweep", worker.NewSessionSweeper(sessions, interval).Run)
	}
	if cfg.Backup.Bucket != "" && cfg.Backup.Interval > 0 {
		job, _, err := a.backupJob(cfg.Backup)
		if err != nil {
			sessions.Close()
			return err
		}
		startWorker(ctx, &wg, "backup", worker.NewBackupWorker(job, time.Duration(cfg.Backup.Interval)).Run)
	}

	// 10. Start HTTP server in goroutine
	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called gracefully.
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	// 11. Block until signal received
	<-ctx.Done()
	slog.Info("shutdown initiated")

	// 12. Graceful shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	// 12a. Stop HTTP server (drains in-flight requests)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// 12b. Wait for workers to complete
	wg.Wait()

	// 12c. Write documents and close sessions
	a.flush()
	if err := sessions.Close(); err != nil {
		slog.Error("session store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// newLogger builds the process logger from the log settings.
func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
