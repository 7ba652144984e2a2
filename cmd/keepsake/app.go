package main

import (
	"fmt"
	"log/slog"

	"github.com/hyperengineering/keepsake/internal/auth"
	"github.com/hyperengineering/keepsake/internal/backup"
	"github.com/hyperengineering/keepsake/internal/collection"
	"github.com/hyperengineering/keepsake/internal/config"
	"github.com/hyperengineering/keepsake/internal/metrics"
	"github.com/hyperengineering/keepsake/internal/store"
	"github.com/hyperengineering/keepsake/internal/uploads"
)

// app holds the document stores and the collections built over them. The
// server and the offline commands share it.
type app struct {
	doc     *store.DocumentStore
	music   *store.MusicStore
	images  *uploads.Dir
	photos  *uploads.Dir
	metrics *metrics.Metrics
	svc     *collection.Service
	loads   map[string]store.LoadInfo
}

// openApp loads both documents, creates the upload directories and builds
// the collections with the configured role policy.
func openApp(cfg *config.Config) (*app, error) {
	doc, docInfo := store.OpenDocument(cfg.Data.DocumentPath)
	music, musicInfo := store.OpenMusic(cfg.Data.MusicPath)

	images, err := uploads.NewDir(cfg.Uploads.GalleryDir, cfg.Uploads.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("gallery directory: %w", err)
	}
	photos, err := uploads.NewDir(cfg.Uploads.PhotosDir, cfg.Uploads.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("photos directory: %w", err)
	}

	policy, err := auth.NewPolicy(cfg.Auth.PrimaryRole, cfg.Auth.SecondaryRole, cfg.Roles)
	if err != nil {
		return nil, fmt.Errorf("role policy: %w", err)
	}

	m := metrics.New()
	svc := collection.New(collection.Config{
		Document: doc,
		Music:    music,
		Policy:   policy,
		Photos:   photos,
		Images:   images,
		Recorder: m,
	})

	return &app{
		doc:     doc,
		music:   music,
		images:  images,
		photos:  photos,
		metrics: m,
		svc:     svc,
		loads: map[string]store.LoadInfo{
			collection.DocumentPrimary: docInfo,
			collection.DocumentMusic:   musicInfo,
		},
	}, nil
}

// backupJob backs up both documents through the configured uploader, which
// is returned too so callers can presign the uploaded objects.
func (a *app) backupJob(cfg config.BackupConfig) (*backup.Job, backup.Uploader, error) {
	uploader, err := backup.NewUploader(cfg)
	if err != nil {
		return nil, nil, err
	}
	job := backup.NewJob(uploader,
		backup.Document{Name: collection.DocumentPrimary, Source: a.doc},
		backup.Document{Name: collection.DocumentMusic, Source: a.music},
	)
	return job, uploader, nil
}

// flush writes both documents, logging rather than failing on errors.
func (a *app) flush() {
	if err := a.doc.Flush(); err != nil {
		slog.Error("flush failed", "document", collection.DocumentPrimary, "error", err)
	}
	if err := a.music.Flush(); err != nil {
		slog.Error("flush failed", "document", collection.DocumentMusic, "error", err)
	}
}
