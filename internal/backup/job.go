package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Source is a document file that can be written out on demand.
// *store.File satisfies it.
type Source interface {
	Path() string
	Flush() error
}

// Document names a Source for backup.
type Document struct {
	Name   string
	Source Source
}

// Job flushes each document to disk and uploads the resulting file.
type Job struct {
	uploader  Uploader
	documents []Document
}

// NewJob creates a job backing up documents through uploader.
func NewJob(uploader Uploader, documents ...Document) *Job {
	return &Job{uploader: uploader, documents: documents}
}

// Run backs up every document. A failure on one document does not stop the
// others; all failures are returned joined.
func (j *Job) Run(ctx context.Context) error {
	var errs []error
	for _, doc := range j.documents {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := j.backup(ctx, doc); err != nil {
			errs = append(errs, err)
			continue
		}
		slog.Info("document backed up",
			"component", "backup",
			"action", "upload",
			"document", doc.Name,
			"path", doc.Source.Path(),
		)
	}
	return errors.Join(errs...)
}

func (j *Job) backup(ctx context.Context, doc Document) error {
	if err := doc.Source.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", doc.Name, err)
	}
	if err := j.uploader.Upload(ctx, doc.Name, doc.Source.Path()); err != nil {
		return err
	}
	return nil
}
