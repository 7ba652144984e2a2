package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Decoder turns raw file bytes into a document, applying any migrations.
// It returns the names of migrations that changed the input.
type Decoder[T any] func(data []byte) (T, []string, error)

// LoadInfo describes how a document was obtained at open time.
type LoadInfo struct {
	Path       string
	Defaulted  bool
	Reason     string
	Migrations []string
}

// File owns one JSON document on disk and its in-memory copy.
// Every mutation goes through Update, which holds the lock across
// modify and write so concurrent writers cannot lose each other's changes.
type File[T any] struct {
	path string

	mu    sync.Mutex
	value T
}

// Open loads the document at path. A missing or malformed file is not an
// error: the document falls back to defaults() and LoadInfo says why.
func Open[T any](path string, decode Decoder[T], defaults func() T) (*File[T], LoadInfo) {
	info := LoadInfo{Path: path}
	f := &File[T]{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		info.Defaulted = true
		info.Reason = "missing"
	case err != nil:
		info.Defaulted = true
		info.Reason = fmt.Sprintf("read: %v", err)
	default:
		value, applied, decErr := decode(data)
		if decErr != nil {
			info.Defaulted = true
			info.Reason = decErr.Error()
		} else {
			f.value = value
			info.Migrations = applied
		}
	}

	if info.Defaulted {
		f.value = defaults()
		slog.Warn("document defaulted",
			"component", "store",
			"action", "load",
			"path", path,
			"reason", info.Reason,
		)
	} else {
		slog.Info("document loaded",
			"component", "store",
			"action", "load",
			"path", path,
			"migrations", len(info.Migrations),
		)
	}

	return f, info
}

// Path returns the file location of the document.
func (f *File[T]) Path() string {
	return f.path
}

// View calls fn with the current document under the lock.
// fn must not retain references into the document after it returns.
func (f *File[T]) View(fn func(v *T)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.value)
}

// Update runs fn against the document and, if fn succeeds, writes the whole
// document to disk before releasing the lock. An error from fn aborts
// without writing. A write failure is returned as *PersistenceError and the
// in-memory change is kept.
func (f *File[T]) Update(fn func(v *T) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := fn(&f.value); err != nil {
		return err
	}
	return f.writeLocked()
}

// Flush writes the current in-memory document to disk.
func (f *File[T]) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeLocked()
}

func (f *File[T]) writeLocked() error {
	if err := writeJSON(f.path, f.value); err != nil {
		slog.Error("document save failed",
			"component", "store",
			"action", "save",
			"path", f.path,
			"error", err,
		)
		return &PersistenceError{Path: f.path, Err: err}
	}
	return nil
}

// writeJSON replaces path with the indented JSON encoding of v. The bytes go
// to a temp file in the same directory first so readers never observe a
// partially written document.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}
