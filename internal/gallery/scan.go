// Package gallery reconciles the gallery upload directory with the gallery
// list held in the primary document.
package gallery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/hyperengineering/keepsake/internal/store"
	"github.com/hyperengineering/keepsake/internal/types"
)

// Scan lists the regular files in dir, newest first by modification time.
// Equal modification times are ordered by filename, descending. Symlinks
// and directories are skipped. A missing directory yields an empty list.
func Scan(dir string) ([]types.GalleryEntry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []types.GalleryEntry{}, nil
		}
		return nil, fmt.Errorf("read upload directory: %w", err)
	}

	type file struct {
		name    string
		modTime time.Time
	}
	files := make([]file, 0, len(dirEntries))
	for _, e := range dirEntries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, file{name: e.Name(), modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].modTime.Equal(files[j].modTime) {
			return files[i].modTime.After(files[j].modTime)
		}
		return files[i].name > files[j].name
	})

	entries := make([]types.GalleryEntry, len(files))
	for i, f := range files {
		entries[i] = types.GalleryEntry{
			ID:         store.NewID(),
			Filename:   f.name,
			UploadedAt: store.Timestamp(f.modTime),
		}
	}
	return entries, nil
}

// Reconcile builds the gallery list from a fresh scan. Entries for files
// already known to the document keep their id; their note is kept only when
// keepNotes is set; otherwise every note starts empty after a restart.
func Reconcile(scanned, persisted []types.GalleryEntry, keepNotes bool) []types.GalleryEntry {
	known := make(map[string]types.GalleryEntry, len(persisted))
	for _, e := range persisted {
		known[e.Filename] = e
	}

	out := make([]types.GalleryEntry, len(scanned))
	for i, e := range scanned {
		if prev, ok := known[e.Filename]; ok {
			if prev.ID != "" {
				e.ID = prev.ID
			}
			if keepNotes {
				e.Note = prev.Note
			}
		}
		out[i] = e
	}
	return out
}
