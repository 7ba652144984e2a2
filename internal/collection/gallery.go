package collection

import (
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/hyperengineering/keepsake/internal/auth"
	"github.com/hyperengineering/keepsake/internal/gallery"
	"github.com/hyperengineering/keepsake/internal/store"
	"github.com/hyperengineering/keepsake/internal/types"
	"github.com/hyperengineering/keepsake/internal/validation"
)

// PreviewSize is the number of images shown on the dashboard.
const PreviewSize = 6

// Gallery is the list of uploaded images. Its metadata lives in the primary
// document and its files in the images directory.
type Gallery struct {
	c *core
}

// List returns the gallery, most recent first.
func (s *Gallery) List() []types.GalleryEntry {
	var out []types.GalleryEntry
	s.c.doc.View(func(d *types.Document) {
		out = slices.Clone(d.Gallery)
	})
	return out
}

// Get returns the entry at index i.
func (s *Gallery) Get(i int) (types.GalleryEntry, error) {
	var (
		entry types.GalleryEntry
		err   error
	)
	s.c.doc.View(func(d *types.Document) {
		if err = locate(auth.ResourceGallery, len(d.Gallery), At(i), nil); err == nil {
			entry = d.Gallery[i]
		}
	})
	return entry, err
}

// Preview returns up to n leading entries with their indexes.
func (s *Gallery) Preview(n int) []types.GalleryPreview {
	out := []types.GalleryPreview{}
	s.c.doc.View(func(d *types.Document) {
		for i, e := range d.Gallery {
			if i >= n {
				break
			}
			out = append(out, types.GalleryPreview{Index: i, Filename: e.Filename})
		}
	})
	return out
}

// Upload stores image under a generated name and inserts its entry at the
// head of the gallery.
func (s *Gallery) Upload(p auth.Principal, image *Attachment) (Result[types.GalleryEntry], error) {
	const r, op = auth.ResourceGallery, auth.OpAdd
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.GalleryEntry]{}, err
	}
	if image == nil || strings.TrimSpace(image.Filename) == "" {
		return Result[types.GalleryEntry]{}, s.c.reject(r, op, validation.Single("image", "is required"))
	}

	name, err := s.c.images.Save(image.Filename, image.Reader)
	if err != nil {
		return Result[types.GalleryEntry]{}, s.c.reject(r, op, &FileError{Op: "save", Name: image.Filename, Err: err})
	}

	entry := types.GalleryEntry{
		ID:         store.NewID(),
		Filename:   name,
		UploadedAt: s.c.stamp(),
	}
	saveErr, err := commit(s.c, s.c.doc, DocumentPrimary, r, op, func(d *types.Document) error {
		d.Gallery = slices.Insert(d.Gallery, 0, entry)
		return nil
	})
	if err != nil {
		return Result[types.GalleryEntry]{}, err
	}

	logMutation(r, op, p, 0, entry.ID)
	return Result[types.GalleryEntry]{Index: 0, Entry: entry, SaveErr: saveErr}, nil
}

// SetNote replaces the caption of the image at ref. The note must be
// non-empty and differ from the current one.
func (s *Gallery) SetNote(p auth.Principal, ref Ref, note string) (Result[types.GalleryEntry], error) {
	const r, op = auth.ResourceGallery, auth.OpNote
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.GalleryEntry]{}, err
	}

	note = strings.TrimSpace(note)
	var edited types.GalleryEntry
	saveErr, err := commit(s.c, s.c.doc, DocumentPrimary, r, op, func(d *types.Document) error {
		if err := locate(r, len(d.Gallery), ref, func(i int) string { return d.Gallery[i].ID }); err != nil {
			return err
		}
		e := &d.Gallery[ref.Index]

		var v validation.Collector
		validation.ValidateText(&v, "note", note, true)
		if !v.HasErrors() {
			v.Add(validation.ValidateChanged("note", e.Note, note))
		}
		if err := v.Err(); err != nil {
			return err
		}

		e.Note = note
		edited = *e
		return nil
	})
	if err != nil {
		return Result[types.GalleryEntry]{}, err
	}

	logMutation(r, op, p, ref.Index, edited.ID)
	return Result[types.GalleryEntry]{Index: ref.Index, Entry: edited, SaveErr: saveErr}, nil
}

// Delete removes the image at ref from the gallery, then its file. A file
// that cannot be removed is reported as FileErr.
func (s *Gallery) Delete(p auth.Principal, ref Ref) (Result[types.GalleryEntry], error) {
	const r, op = auth.ResourceGallery, auth.OpDelete
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.GalleryEntry]{}, err
	}

	var removed types.GalleryEntry
	saveErr, err := commit(s.c, s.c.doc, DocumentPrimary, r, op, func(d *types.Document) error {
		if err := locate(r, len(d.Gallery), ref, func(i int) string { return d.Gallery[i].ID }); err != nil {
			return err
		}
		removed = d.Gallery[ref.Index]
		d.Gallery = slices.Delete(d.Gallery, ref.Index, ref.Index+1)
		return nil
	})
	if err != nil {
		return Result[types.GalleryEntry]{}, err
	}

	res := Result[types.GalleryEntry]{Index: ref.Index, Entry: removed, SaveErr: saveErr}
	if err := s.c.images.Remove(removed.Filename); err != nil {
		res.FileErr = &FileError{Op: "remove", Name: removed.Filename, Err: err}
		slog.Warn("image not removed",
			"component", "collection",
			"action", string(op),
			"resource", string(r),
			"path", removed.Filename,
			"error", err,
		)
	}

	logMutation(r, op, p, ref.Index, removed.ID)
	return res, nil
}

// Sync replaces the gallery list with a scan of the images directory and
// persists it. Files already known keep their id, and keep their note only
// when keepNotes is set. It runs once at startup, before requests are served.
func (s *Gallery) Sync(keepNotes bool) (int, error) {
	scanned, err := gallery.Scan(s.c.images.Root())
	if err != nil {
		return 0, err
	}

	var n int
	err = s.c.doc.Update(func(d *types.Document) error {
		d.Gallery = gallery.Reconcile(scanned, d.Gallery, keepNotes)
		n = len(d.Gallery)
		return nil
	})

	var pe *store.PersistenceError
	if errors.As(err, &pe) {
		s.c.recorder.SaveFailed(DocumentPrimary)
	}
	slog.Info("gallery synced",
		"component", "collection",
		"action", "sync",
		"resource", string(auth.ResourceGallery),
		"path", s.c.images.Root(),
		"count", n,
		"keep_notes", keepNotes,
	)
	return n, err
}
