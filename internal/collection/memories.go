package collection

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/hyperengineering/keepsake/internal/auth"
	"github.com/hyperengineering/keepsake/internal/store"
	"github.com/hyperengineering/keepsake/internal/types"
	"github.com/hyperengineering/keepsake/internal/validation"
)

// MemoryInput carries the editable fields of a memory. An empty Category
// means the default category on add and no change on edit.
type MemoryInput struct {
	Text     string
	Category string
}

// Memories is the list of dated recollections, each with an optional photo
// stored in the photos directory.
type Memories struct {
	c *core
}

// List returns the memories, most recent first.
func (s *Memories) List() []types.Memory {
	var out []types.Memory
	s.c.doc.View(func(d *types.Document) {
		out = slices.Clone(d.Memories)
	})
	return out
}

// Add stores the optional photo and inserts the memory at the head of the
// list. A photo that cannot be stored fails the add and leaves the list
// unchanged.
func (s *Memories) Add(p auth.Principal, in MemoryInput, photo *Attachment) (Result[types.Memory], error) {
	const r, op = auth.ResourceMemories, auth.OpAdd
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.Memory]{}, err
	}

	text := strings.TrimSpace(in.Text)
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = types.DefaultCategory
	}
	var v validation.Collector
	validation.ValidateText(&v, "text", text, true)
	validation.ValidateText(&v, "category", category, false)
	if err := v.Err(); err != nil {
		return Result[types.Memory]{}, s.c.reject(r, op, err)
	}

	var filename string
	if photo != nil && strings.TrimSpace(photo.Filename) != "" {
		name, err := s.c.photos.Save(photo.Filename, photo.Reader)
		if err != nil {
			return Result[types.Memory]{}, s.c.reject(r, op, &FileError{Op: "save", Name: photo.Filename, Err: err})
		}
		filename = name
	}

	memory := types.Memory{
		ID:        store.NewID(),
		Text:      text,
		Category:  category,
		Timestamp: s.c.stamp(),
		Photo:     filename,
	}
	saveErr, err := commit(s.c, s.c.doc, DocumentPrimary, r, op, func(d *types.Document) error {
		d.Memories = slices.Insert(d.Memories, 0, memory)
		return nil
	})
	if err != nil {
		return Result[types.Memory]{}, err
	}

	logMutation(r, op, p, 0, memory.ID)
	return Result[types.Memory]{Index: 0, Entry: memory, SaveErr: saveErr}, nil
}

// Edit replaces the text, and the category when one is given, of the memory
// at ref. The text must differ from the current text.
func (s *Memories) Edit(p auth.Principal, ref Ref, in MemoryInput) (Result[types.Memory], error) {
	const r, op = auth.ResourceMemories, auth.OpEdit
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.Memory]{}, err
	}

	text := strings.TrimSpace(in.Text)
	category := strings.TrimSpace(in.Category)
	var edited types.Memory
	saveErr, err := commit(s.c, s.c.doc, DocumentPrimary, r, op, func(d *types.Document) error {
		if err := locate(r, len(d.Memories), ref, func(i int) string { return d.Memories[i].ID }); err != nil {
			return err
		}
		m := &d.Memories[ref.Index]

		var v validation.Collector
		validation.ValidateText(&v, "text", text, true)
		validation.ValidateText(&v, "category", category, false)
		if !v.HasErrors() {
			v.Add(validation.ValidateChanged("text", m.Text, text))
		}
		if err := v.Err(); err != nil {
			return err
		}

		m.Text = text
		if category != "" {
			m.Category = category
		}
		m.Timestamp = s.c.stamp()
		edited = *m
		return nil
	})
	if err != nil {
		return Result[types.Memory]{}, err
	}

	logMutation(r, op, p, ref.Index, edited.ID)
	return Result[types.Memory]{Index: ref.Index, Entry: edited, SaveErr: saveErr}, nil
}

// Delete removes the memory at ref, then its photo. A photo that cannot be
// removed is reported as FileErr; the memory is gone either way.
func (s *Memories) Delete(p auth.Principal, ref Ref) (Result[types.Memory], error) {
	const r, op = auth.ResourceMemories, auth.OpDelete
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.Memory]{}, err
	}

	var removed types.Memory
	saveErr, err := commit(s.c, s.c.doc, DocumentPrimary, r, op, func(d *types.Document) error {
		if err := locate(r, len(d.Memories), ref, func(i int) string { return d.Memories[i].ID }); err != nil {
			return err
		}
		removed = d.Memories[ref.Index]
		d.Memories = slices.Delete(d.Memories, ref.Index, ref.Index+1)
		return nil
	})
	if err != nil {
		return Result[types.Memory]{}, err
	}

	res := Result[types.Memory]{Index: ref.Index, Entry: removed, SaveErr: saveErr}
	if err := s.c.photos.Remove(removed.Photo); err != nil {
		res.FileErr = &FileError{Op: "remove", Name: removed.Photo, Err: err}
		slog.Warn("photo not removed",
			"component", "collection",
			"action", string(op),
			"resource", string(r),
			"path", removed.Photo,
			"error", err,
		)
	}

	logMutation(r, op, p, ref.Index, removed.ID)
	return res, nil
}
