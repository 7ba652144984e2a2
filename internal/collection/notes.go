package collection

import (
	"slices"
	"strings"

	"github.com/hyperengineering/keepsake/internal/auth"
	"github.com/hyperengineering/keepsake/internal/store"
	"github.com/hyperengineering/keepsake/internal/types"
	"github.com/hyperengineering/keepsake/internal/validation"
)

// Notes is the list of short reminders.
type Notes struct {
	c *core
}

// List returns the notes, most recent first.
func (s *Notes) List() []types.Note {
	var out []types.Note
	s.c.doc.View(func(d *types.Document) {
		out = slices.Clone(d.Notes)
	})
	return out
}

// Add inserts a note at the head of the list.
func (s *Notes) Add(p auth.Principal, text string) (Result[types.Note], error) {
	const r, op = auth.ResourceNotes, auth.OpAdd
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.Note]{}, err
	}

	text = strings.TrimSpace(text)
	var v validation.Collector
	validation.ValidateText(&v, "text", text, true)
	if err := v.Err(); err != nil {
		return Result[types.Note]{}, s.c.reject(r, op, err)
	}

	note := types.Note{ID: store.NewID(), Text: text, Timestamp: s.c.stamp()}
	saveErr, err := commit(s.c, s.c.doc, DocumentPrimary, r, op, func(d *types.Document) error {
		d.Notes = slices.Insert(d.Notes, 0, note)
		return nil
	})
	if err != nil {
		return Result[types.Note]{}, err
	}

	logMutation(r, op, p, 0, note.ID)
	return Result[types.Note]{Index: 0, Entry: note, SaveErr: saveErr}, nil
}

// Edit replaces the text of the note at ref and refreshes its timestamp.
func (s *Notes) Edit(p auth.Principal, ref Ref, text string) (Result[types.Note], error) {
	const r, op = auth.ResourceNotes, auth.OpEdit
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.Note]{}, err
	}

	text = strings.TrimSpace(text)
	var edited types.Note
	saveErr, err := commit(s.c, s.c.doc, DocumentPrimary, r, op, func(d *types.Document) error {
		if err := locate(r, len(d.Notes), ref, func(i int) string { return d.Notes[i].ID }); err != nil {
			return err
		}
		note := &d.Notes[ref.Index]

		var v validation.Collector
		validation.ValidateText(&v, "text", text, true)
		if !v.HasErrors() {
			v.Add(validation.ValidateChanged("text", note.Text, text))
		}
		if err := v.Err(); err != nil {
			return err
		}

		note.Text = text
		note.Timestamp = s.c.stamp()
		edited = *note
		return nil
	})
	if err != nil {
		return Result[types.Note]{}, err
	}

	logMutation(r, op, p, ref.Index, edited.ID)
	return Result[types.Note]{Index: ref.Index, Entry: edited, SaveErr: saveErr}, nil
}

// Delete removes the note at ref.
func (s *Notes) Delete(p auth.Principal, ref Ref) (Result[types.Note], error) {
	const r, op = auth.ResourceNotes, auth.OpDelete
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.Note]{}, err
	}

	var removed types.Note
	saveErr, err := commit(s.c, s.c.doc, DocumentPrimary, r, op, func(d *types.Document) error {
		if err := locate(r, len(d.Notes), ref, func(i int) string { return d.Notes[i].ID }); err != nil {
			return err
		}
		removed = d.Notes[ref.Index]
		d.Notes = slices.Delete(d.Notes, ref.Index, ref.Index+1)
		return nil
	})
	if err != nil {
		return Result[types.Note]{}, err
	}

	logMutation(r, op, p, ref.Index, removed.ID)
	return Result[types.Note]{Index: ref.Index, Entry: removed, SaveErr: saveErr}, nil
}
