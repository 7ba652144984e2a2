package collection

import (
	"slices"
	"strings"

	"github.com/hyperengineering/keepsake/internal/auth"
	"github.com/hyperengineering/keepsake/internal/store"
	"github.com/hyperengineering/keepsake/internal/types"
	"github.com/hyperengineering/keepsake/internal/validation"
)

// Ideas is the list of things to do together.
type Ideas struct {
	c *core
}

// List returns the ideas, most recent first.
func (s *Ideas) List() []types.Idea {
	var out []types.Idea
	s.c.doc.View(func(d *types.Document) {
		out = slices.Clone(d.Ideas)
	})
	return out
}

// Add inserts a planned idea at the head of the list.
func (s *Ideas) Add(p auth.Principal, text string) (Result[types.Idea], error) {
	const r, op = auth.ResourceIdeas, auth.OpAdd
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.Idea]{}, err
	}

	text = strings.TrimSpace(text)
	var v validation.Collector
	validation.ValidateText(&v, "text", text, true)
	if err := v.Err(); err != nil {
		return Result[types.Idea]{}, s.c.reject(r, op, err)
	}

	idea := types.Idea{
		ID:        store.NewID(),
		Text:      text,
		Status:    types.StatusPlanned,
		Timestamp: s.c.stamp(),
	}
	saveErr, err := commit(s.c, s.c.doc, DocumentPrimary, r, op, func(d *types.Document) error {
		d.Ideas = slices.Insert(d.Ideas, 0, idea)
		return nil
	})
	if err != nil {
		return Result[types.Idea]{}, err
	}

	logMutation(r, op, p, 0, idea.ID)
	return Result[types.Idea]{Index: 0, Entry: idea, SaveErr: saveErr}, nil
}

// Edit replaces the text of the idea at ref and refreshes its timestamp.
// Text identical to the current text is rejected.
func (s *Ideas) Edit(p auth.Principal, ref Ref, text string) (Result[types.Idea], error) {
	const r, op = auth.ResourceIdeas, auth.OpEdit
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.Idea]{}, err
	}

	text = strings.TrimSpace(text)
	var edited types.Idea
	saveErr, err := commit(s.c, s.c.doc, DocumentPrimary, r, op, func(d *types.Document) error {
		if err := locate(r, len(d.Ideas), ref, func(i int) string { return d.Ideas[i].ID }); err != nil {
			return err
		}
		idea := &d.Ideas[ref.Index]

		var v validation.Collector
		validation.ValidateText(&v, "text", text, true)
		if !v.HasErrors() {
			v.Add(validation.ValidateChanged("text", idea.Text, text))
		}
		if err := v.Err(); err != nil {
			return err
		}

		idea.Text = text
		idea.Timestamp = s.c.stamp()
		edited = *idea
		return nil
	})
	if err != nil {
		return Result[types.Idea]{}, err
	}

	logMutation(r, op, p, ref.Index, edited.ID)
	return Result[types.Idea]{Index: ref.Index, Entry: edited, SaveErr: saveErr}, nil
}

// SetStatus moves the idea at ref to status, which must be Planned or
// Completed.
func (s *Ideas) SetStatus(p auth.Principal, ref Ref, status types.IdeaStatus) (Result[types.Idea], error) {
	const r, op = auth.ResourceIdeas, auth.OpStatus
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.Idea]{}, err
	}

	var edited types.Idea
	saveErr, err := commit(s.c, s.c.doc, DocumentPrimary, r, op, func(d *types.Document) error {
		if err := locate(r, len(d.Ideas), ref, func(i int) string { return d.Ideas[i].ID }); err != nil {
			return err
		}
		if !status.Valid() {
			var v validation.Collector
			v.Add(validation.ValidateEnum("status", string(status),
				[]string{string(types.StatusPlanned), string(types.StatusCompleted)}))
			return v.Err()
		}
		d.Ideas[ref.Index].Status = status
		edited = d.Ideas[ref.Index]
		return nil
	})
	if err != nil {
		return Result[types.Idea]{}, err
	}

	logMutation(r, op, p, ref.Index, edited.ID)
	return Result[types.Idea]{Index: ref.Index, Entry: edited, SaveErr: saveErr}, nil
}

// Delete removes the idea at ref.
func (s *Ideas) Delete(p auth.Principal, ref Ref) (Result[types.Idea], error) {
	const r, op = auth.ResourceIdeas, auth.OpDelete
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.Idea]{}, err
	}

	var removed types.Idea
	saveErr, err := commit(s.c, s.c.doc, DocumentPrimary, r, op, func(d *types.Document) error {
		if err := locate(r, len(d.Ideas), ref, func(i int) string { return d.Ideas[i].ID }); err != nil {
			return err
		}
		removed = d.Ideas[ref.Index]
		d.Ideas = slices.Delete(d.Ideas, ref.Index, ref.Index+1)
		return nil
	})
	if err != nil {
		return Result[types.Idea]{}, err
	}

	logMutation(r, op, p, ref.Index, removed.ID)
	return Result[types.Idea]{Index: ref.Index, Entry: removed, SaveErr: saveErr}, nil
}
