// Package collection implements the ordered, index-addressed resource lists
// (ideas, memories, notes, gallery and music) on top of the document stores.
//
// Every mutation follows the same steps: authorize, then validate, then
// mutate and persist under the owning store's lock. A failed write is not an
// error; it is reported on the Result as SaveErr and the change stays in
// memory.
package collection

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/hyperengineering/keepsake/internal/auth"
	"github.com/hyperengineering/keepsake/internal/metrics"
	"github.com/hyperengineering/keepsake/internal/store"
	"github.com/hyperengineering/keepsake/internal/types"
	"github.com/hyperengineering/keepsake/internal/uploads"
)

var (
	// ErrNotFound indicates an index outside the current list bounds.
	ErrNotFound = errors.New("entry not found")
	// ErrConflict indicates that the entry at an index is not the one the
	// caller expected, usually because the list changed underneath it.
	ErrConflict = errors.New("entry changed")
)

// Document names used for metrics and logs.
const (
	DocumentPrimary = "document"
	DocumentMusic   = "music"
)

// FileError reports a failure to store or remove an attached file.
type FileError struct {
	Op   string
	Name string
	Err  error
}

func (e *FileError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s file: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s file %s: %v", e.Op, e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Recorder receives mutation outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	Mutation(resource, op, outcome string)
	SaveFailed(document string)
}

type nopRecorder struct{}

func (nopRecorder) Mutation(string, string, string) {}
func (nopRecorder) SaveFailed(string)               {}

// Ref addresses a list entry by position. When ID is set the entry at Index
// must carry that id or the operation fails with ErrConflict.
type Ref struct {
	Index int
	ID    string
}

// At addresses the entry at index i without an identity check.
func At(i int) Ref {
	return Ref{Index: i}
}

// Attachment is an uploaded file accompanying an add.
type Attachment struct {
	Filename string
	Reader   io.Reader
}

// Result describes a successful mutation. SaveErr is set when the change is
// in memory but could not be written to disk. FileErr is set when a deleted
// entry's file could not be removed.
type Result[T any] struct {
	Index   int
	Entry   T
	SaveErr error
	FileErr error
}

// Warnings returns the non-fatal failures in display form.
func (r Result[T]) Warnings() []string {
	var w []string
	if r.SaveErr != nil {
		w = append(w, "change applied but not saved: "+r.SaveErr.Error())
	}
	if r.FileErr != nil {
		w = append(w, "entry removed but its file was not: "+r.FileErr.Error())
	}
	return w
}

// Config wires a Service.
type Config struct {
	Document *store.DocumentStore
	Music    *store.MusicStore
	Policy   *auth.Policy
	Photos   *uploads.Dir
	Images   *uploads.Dir
	Recorder Recorder
}

// Service groups the five collections.
type Service struct {
	Ideas    *Ideas
	Memories *Memories
	Notes    *Notes
	Gallery  *Gallery
	Music    *Music

	core *core
}

// New creates the collections over cfg's stores.
func New(cfg Config) *Service {
	c := &core{
		doc:      cfg.Document,
		music:    cfg.Music,
		policy:   cfg.Policy,
		photos:   cfg.Photos,
		images:   cfg.Images,
		recorder: cfg.Recorder,
		now:      time.Now,
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	return &Service{
		Ideas:    &Ideas{c: c},
		Memories: &Memories{c: c},
		Notes:    &Notes{c: c},
		Gallery:  &Gallery{c: c},
		Music:    &Music{c: c},
		core:     c,
	}
}

// Permissions lists what p may change, per resource.
func (s *Service) Permissions(p auth.Principal) map[auth.Resource][]auth.Op {
	return s.core.policy.Permissions(p.Role)
}

// Users returns a copy of the static user table.
func (s *Service) Users() []types.User {
	var users []types.User
	s.core.doc.View(func(d *types.Document) {
		users = slices.Clone(d.Users)
	})
	return users
}

// Counts returns the size of every collection.
func (s *Service) Counts() types.Counts {
	var c types.Counts
	s.core.doc.View(func(d *types.Document) {
		c.Ideas = len(d.Ideas)
		c.Memories = len(d.Memories)
		c.Notes = len(d.Notes)
		c.Gallery = len(d.Gallery)
	})
	s.core.music.View(func(p *types.Playlist) {
		c.Music = len(*p)
	})
	return c
}

// core holds what every collection shares.
type core struct {
	doc      *store.DocumentStore
	music    *store.MusicStore
	policy   *auth.Policy
	photos   *uploads.Dir
	images   *uploads.Dir
	recorder Recorder
	now      func() time.Time
}

func (c *core) stamp() string {
	return store.Timestamp(c.now())
}

func (c *core) authorize(p auth.Principal, r auth.Resource, op auth.Op) error {
	if err := c.policy.Authorize(p, r, op); err != nil {
		c.recorder.Mutation(string(r), string(op), metrics.OutcomeRejected)
		slog.Info("mutation forbidden",
			"component", "collection",
			"action", string(op),
			"resource", string(r),
			"username", p.Username,
			"role", p.Role,
		)
		return err
	}
	return nil
}

func (c *core) reject(r auth.Resource, op auth.Op, err error) error {
	c.recorder.Mutation(string(r), string(op), metrics.OutcomeRejected)
	return err
}

// commit runs fn under f's lock and persists the result. A failed write is
// returned as saveErr; anything fn returns is returned as err.
func commit[T any](c *core, f *store.File[T], document string, r auth.Resource, op auth.Op, fn func(v *T) error) (saveErr, err error) {
	err = f.Update(fn)

	var pe *store.PersistenceError
	switch {
	case errors.As(err, &pe):
		c.recorder.SaveFailed(document)
		c.recorder.Mutation(string(r), string(op), metrics.OutcomeUnsaved)
		return err, nil
	case err != nil:
		return nil, c.reject(r, op, err)
	}
	c.recorder.Mutation(string(r), string(op), metrics.OutcomeOK)
	return nil, nil
}

// locate checks ref against a list of n entries whose ids are given by idAt.
func locate(r auth.Resource, n int, ref Ref, idAt func(i int) string) error {
	if ref.Index < 0 || ref.Index >= n {
		return fmt.Errorf("%s %d: %w", r, ref.Index, ErrNotFound)
	}
	if ref.ID != "" && idAt(ref.Index) != ref.ID {
		return fmt.Errorf("%s %d is not %s: %w", r, ref.Index, ref.ID, ErrConflict)
	}
	return nil
}

func logMutation(r auth.Resource, op auth.Op, p auth.Principal, index int, id string) {
	slog.Info("mutation applied",
		"component", "collection",
		"action", string(op),
		"resource", string(r),
		"username", p.Username,
		"index", index,
		"id", id,
	)
}
