package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/tidwall/jsonc"

	"github.com/hyperengineering/keepsake/internal/types"
)

// DocumentStore holds the primary document: users, ideas, memories, notes
// and gallery metadata.
type DocumentStore = File[types.Document]

// OpenDocument loads the primary document from path.
func OpenDocument(path string) (*DocumentStore, LoadInfo) {
	return Open(path, DecodeDocument, DefaultDocument)
}

// NewID returns a new sortable entry identifier.
func NewID() string {
	return ulid.Make().String()
}

// Timestamp formats t the way every entry timestamp is stored.
func Timestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

// DefaultDocument is the document used when none is persisted or the
// persisted one cannot be read.
func DefaultDocument() types.Document {
	now := Timestamp(time.Now())
	return types.Document{
		SchemaVersion: CurrentSchemaVersion,
		Users: []types.User{
			{Username: "BUNBUN", Password: "09132025", Role: types.RolePrimary},
			{Username: "HONEYBEE", Password: "09132025", Role: types.RoleSecondary},
		},
		Ideas: []types.Idea{
			{ID: NewID(), Text: "Go for a picnic", Status: types.StatusPlanned, Timestamp: now},
			{ID: NewID(), Text: "Watch a movie together", Status: types.StatusPlanned, Timestamp: now},
		},
		Memories: []types.Memory{
			{ID: NewID(), Text: "Our first date", Category: types.DefaultCategory, Timestamp: now},
			{ID: NewID(), Text: "Trip to the beach", Category: types.DefaultCategory, Timestamp: now},
		},
		Notes: []types.Note{
			{ID: NewID(), Text: "Don’t forget the anniversary gift!", Timestamp: now},
			{ID: NewID(), Text: "Plan next weekend", Timestamp: now},
		},
		Gallery: []types.GalleryEntry{},
	}
}

// DecodeDocument parses a persisted primary document, tolerating comments
// and trailing commas, and upgrades legacy shapes. A document without any
// users is treated as malformed since nobody could sign in to it.
func DecodeDocument(data []byte) (types.Document, []string, error) {
	var raw rawDocument
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return types.Document{}, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw == nil {
		return types.Document{}, nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}

	applied, err := runMigrations(raw, documentMigrations)
	if err != nil {
		return types.Document{}, nil, err
	}

	var doc types.Document
	if err := json.Unmarshal(mustMarshal(raw), &doc); err != nil {
		return types.Document{}, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(doc.Users) == 0 {
		return types.Document{}, nil, fmt.Errorf("%w: no users", ErrMalformed)
	}

	if assignDocumentIDs(&doc) {
		applied = append(applied, "assign_ids")
	}
	normalizeDocument(&doc)
	doc.SchemaVersion = CurrentSchemaVersion

	return doc, applied, nil
}

// assignDocumentIDs gives every entry without an id a fresh one.
func assignDocumentIDs(doc *types.Document) bool {
	changed := false
	for i := range doc.Ideas {
		changed = ensureID(&doc.Ideas[i].ID) || changed
	}
	for i := range doc.Memories {
		changed = ensureID(&doc.Memories[i].ID) || changed
	}
	for i := range doc.Notes {
		changed = ensureID(&doc.Notes[i].ID) || changed
	}
	for i := range doc.Gallery {
		changed = ensureID(&doc.Gallery[i].ID) || changed
	}
	return changed
}

func ensureID(id *string) bool {
	if *id != "" {
		return false
	}
	*id = NewID()
	return true
}

// normalizeDocument replaces nil lists with empty ones so saved documents
// always carry every key as a list.
func normalizeDocument(doc *types.Document) {
	if doc.Ideas == nil {
		doc.Ideas = []types.Idea{}
	}
	if doc.Memories == nil {
		doc.Memories = []types.Memory{}
	}
	if doc.Notes == nil {
		doc.Notes = []types.Note{}
	}
	if doc.Gallery == nil {
		doc.Gallery = []types.GalleryEntry{}
	}
}
