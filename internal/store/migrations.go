package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hyperengineering/keepsake/internal/types"
)

// CurrentSchemaVersion is written to every saved primary document.
// Version 1 documents had plain-string lists and no entry ids.
const CurrentSchemaVersion = 2

// rawDocument is the undecoded top level of the primary document.
type rawDocument map[string]json.RawMessage

// migration upgrades one legacy shape. Every migration is idempotent and
// runs on every load; it reports whether it changed anything.
type migration struct {
	name  string
	apply func(raw rawDocument) (bool, error)
}

// documentMigrations run in order against the raw document before decoding.
var documentMigrations = []migration{
	{name: "ideas_to_objects", apply: migrateIdeas},
	{name: "memories_to_objects", apply: migrateMemories},
	{name: "notes_to_objects", apply: migrateNotes},
}

// runMigrations applies migrations in order and returns the names of those
// that changed the document.
func runMigrations(raw rawDocument, migrations []migration) ([]string, error) {
	var applied []string
	for _, m := range migrations {
		changed, err := m.apply(raw)
		if err != nil {
			return applied, fmt.Errorf("migration %s: %w", m.name, err)
		}
		if changed {
			applied = append(applied, m.name)
		}
	}
	return applied, nil
}

// migrateIdeas turns plain-string ideas into {text, status: Planned} and
// fills a missing status on object ideas.
func migrateIdeas(raw rawDocument) (bool, error) {
	return rewriteList(raw, "ideas", func(elem json.RawMessage) (json.RawMessage, bool, error) {
		if s, ok := asString(elem); ok {
			return mustMarshal(map[string]any{
				"text":   s,
				"status": types.StatusPlanned,
			}), true, nil
		}
		return fillMissing(elem, map[string]any{"status": types.StatusPlanned})
	})
}

// migrateMemories turns plain-string memories into objects in the default
// category.
func migrateMemories(raw rawDocument) (bool, error) {
	return rewriteList(raw, "memories", func(elem json.RawMessage) (json.RawMessage, bool, error) {
		if s, ok := asString(elem); ok {
			return mustMarshal(map[string]any{
				"text":      s,
				"category":  types.DefaultCategory,
				"timestamp": "",
				"photo":     "",
			}), true, nil
		}
		return fillMissing(elem, map[string]any{"category": types.DefaultCategory})
	})
}

// migrateNotes turns plain-string notes into objects.
func migrateNotes(raw rawDocument) (bool, error) {
	return rewriteList(raw, "notes", func(elem json.RawMessage) (json.RawMessage, bool, error) {
		if s, ok := asString(elem); ok {
			return mustMarshal(map[string]any{
				"text":      s,
				"timestamp": "",
			}), true, nil
		}
		return fillMissing(elem, nil)
	})
}

// rewriteList applies fn to every element of the list stored under key.
// A missing or null list is left alone.
func rewriteList(raw rawDocument, key string, fn func(json.RawMessage) (json.RawMessage, bool, error)) (bool, error) {
	data, ok := raw[key]
	if !ok || isNull(data) {
		return false, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return false, fmt.Errorf("%w: %s is not a list", ErrMalformed, key)
	}

	changed := false
	for i, elem := range elems {
		next, did, err := fn(elem)
		if err != nil {
			return false, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		if did {
			elems[i] = next
			changed = true
		}
	}

	if changed {
		raw[key] = mustMarshal(elems)
	}
	return changed, nil
}

// fillMissing sets absent keys of a JSON object to the given defaults.
// Anything other than an object is malformed.
func fillMissing(elem json.RawMessage, defaults map[string]any) (json.RawMessage, bool, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(elem, &obj); err != nil || obj == nil {
		return nil, false, fmt.Errorf("%w: expected string or object", ErrMalformed)
	}

	changed := false
	for k, v := range defaults {
		if cur, ok := obj[k]; ok && !isNull(cur) && !isEmptyString(cur) {
			continue
		}
		obj[k] = mustMarshal(v)
		changed = true
	}
	if !changed {
		return elem, false, nil
	}
	return mustMarshal(obj), true, nil
}

func asString(elem json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(elem)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false
	}
	return s, true
}

func isNull(data json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func isEmptyString(data json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte(`""`))
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// Only maps, slices, strings and raw messages reach here.
		panic(fmt.Sprintf("marshal migration value: %v", err))
	}
	return data
}
