// Package uploads stores user-supplied files under generated names.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNoFile indicates an upload without a file name.
	ErrNoFile = errors.New("no file provided")
	// ErrTooLarge indicates an upload over the configured size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrInvalidName indicates a stored name that is not a plain file name.
	ErrInvalidName = errors.New("invalid file name")
)

// Dir is a directory of uploaded files.
type Dir struct {
	root     string
	maxBytes int64
}

// NewDir creates root if needed. maxBytes <= 0 disables the size limit.
func NewDir(root string, maxBytes int64) (*Dir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Dir{root: root, maxBytes: maxBytes}, nil
}

// Root returns the directory path.
func (d *Dir) Root() string {
	return d.root
}

// Save copies r into the directory under a generated name derived from
// original and returns that name. A partially written file is removed.
func (d *Dir) Save(original string, r io.Reader) (string, error) {
	if strings.TrimSpace(original) == "" {
		return "", ErrNoFile
	}

	name := GenerateName(original)
	path := filepath.Join(d.root, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}

	src := r
	if d.maxBytes > 0 {
		src = io.LimitReader(r, d.maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", copyErr)
	case closeErr != nil:
		os.Remove(path)
		return "", fmt.Errorf("close upload: %w", closeErr)
	case d.maxBytes > 0 && n > d.maxBytes:
		os.Remove(path)
		return "", ErrTooLarge
	}
	return name, nil
}

// Remove deletes a stored file. An empty name or an already missing file is
// not an error.
func (d *Dir) Remove(name string) error {
	if name == "" {
		return nil
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return ErrInvalidName
	}
	err := os.Remove(filepath.Join(d.root, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a stored file is present.
func (d *Dir) Exists(name string) bool {
	if name == "" || filepath.Base(name) != name {
		return false
	}
	info, err := os.Stat(filepath.Join(d.root, name))
	return err == nil && info.Mode().IsRegular()
}

// GenerateName prefixes the sanitised original name with a random hex id.
func GenerateName(original string) string {
	prefix := strings.ReplaceAll(uuid.NewString(), "-", "")
	clean := SanitizeFilename(original)
	if clean == "" {
		return prefix
	}
	return prefix + "_" + clean
}

// SanitizeFilename reduces a client file name to a safe ASCII base name:
// path separators and whitespace become underscores, anything outside
// [A-Za-z0-9._-] is dropped, and leading or trailing dots and underscores
// are trimmed.
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}
