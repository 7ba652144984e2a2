package gallery

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperengineering/keepsake/internal/types"
)

// writeFile creates name in dir with the given modification time.
func writeFile(t *testing.T, dir, name string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(name), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func filenames(entries []types.GalleryEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Filename
	}
	return names
}

func TestScan_OrdersNewestFirst(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, 9, 13, 12, 0, 0, 0, time.UTC)
	writeFile(t, dir, "old.jpg", base)
	writeFile(t, dir, "new.jpg", base.Add(2*time.Hour))
	writeFile(t, dir, "mid.jpg", base.Add(time.Hour))

	entries, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	want := []string{"new.jpg", "mid.jpg", "old.jpg"}
	got := filenames(entries)
	if len(got) != len(want) {
		t.Fatalf("Scan() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Scan()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	for _, e := range entries {
		if e.ID == "" || e.Note != "" {
			t.Errorf("entry %+v: want id set and empty note", e)
		}
	}
	if entries[0].UploadedAt != base.Add(2*time.Hour).Local().Format(time.RFC3339) {
		t.Errorf("UploadedAt = %q", entries[0].UploadedAt)
	}
}

func TestScan_TiesBrokenByNameDescending(t *testing.T) {
	dir := t.TempDir()
	same := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, dir, "a.jpg", same)
	writeFile(t, dir, "c.jpg", same)
	writeFile(t, dir, "b.jpg", same)

	entries, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	got := filenames(entries)
	want := []string{"c.jpg", "b.jpg", "a.jpg"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Scan() = %v, want %v", got, want)
		}
	}
}

func TestScan_SkipsDirectoriesAndSymlinks(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFile(t, dir, "photo.png", now)
	if err := os.Mkdir(filepath.Join(dir, "thumbs"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "photo.png"), filepath.Join(dir, "link.png")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	entries, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got := filenames(entries); len(got) != 1 || got[0] != "photo.png" {
		t.Errorf("Scan() = %v, want [photo.png]", got)
	}
}

func TestScan_MissingDirectory(t *testing.T) {
	entries, err := Scan(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Scan() = %v, want empty", entries)
	}
}

func TestReconcile(t *testing.T) {
	scanned := []types.GalleryEntry{
		{ID: "new-1", Filename: "b.jpg", UploadedAt: "t2"},
		{ID: "new-2", Filename: "a.jpg", UploadedAt: "t1"},
	}
	persisted := []types.GalleryEntry{
		{ID: "old-a", Filename: "a.jpg", Note: "beach day"},
		{ID: "old-gone", Filename: "deleted.jpg", Note: "gone"},
	}

	t.Run("notes reset", func(t *testing.T) {
		got := Reconcile(scanned, persisted, false)
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if got[1].ID != "old-a" {
			t.Errorf("got[1].ID = %q, want persisted id kept", got[1].ID)
		}
		if got[1].Note != "" {
			t.Errorf("got[1].Note = %q, want reset", got[1].Note)
		}
		if got[0].ID != "new-1" {
			t.Errorf("got[0].ID = %q, want scanned id", got[0].ID)
		}
	})

	t.Run("notes kept", func(t *testing.T) {
		got := Reconcile(scanned, persisted, true)
		if got[1].Note != "beach day" {
			t.Errorf("got[1].Note = %q, want kept", got[1].Note)
		}
	})
}
