package backup

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore(t *testing.T) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileStore(filepath.Join(dir, "nested", "backup.json"))

		doc := Document{
			"LEGACY":     {"TCLK_SEED": "00ff"},
			"TCLK_TABLE": {"0x0000": "abcd"},
		}
		if err := store.Save(doc); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		info, err := os.Stat(store.Path())
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("file mode = %o, want 600", perm)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.Len() != 2 || got["TCLK_TABLE"]["0x0000"] != "abcd" {
			t.Errorf("Load() = %v", got)
		}
	})

	t.Run("LoadNonExistent", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != nil {
			t.Errorf("Load() = %v, want nil for non-existent file", got)
		}
	})

	t.Run("LoadCorrupt", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "backup.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := NewFileStore(path).Load(); err == nil {
			t.Error("Load() should fail on malformed JSON")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "backup.json"))
		if err := store.Save(Document{}); err != nil {
			t.Fatal(err)
		}
		if err := store.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Errorf("Clear() on missing file error = %v", err)
		}
		if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
			t.Error("file should be gone after Clear()")
		}
	})
}
