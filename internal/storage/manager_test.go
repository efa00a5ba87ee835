// manager_test.go - Tests for the workspace store
package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func createTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestNewLocalStore(t *testing.T) {
	t.Run("creates workspace directory", func(t *testing.T) {
		workDir := filepath.Join(t.TempDir(), "work")

		if _, err := NewLocalStore(workDir); err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}

		if _, err := os.Stat(workDir); os.IsNotExist(err) {
			t.Error("Expected workspace directory to be created")
		}
	})
}

func TestLocalStore_Save(t *testing.T) {
	t.Run("saves file into its own workspace", func(t *testing.T) {
		store := createTestStore(t)

		content := "fake png bytes"
		info, err := store.Save("cat.png", strings.NewReader(content))
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		if info.ID == "" {
			t.Error("Expected ID to be set")
		}
		if info.Size != int64(len(content)) {
			t.Errorf("Expected size %d, got %d", len(content), info.Size)
		}
		if info.Status != "uploaded" {
			t.Errorf("Expected status 'uploaded', got %v", info.Status)
		}

		data, err := os.ReadFile(filepath.Join(store.workDir, info.ID, "cat.png"))
		if err != nil {
			t.Fatalf("Failed to read saved file: %v", err)
		}
		if string(data) != content {
			t.Errorf("Expected content %q, got %q", content, string(data))
		}
	})

	t.Run("rejects path-like names", func(t *testing.T) {
		store := createTestStore(t)

		for _, name := range []string{"", "../escape.png", "dir/file.png"} {
			if _, err := store.Save(name, strings.NewReader("x")); err == nil {
				t.Errorf("Expected error for name %q", name)
			}
		}
	})
}

func TestLocalStore_Paths(t *testing.T) {
	store := createTestStore(t)
	info, err := store.Save("photo.jpeg", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Failed to save file: %v", err)
	}

	in, err := store.GetFilePath(info.ID)
	if err != nil {
		t.Fatalf("GetFilePath failed: %v", err)
	}
	if filepath.Base(in) != "photo.jpeg" {
		t.Errorf("Expected input name photo.jpeg, got %s", filepath.Base(in))
	}

	out, err := store.OutputPath(info.ID)
	if err != nil {
		t.Fatalf("OutputPath failed: %v", err)
	}
	if filepath.Dir(out) != filepath.Dir(in) {
		t.Errorf("Expected output next to input, got %s and %s", out, in)
	}
	if filepath.Base(out) != "upscaled_photo.png" {
		t.Errorf("Expected upscaled_photo.png, got %s", filepath.Base(out))
	}

	if _, err := store.OutputPath("missing"); err == nil {
		t.Error("Expected error for unknown id")
	}
}

func TestLocalStore_Delete(t *testing.T) {
	store := createTestStore(t)
	info, _ := store.Save("a.png", strings.NewReader("data"))
	out, _ := store.OutputPath(info.ID)
	if err := os.WriteFile(out, []byte("result"), 0644); err != nil {
		t.Fatalf("Failed to write output: %v", err)
	}

	if err := store.Delete(info.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(store.workDir, info.ID)); !os.IsNotExist(err) {
		t.Error("Expected workspace to be removed")
	}
	if _, err := store.Get(info.ID); err == nil {
		t.Error("Expected metadata to be removed")
	}
	if err := store.Delete(info.ID); err == nil {
		t.Error("Expected error deleting twice")
	}
}

func TestLocalStore_List(t *testing.T) {
	store := createTestStore(t)
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		if _, err := store.Save(name, strings.NewReader(name)); err != nil {
			t.Fatalf("Failed to save %s: %v", name, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	list, err := store.List(2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(list))
	}
	if list[0].Name != "c.png" {
		t.Errorf("Expected newest first, got %s", list[0].Name)
	}
}

func TestLocalStore_CleanupOlderThan(t *testing.T) {
	store := createTestStore(t)

	fresh, _ := store.Save("fresh.png", strings.NewReader("x"))
	stale, _ := store.Save("stale.png", strings.NewReader("x"))

	// Orphan left behind by an earlier process
	orphan := filepath.Join(store.workDir, "orphan")
	if err := os.MkdirAll(orphan, 0755); err != nil {
		t.Fatalf("Failed to create orphan: %v", err)
	}

	old := time.Now().Add(-2 * time.Hour)
	for _, dir := range []string{filepath.Join(store.workDir, stale.ID), orphan} {
		if err := os.Chtimes(dir, old, old); err != nil {
			t.Fatalf("Failed to age %s: %v", dir, err)
		}
	}

	removed, err := store.CleanupOlderThan(time.Hour)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed workspaces, got %d", removed)
	}
	if _, err := store.Get(fresh.ID); err != nil {
		t.Error("Expected fresh workspace to survive")
	}
	if _, err := store.Get(stale.ID); err == nil {
		t.Error("Expected stale workspace to be forgotten")
	}
}

func TestOutputName(t *testing.T) {
	tests := map[string]string{
		"photo.jpg":      "upscaled_photo.png",
		"archive.tar.gz": "upscaled_archive.tar.png",
		"noext":          "upscaled_noext.png",
		".png":           "upscaled_.png.png",
	}
	for in, want := range tests {
		if got := OutputName(in); got != want {
			t.Errorf("OutputName(%q) = %q, want %q", in, got, want)
		}
	}
}
