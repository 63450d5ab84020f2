package local

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sakif/recipe-api/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), "/media/")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNew_EmptyRoot(t *testing.T) {
	if _, err := New("", "/media/"); err == nil {
		t.Fatal("New() should reject an empty root")
	}
}

func TestSaveAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := "uploads/recipe/abc.png"
	data := []byte("\x89PNG fake")

	if err := s.Save(ctx, key, data, "image/png"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !s.Exists(key) {
		t.Fatal("Exists() = false after Save")
	}

	got, err := os.ReadFile(filepath.Join(s.Root(), "uploads", "recipe", "abc.png"))
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("file contents = %q, want %q", got, data)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if s.Exists(key) {
		t.Error("Exists() = true after Delete")
	}

	// Deleting again is a no-op.
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestSave_Rejects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "uploads/recipe/empty.png", nil, "image/png"); err == nil {
		t.Error("Save() accepted empty data")
	}
	if err := s.Save(ctx, "../escape.png", []byte("x"), "image/png"); !errors.Is(err, storage.ErrInvalidKey) {
		t.Errorf("Save() escaping key error = %v, want ErrInvalidKey", err)
	}
}

func TestURL(t *testing.T) {
	s := newTestStore(t)

	if got := s.URL("uploads/recipe/abc.png"); got != "/media/uploads/recipe/abc.png" {
		t.Errorf("URL() = %q", got)
	}
}
