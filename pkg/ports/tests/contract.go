package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/mooncrowned/storyed/pkg/ports"
)

// StorageContractTest is a reusable suite that verifies an adapter complies
// with ports.Storage. The adapter must start empty.
func StorageContractTest(t *testing.T, store ports.Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("ReadFile_NotFound", func(t *testing.T) {
		_, err := store.ReadFile(ctx, "missing.json")
		if !errors.Is(err, ports.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("List_MissingDir", func(t *testing.T) {
		_, err := store.List(ctx, "Nodes")
		if !errors.Is(err, ports.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("WriteRead_RoundTrip", func(t *testing.T) {
		if err := store.EnsureDir(ctx, "Nodes"); err != nil {
			t.Fatalf("EnsureDir failed: %v", err)
		}
		want := []byte(`{"id": 0}`)
		if err := store.WriteFile(ctx, "Nodes/000.json", want); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		got, err := store.ReadFile(ctx, "Nodes/000.json")
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if string(got) != string(want) {
			t.Errorf("content mismatch: got %q, want %q", got, want)
		}
	})

	t.Run("WriteFile_Replaces", func(t *testing.T) {
		if err := store.WriteFile(ctx, "Nodes/000.json", []byte("second")); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		got, err := store.ReadFile(ctx, "Nodes/000.json")
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if string(got) != "second" {
			t.Errorf("expected replaced content, got %q", got)
		}
	})

	t.Run("List_Entries", func(t *testing.T) {
		if err := store.EnsureDir(ctx, "Nodes/sub"); err != nil {
			t.Fatalf("EnsureDir failed: %v", err)
		}
		entries, err := store.List(ctx, "Nodes")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		var files, dirs int
		for _, e := range entries {
			if e.IsDir {
				dirs++
			} else {
				files++
			}
		}
		if files != 1 || dirs != 1 {
			t.Errorf("expected 1 file and 1 dir, got %d files and %d dirs", files, dirs)
		}
	})

	t.Run("EnsureDir_Idempotent", func(t *testing.T) {
		if err := store.EnsureDir(ctx, "Photos"); err != nil {
			t.Fatalf("first EnsureDir failed: %v", err)
		}
		if err := store.EnsureDir(ctx, "Photos"); err != nil {
			t.Fatalf("second EnsureDir failed: %v", err)
		}
	})
}
