package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mooncrowned/storyed/pkg/ports/tests"
)

func TestStorageContract(t *testing.T) {
	tests.StorageContractTest(t, New(t.TempDir()))
}

func TestWriteFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	ctx := context.Background()

	if err := s.WriteFile(ctx, "node.json", []byte(`{"id": 0}`)); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "node.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only node.json, found %v", names)
	}
}

func TestWriteFileCreatesParents(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if err := s.WriteFile(context.Background(), "Nodes/000.json", []byte("{}")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Nodes", "000.json")); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
}
