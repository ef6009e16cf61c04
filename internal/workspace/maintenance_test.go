package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"workbench/internal/logging"
)

const staleName = "image_resize_0123456789abcdef0123456789abcdef"

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldWorkspacesOnly(t *testing.T) {
	root := t.TempDir()
	oldTime := time.Now().Add(-2 * time.Hour)

	oldDir := filepath.Join(root, staleName)
	foreignDir := filepath.Join(root, "keep-me")
	recentDir := filepath.Join(root, "pdf_merge_fedcba9876543210fedcba9876543210")
	for _, dir := range []string{oldDir, foreignDir, recentDir} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	for _, dir := range []string{oldDir, foreignDir} {
		if err := os.Chtimes(dir, oldTime, oldTime); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	result := CleanStale(context.Background(), root, time.Hour, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("unexpected removals: %v", result.Removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old workspace should have been removed")
	}
	for _, dir := range []string{foreignDir, recentDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("%s should still exist", dir)
		}
	}
}

func TestListReportsSizes(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, staleName)
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "input.jpg"), make([]byte, 42), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	dirs, err := List(root)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(dirs) != 1 {
		t.Fatalf("expected 1 directory, got %d", len(dirs))
	}
	if dirs[0].Name != staleName || dirs[0].Size != 42 {
		t.Fatalf("unexpected entry %+v", dirs[0])
	}

	missing, err := List(filepath.Join(root, "missing"))
	if err != nil || len(missing) != 0 {
		t.Fatalf("expected empty listing for missing root, got %v %v", missing, err)
	}
}
