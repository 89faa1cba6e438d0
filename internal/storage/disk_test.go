package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.db"), make([]byte, 100), 0600); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "uploads")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "clip.mp4"), make([]byte, 50), 0600); err != nil {
		t.Fatal(err)
	}

	n, err := DiskUsageBytes(filepath.Join(dir, "a.db"), sub, filepath.Join(dir, "missing"), "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 150 {
		t.Errorf("DiskUsageBytes = %d, want 150", n)
	}
}
