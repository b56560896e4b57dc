package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-leadscan")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-leadscan" {
			t.Errorf("expected path /tmp/test-leadscan, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-leadscan")

	tests := []struct {
		name, got, want string
	}{
		{"ScratchPath", dir.ScratchPath(), "/tmp/test-leadscan/scratch"},
		{"RequestScratchPath", dir.RequestScratchPath("abc"), "/tmp/test-leadscan/scratch/abc"},
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-leadscan/config.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, tt.got)
			}
		})
	}
}

func TestDir_EnsureExists(t *testing.T) {
	dir, err := New(filepath.Join(t.TempDir(), "leadscan-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir.Exists() {
		t.Error("expected directory to not exist yet")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}
	if !dir.Exists() {
		t.Error("expected directory to exist")
	}
	if _, err := os.Stat(dir.ScratchPath()); err != nil {
		t.Errorf("scratch directory missing: %v", err)
	}
	if dir.ConfigExists() {
		t.Error("expected no config file")
	}
}

func TestDir_SweepScratch(t *testing.T) {
	dir, _ := New(t.TempDir())

	n, err := dir.SweepScratch()
	if err != nil || n != 0 {
		t.Fatalf("sweep of missing dir = %d, %v", n, err)
	}

	if err := os.MkdirAll(dir.RequestScratchPath("a"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dir.RequestScratchPath("b"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir.RequestScratchPath("a"), "page_0001.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err = dir.SweepScratch()
	if err != nil {
		t.Fatalf("SweepScratch: %v", err)
	}
	if n != 2 {
		t.Errorf("removed %d, want 2", n)
	}
	entries, _ := os.ReadDir(dir.ScratchPath())
	if len(entries) != 0 {
		t.Errorf("scratch not empty: %v", entries)
	}
}
