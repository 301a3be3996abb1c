package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ddspipe/ddspipe-go/pkg/logger"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ddspipe.yaml")
	if err := os.WriteFile(file, []byte("version: v3.1\nspecs:\n  threads: 2\n  max-depth: 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	log := logger.New(logger.Config{Level: "error"})
	reloaded := make(chan *Configuration, 1)
	w, err := Watch(file, 20*time.Millisecond, log, func(cfg *Configuration) {
		reloaded <- cfg
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(file, []byte("version: v3.1\nspecs:\n  threads: 7\n  max-depth: 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Specs.Threads != 7 {
			t.Errorf("reloaded Specs.Threads = %d, want 7", cfg.Specs.Threads)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a reload callback")
	}
}
