package econfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsUsedWithoutPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listener.Port != 7000 {
		t.Fatalf("port = %d, want 7000", cfg.Listener.Port)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
listener:
  address: "127.0.0.1"
  port: 4242
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listener.Address != "127.0.0.1" || cfg.Listener.Port != 4242 {
		t.Fatalf("listener = %+v", cfg.Listener)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging.level = %q", cfg.Logging.Level)
	}
	// untouched fields keep their defaults
	if cfg.Metrics.Address != ":9090" {
		t.Fatalf("metrics.address = %q, want default", cfg.Metrics.Address)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadZeroRingCapacityFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("listener:\n  ring_capacity_bytes: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listener.RingCapacityBytes != 64*1024 {
		t.Fatalf("ring capacity = %d, want default", cfg.Listener.RingCapacityBytes)
	}
}

func TestLoadZeroMaxQueueFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("listener:\n  max_queue: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listener.MaxQueue != 1000 {
		t.Fatalf("max_queue = %d, want default 1000", cfg.Listener.MaxQueue)
	}
}
