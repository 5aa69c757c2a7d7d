package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Destination != "" {
		t.Fatalf("expected no destination, got %q", cfg.Destination)
	}
	if cfg.Watch.Interval != 5*time.Second {
		t.Fatalf("unexpected interval %v", cfg.Watch.Interval)
	}
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Destination = "/srv/photos"
	cfg.Watch.Interval = 2 * time.Second
	cfg.Watch.MountRoots = []string{"/media/me"}

	if err := Save(dir, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
		t.Fatalf("expected config.json: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Destination != "/srv/photos" {
		t.Fatalf("unexpected destination %q", loaded.Destination)
	}
	if loaded.Watch.Interval != 2*time.Second {
		t.Fatalf("unexpected interval %v", loaded.Watch.Interval)
	}
	if len(loaded.Watch.MountRoots) != 1 || loaded.Watch.MountRoots[0] != "/media/me" {
		t.Fatalf("unexpected roots %v", loaded.Watch.MountRoots)
	}
}

func TestEnvOverridesDestination(t *testing.T) {
	t.Setenv("INGEST_DESTINATION", "/from/env")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Destination != "/from/env" {
		t.Fatalf("unexpected destination %q", cfg.Destination)
	}
}

func TestLoadRejectsBadInterval(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`{"watch": {"interval": "0s"}}`)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestSharedSetDestinationPersists(t *testing.T) {
	dir := t.TempDir()
	shared := NewShared(dir, Default())

	if err := shared.SetDestination("  "); err == nil {
		t.Fatalf("expected blank destination to be rejected")
	}
	if err := shared.SetDestination("/backup"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if shared.Destination() != "/backup" {
		t.Fatalf("unexpected destination %q", shared.Destination())
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Destination != "/backup" {
		t.Fatalf("destination not persisted: %q", loaded.Destination)
	}
}
