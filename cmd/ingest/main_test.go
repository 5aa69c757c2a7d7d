package main

import (
	"os"
	"path/filepath"
	"testing"

	"ingest/internal/app"
	"ingest/internal/config"
	appErrors "ingest/internal/errors"
	"ingest/internal/infra/fs"
)

func testEnv(t *testing.T, dest string) *env {
	t.Helper()
	cfg := config.Default()
	cfg.Destination = dest
	return &env{
		dir:      t.TempDir(),
		settings: config.NewShared(t.TempDir(), cfg),
		fs:       fs.OSFS{},
	}
}

func TestResolveDestinationOrder(t *testing.T) {
	src := t.TempDir()
	e := testEnv(t, "/configured")

	if got, err := resolveDestination(e, src, "/explicit"); err != nil || got != "/explicit" {
		t.Fatalf("expected explicit destination, got %q (%v)", got, err)
	}
	if got, err := resolveDestination(e, src, ""); err != nil || got != "/configured" {
		t.Fatalf("expected configured destination, got %q (%v)", got, err)
	}

	if err := os.WriteFile(filepath.Join(src, app.MarkerFileName), []byte(" /from-marker\n"), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	if got, err := resolveDestination(e, src, ""); err != nil || got != "/from-marker" {
		t.Fatalf("expected marker destination, got %q (%v)", got, err)
	}
}

func TestResolveDestinationMissing(t *testing.T) {
	e := testEnv(t, "")
	_, err := resolveDestination(e, t.TempDir(), "")
	if !appErrors.IsKind(err, appErrors.InvalidConfig) {
		t.Fatalf("expected InvalidConfig, got %v", err)
	}
}

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"watch", "copy", "config", "history", "devices", "mount"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Fatalf("expected %s command, got %v (%v)", name, cmd, err)
		}
	}
}
