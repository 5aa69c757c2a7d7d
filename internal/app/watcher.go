package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ingest/internal/domain"
	"ingest/internal/logging"
	"ingest/internal/state"
)

const DefaultPollInterval = 5 * time.Second

// Watcher polls the attached volumes and queues a CopyRequest for every
// volume that was not mounted during the previous cycle.
type Watcher struct {
	Volumes  VolumeLister
	FS       FileSystem
	Queue    *state.Queue
	Log      *state.Log
	Progress *state.Progress
	// Destination returns the configured default destination. It is read on
	// every cycle so configuration changes apply to the next detection.
	Destination func() string
	Interval    time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
	NewID       func() string
	Sleep       func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	known     map[string]struct{}
	lastError string
}

// Run scans until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Volumes == nil || w.FS == nil || w.Queue == nil || w.Log == nil {
		return errors.New("watcher requires Volumes, FS, Queue and Log")
	}
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	w.logger().Info("watching for volumes", "interval", interval)

	for {
		w.Scan(ctx)
		if err := w.sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// Scan runs a single polling cycle and returns how many requests it queued.
//
// Every mounted volume joins the known set at the end of the cycle, including
// volumes that had no destination. Those are reported once and then left alone
// until they are unplugged and attached again.
func (w *Watcher) Scan(ctx context.Context) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	logger := w.logger()
	mounts, err := w.Volumes.Mounts(ctx)
	if err != nil {
		msg := fmt.Sprintf("Volume scan failed: %v", err)
		if msg != w.lastError {
			w.Log.Append(msg)
			w.lastError = msg
		}
		logger.Warn("listing volumes failed", "error", err)
		return 0
	}
	w.lastError = ""

	current := make(map[string]struct{}, len(mounts))
	for _, mount := range mounts {
		current[filepath.Clean(mount)] = struct{}{}
	}

	var fresh []string
	for mount := range current {
		if _, ok := w.known[mount]; !ok {
			fresh = append(fresh, mount)
		}
	}
	sort.Strings(fresh)

	enqueued := 0
	for _, mount := range fresh {
		if w.detect(mount) {
			enqueued++
		}
	}

	w.known = current
	return enqueued
}

func (w *Watcher) detect(mount string) bool {
	logger := w.logger().With("mount", mount)

	dest, origin := w.resolve(mount)
	if dest == "" {
		w.Log.Appendf("Drive detected: %s, no destination configured", mount)
		logger.Info("volume skipped, no destination")
		return false
	}

	count := CountFiles(w.FS, mount)
	req := domain.CopyRequest{
		ID:         w.newID(),
		Src:        mount,
		Dest:       dest,
		FileCount:  count,
		DetectedAt: w.now(),
	}
	if !w.Queue.Push(req) {
		logger.Debug("volume already pending")
		return false
	}

	w.Log.Appendf("Drive detected: %s (%d files) -> %s", mount, count, dest)
	if w.Progress != nil {
		w.Progress.SetMessage(fmt.Sprintf("Drive detected: %s", mount))
	}
	logger.Info("copy request queued", "dest", dest, "origin", origin, "files", count)
	return true
}

// resolve prefers the marker on the volume over the configured default.
func (w *Watcher) resolve(mount string) (dest, origin string) {
	if dest, ok := ReadMarker(w.FS, mount); ok {
		return dest, "marker"
	}
	if w.Destination != nil {
		if dest := w.Destination(); dest != "" {
			return dest, "default"
		}
	}
	return "", ""
}

// Known returns the mount points seen in the last completed cycle.
func (w *Watcher) Known() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.known))
	for mount := range w.known {
		out = append(out, mount)
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) sleep(ctx context.Context, d time.Duration) error {
	if w.Sleep != nil {
		return w.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (w *Watcher) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Watcher) newID() string {
	if w.NewID != nil {
		return w.NewID()
	}
	return NewRequestID()
}

// NewRequestID returns a random id for a CopyRequest or history record.
func NewRequestID() string {
	return uuid.NewString()
}

func (w *Watcher) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return logging.Discard()
}

// CountFiles counts the regular files below root. Unreadable entries are
// skipped, the count is for display only.
func CountFiles(fsys FileSystem, root string) int {
	count := 0
	fsys.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			count++
		}
		return nil
	})
	return count
}
