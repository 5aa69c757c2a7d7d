package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"ingest/internal/domain"
	appErrors "ingest/internal/errors"
	"ingest/internal/logging"
	"ingest/internal/state"
)

// ErrSameDirectory is returned when source and destination resolve to one directory.
var ErrSameDirectory = errors.New("source and destination are the same directory")

// Copier mirrors a source tree into a destination and publishes progress
// after every chunk. Copies sharing the same Progress must not overlap.
type Copier struct {
	FS       FileSystem
	Space    SpaceProbe
	Progress *state.Progress
	Log      *state.Log
	Logger   *slog.Logger
	Now      func() time.Time
}

func (c *Copier) Copy(ctx context.Context, src, dest string) error {
	_, err := c.Transfer(ctx, src, dest)
	return err
}

// Transfer copies src into dest and returns the plan that was executed. On
// failure files already written stay in place.
func (c *Copier) Transfer(ctx context.Context, src, dest string) (domain.CopyPlan, error) {
	if c.FS == nil || c.Progress == nil || c.Log == nil {
		return domain.CopyPlan{}, errors.New("copier requires FS, Progress and Log")
	}

	src, dest, err := absPaths(src, dest)
	if err != nil {
		return domain.CopyPlan{}, err
	}
	if src == dest {
		return domain.CopyPlan{}, appErrors.Wrap(appErrors.IOFailure, "copy", dest, ErrSameDirectory)
	}

	logger := c.logger()
	stop := logging.Measure(logger, "Copying "+src)
	defer stop()

	info, err := c.FS.Stat(src)
	if err != nil {
		return domain.CopyPlan{}, appErrors.Wrap(appErrors.IOFailure, "stat", src, err)
	}
	if !info.IsDir() {
		return domain.CopyPlan{}, appErrors.Wrap(appErrors.IOFailure, "stat", src, errors.New("not a directory"))
	}
	if err := c.FS.MkdirAll(dest, 0o755); err != nil {
		return domain.CopyPlan{}, appErrors.Wrap(appErrors.IOFailure, "mkdir", dest, err)
	}

	plan, err := c.Plan(src, dest)
	if err != nil {
		return plan, err
	}
	logger.Info("copy planned", "src", src, "dest", dest, "files", plan.FileCount(), "bytes", plan.TotalBytes)
	c.checkSpace(ctx, plan)

	for _, dir := range plan.Dirs {
		target := filepath.Join(dest, filepath.FromSlash(dir))
		if err := c.FS.MkdirAll(target, 0o755); err != nil {
			return plan, appErrors.Wrap(appErrors.IOFailure, "mkdir", target, err)
		}
	}

	t := newTracker(c.Progress, c.Log, c.now, plan.TotalBytes)
	for _, item := range plan.Items {
		select {
		case <-ctx.Done():
			return plan, ctx.Err()
		default:
		}

		target := filepath.Join(dest, filepath.FromSlash(item.RelativePath))
		t.begin(item)
		if err := c.FS.CopyFile(item.SourcePath, target, t.chunk); err != nil {
			return plan, appErrors.Wrap(appErrors.IOFailure, "copy", item.SourcePath, err)
		}
	}

	if err := WriteMarker(c.FS, src, dest); err != nil {
		return plan, appErrors.Wrap(appErrors.IOFailure, "write marker", MarkerPath(src), err)
	}

	c.Log.Appendf("Copied %d files (%s) to %s", plan.FileCount(), FormatBytes(plan.TotalBytes), dest)
	logger.Info("copy finished", "src", src, "dest", dest, "bytes", t.copied)
	return plan, nil
}

// Plan lists every regular file and directory below src. A dest nested inside
// src is left out so a copy never feeds on itself.
func (c *Copier) Plan(src, dest string) (domain.CopyPlan, error) {
	plan := domain.CopyPlan{Source: src, Destination: dest}
	skip := nestedIn(src, dest)

	err := c.FS.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if skip != "" && filepath.Clean(path) == skip {
				return fs.SkipDir
			}
			if path != src {
				rel, err := filepath.Rel(src, path)
				if err != nil {
					return err
				}
				plan.Dirs = append(plan.Dirs, filepath.ToSlash(rel))
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		entry := domain.NewFileEntry(path, rel, uint64(info.Size()))
		plan.Items = append(plan.Items, entry)
		plan.TotalBytes += entry.Size
		return nil
	})
	if err != nil {
		return plan, appErrors.Wrap(appErrors.IOFailure, "walk", src, err)
	}
	return plan, nil
}

func (c *Copier) checkSpace(ctx context.Context, plan domain.CopyPlan) {
	if c.Space == nil {
		return
	}
	free, err := c.Space.FreeBytes(ctx, plan.Destination)
	if err != nil {
		c.logger().Debug("free space probe failed", "path", plan.Destination, "error", err)
		return
	}
	if free < plan.TotalBytes {
		c.Log.Appendf("Warning: %s has %s free, copy needs %s", plan.Destination, FormatBytes(free), FormatBytes(plan.TotalBytes))
	}
}

func (c *Copier) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Copier) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logging.Discard()
}

// absPaths makes src and dest absolute so the marker never holds a path
// relative to the working directory of one process.
func absPaths(src, dest string) (string, string, error) {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return "", "", appErrors.Wrap(appErrors.IOFailure, "abs", src, err)
	}
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return "", "", appErrors.Wrap(appErrors.IOFailure, "abs", dest, err)
	}
	return absSrc, absDest, nil
}

func nestedIn(src, dest string) string {
	rel, err := filepath.Rel(src, dest)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.Clean(dest)
}

// tracker turns chunk callbacks into progress snapshots and log lines.
type tracker struct {
	progress   *state.Progress
	log        *state.Log
	now        func() time.Time
	start      time.Time
	totalBytes uint64
	copied     uint64
	file       domain.FileEntry
	fileCopied uint64
	lastFile   string
}

func newTracker(progress *state.Progress, log *state.Log, now func() time.Time, totalBytes uint64) *tracker {
	t := &tracker{
		progress:   progress,
		log:        log,
		now:        now,
		start:      now(),
		totalBytes: totalBytes,
	}
	progress.Update(func(info *domain.ProgressInfo) {
		info.TotalBytes = totalBytes
		info.CopiedBytes = 0
		info.FileTotalBytes = 0
		info.FileCopiedBytes = 0
		info.CurrentFile = ""
		info.PreviewPath = ""
		info.Speed = 0
	})
	return t
}

func (t *tracker) begin(item domain.FileEntry) {
	t.file = item
	t.fileCopied = 0
	t.publish()
}

func (t *tracker) chunk(n int64) {
	if n <= 0 {
		return
	}
	t.copied += uint64(n)
	t.fileCopied += uint64(n)
	t.publish()
}

func (t *tracker) publish() {
	name := t.file.RelativePath
	if name != t.lastFile {
		t.log.Append("Copying " + name)
		t.lastFile = name
	}

	speed := 0.0
	if elapsed := t.now().Sub(t.start).Seconds(); elapsed > 0 {
		speed = float64(t.copied) / elapsed
	}
	preview := ""
	if t.file.IsImage {
		preview = t.file.SourcePath
	}

	t.progress.Update(func(info *domain.ProgressInfo) {
		info.TotalBytes = t.totalBytes
		info.CopiedBytes = t.copied
		info.FileTotalBytes = t.file.Size
		info.FileCopiedBytes = t.fileCopied
		info.CurrentFile = name
		info.PreviewPath = preview
		info.Speed = speed
	})
}

// FormatBytes renders n with a binary unit, e.g. "1.5 MiB".
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
