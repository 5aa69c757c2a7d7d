package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"ingest/internal/domain"
	appErrors "ingest/internal/errors"
	"ingest/internal/logging"
	"ingest/internal/state"
)

const (
	MessageCompleted = "Copy completed"
	errorPrefix      = "Error copying: "
)

// Dispatcher is the consumer side of the pending queue: it accepts or cancels
// requests and runs accepted ones on their own goroutine.
type Dispatcher struct {
	Copier   *Copier
	Queue    *state.Queue
	Progress *state.Progress
	Log      *state.Log
	History  HistoryRecorder
	Logger   *slog.Logger
	Now      func() time.Time

	wg      sync.WaitGroup
	running atomic.Int32
}

// Accept removes the request at index and starts copying it.
func (d *Dispatcher) Accept(ctx context.Context, index int) (domain.CopyRequest, bool) {
	req, ok := d.Queue.Remove(index)
	if !ok {
		return req, false
	}
	d.Start(ctx, req)
	return req, true
}

// Cancel drops the request at index without copying.
func (d *Dispatcher) Cancel(index int) (domain.CopyRequest, bool) {
	req, ok := d.Queue.Remove(index)
	if !ok {
		return req, false
	}
	d.Log.Appendf("Skipped %s", req.Src)
	d.logger().Info("copy request cancelled", "src", req.Src, "id", req.ID)
	return req, true
}

// Start runs req in the background. A second copy may start while one is
// running; both then write the same progress value.
func (d *Dispatcher) Start(ctx context.Context, req domain.CopyRequest) {
	if d.running.Load() > 0 {
		d.Log.Append("Warning: another copy is still running, progress will be mixed")
		d.logger().Warn("overlapping copies", "src", req.Src)
	}

	d.Log.Appendf("Starting copy from %s", req.Src)
	d.Progress.SetMessage(fmt.Sprintf("Copying from %s...", req.Src))

	d.running.Add(1)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.running.Add(-1)
		d.run(ctx, req)
	}()
}

// Running reports how many copies are in flight.
func (d *Dispatcher) Running() int {
	return int(d.running.Load())
}

// Wait blocks until every started copy has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, req domain.CopyRequest) {
	logger := d.logger().With("src", req.Src, "dest", req.Dest, "id", req.ID)
	started := d.now()

	plan, err := d.Copier.Transfer(ctx, req.Src, req.Dest)
	if err != nil {
		d.Progress.SetMessage(errorPrefix + appErrors.UserMessage(err))
		d.Log.Appendf("Copy from %s failed: %s", req.Src, appErrors.UserMessage(err))
		logger.Error("copy failed", "error", err)
	} else {
		d.Progress.SetMessage(MessageCompleted)
		logger.Info("copy completed", "files", plan.FileCount())
	}

	if d.History == nil {
		return
	}
	rec := domain.CopyRecord{
		ID:         req.ID,
		Src:        req.Src,
		Dest:       req.Dest,
		Files:      plan.FileCount(),
		Bytes:      plan.TotalBytes,
		StartedAt:  started,
		FinishedAt: d.now(),
	}
	if err != nil {
		rec.Error = appErrors.UserMessage(err)
	}
	if err := d.History.Record(rec); err != nil {
		logger.Warn("recording history failed", "error", err)
	}
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logging.Discard()
}
