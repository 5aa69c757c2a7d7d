package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ingest/internal/domain"
	osfs "ingest/internal/infra/fs"
	"ingest/internal/state"
)

func newDispatcher(t *testing.T) (*Dispatcher, *mockRecorder) {
	t.Helper()
	progress := state.NewProgress()
	log := state.NewLog()
	recorder := &mockRecorder{}
	return &Dispatcher{
		Copier: &Copier{
			FS:       osfs.OSFS{},
			Progress: progress,
			Log:      log,
		},
		Queue:    state.NewQueue(),
		Progress: progress,
		Log:      log,
		History:  recorder,
	}, recorder
}

func TestAcceptCopiesAndRecords(t *testing.T) {
	d, recorder := newDispatcher(t)
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "out")
	writeTree(t, src, map[string]string{"DCIM/a.jpg": "abc", "DCIM/b.mp4": "defg"})
	d.Queue.Push(domain.CopyRequest{ID: "r1", Src: src, Dest: dest, FileCount: 2})

	req, ok := d.Accept(context.Background(), 0)
	if !ok || req.ID != "r1" {
		t.Fatalf("unexpected accept %+v %v", req, ok)
	}
	d.Wait()

	if d.Queue.Len() != 0 {
		t.Fatalf("expected queue to be drained")
	}
	if msg := d.Progress.Snapshot().Message; msg != MessageCompleted {
		t.Fatalf("unexpected message %q", msg)
	}
	if _, err := os.Stat(filepath.Join(dest, "DCIM", "b.mp4")); err != nil {
		t.Fatalf("expected copied file: %v", err)
	}
	if d.Running() != 0 {
		t.Fatalf("expected no running copies")
	}

	if len(recorder.records) != 1 {
		t.Fatalf("expected one history record, got %d", len(recorder.records))
	}
	rec := recorder.records[0]
	if rec.ID != "r1" || rec.Files != 2 || rec.Bytes != 7 || !rec.Succeeded() {
		t.Fatalf("unexpected record %+v", rec)
	}

	lines := d.Log.Snapshot()
	if len(lines) == 0 || lines[0] != "Starting copy from "+src {
		t.Fatalf("unexpected log %v", lines)
	}
}

func TestAcceptFailureSetsErrorMessage(t *testing.T) {
	d, recorder := newDispatcher(t)
	src := filepath.Join(t.TempDir(), "unplugged")
	d.Queue.Push(domain.CopyRequest{ID: "r2", Src: src, Dest: t.TempDir()})

	d.Accept(context.Background(), 0)
	d.Wait()

	msg := d.Progress.Snapshot().Message
	if !strings.HasPrefix(msg, "Error copying: I/O error") {
		t.Fatalf("unexpected message %q", msg)
	}
	if len(recorder.records) != 1 || recorder.records[0].Succeeded() {
		t.Fatalf("expected failed record, got %+v", recorder.records)
	}
}

func TestCancelRemovesWithoutCopy(t *testing.T) {
	d, recorder := newDispatcher(t)
	d.Queue.Push(domain.CopyRequest{Src: "/media/A", Dest: "/dest"})
	d.Queue.Push(domain.CopyRequest{Src: "/media/B", Dest: "/dest"})

	req, ok := d.Cancel(1)
	if !ok || req.Src != "/media/B" {
		t.Fatalf("unexpected cancel %+v %v", req, ok)
	}
	d.Wait()

	if d.Queue.Len() != 1 {
		t.Fatalf("expected one pending request")
	}
	if len(recorder.records) != 0 {
		t.Fatalf("cancel must not record history")
	}
	if lines := d.Log.Snapshot(); len(lines) != 1 || lines[0] != "Skipped /media/B" {
		t.Fatalf("unexpected log %v", lines)
	}
}

func TestAcceptOutOfRange(t *testing.T) {
	d, _ := newDispatcher(t)
	if _, ok := d.Accept(context.Background(), 0); ok {
		t.Fatalf("expected empty queue accept to fail")
	}
	if _, ok := d.Cancel(3); ok {
		t.Fatalf("expected out of range cancel to fail")
	}
}
