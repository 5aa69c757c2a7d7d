package presentation

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"ingest/internal/domain"
)

func TestFormatCopyLinesTruncates(t *testing.T) {
	items := make([]domain.FileEntry, 0, 6)
	for i := 0; i < 6; i++ {
		items = append(items, domain.NewFileEntry(
			fmt.Sprintf("/media/card/DSC000%d.ARW", i),
			fmt.Sprintf("DSC000%d.ARW", i),
			2048,
		))
	}

	lines := formatCopyLines(items)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if lines[2] != "..." {
		t.Fatalf("expected ellipsis, got %q", lines[2])
	}
	if lines[0] != "Copy DSC0000.ARW  2.0 KiB" {
		t.Fatalf("unexpected line %q", lines[0])
	}
}

func TestProgressLine(t *testing.T) {
	line := ProgressLine(domain.ProgressInfo{
		TotalBytes:  200,
		CopiedBytes: 100,
		Speed:       2 * 1_048_576,
		CurrentFile: "DCIM/IMG_0001.JPG",
	})
	if !strings.Contains(line, "[##########----------]") {
		t.Fatalf("unexpected bar in %q", line)
	}
	if !strings.Contains(line, " 50.0%") || !strings.Contains(line, "2.00 MB/s") {
		t.Fatalf("unexpected line %q", line)
	}
	if !strings.HasSuffix(line, "DCIM/IMG_0001.JPG") {
		t.Fatalf("expected current file in %q", line)
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	finished := time.Date(2024, 10, 2, 15, 1, 0, 0, time.Local)
	Printer{Writer: &buf}.PrintHistory([]domain.CopyRecord{
		{ID: "a", Src: "/media/A", Dest: "/dest", Files: 3, Bytes: 1024, FinishedAt: finished},
		{ID: "b", Src: "/media/B", Dest: "/dest", FinishedAt: finished, Error: "I/O error: boom"},
	})
	output := buf.String()
	if !strings.Contains(output, "2024-10-02 15:01  /media/A -> /dest  3 files, 1.0 KiB  ok") {
		t.Fatalf("unexpected output %q", output)
	}
	if !strings.Contains(output, "failed: I/O error: boom") {
		t.Fatalf("expected failure in %q", output)
	}
}

func TestPrintHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	Printer{Writer: &buf}.PrintHistory(nil)
	if !strings.Contains(buf.String(), "No copies recorded") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestPrintPlanVerboseListsFiles(t *testing.T) {
	var buf bytes.Buffer
	plan := domain.CopyPlan{
		Source:      "/media/card",
		Destination: "/dest",
		Items:       []domain.FileEntry{domain.NewFileEntry("/media/card/a.jpg", "a.jpg", 10)},
		TotalBytes:  10,
	}
	Printer{Writer: &buf, Verbose: true}.PrintPlan(plan)
	output := buf.String()
	if !strings.Contains(output, "Copying 1 files (10 B) from /media/card to /dest") {
		t.Fatalf("unexpected header in %q", output)
	}
	if !strings.Contains(output, "Copy a.jpg") {
		t.Fatalf("expected file line in %q", output)
	}
}
