package presentation

import (
	"fmt"
	"io"
	"strings"
	"time"

	"ingest/internal/app"
	"ingest/internal/domain"
)

type Printer struct {
	Writer  io.Writer
	Verbose bool
}

func (p Printer) PrintPlan(plan domain.CopyPlan) {
	fmt.Fprintf(p.Writer, "Copying %d files (%s) from %s to %s\n",
		plan.FileCount(), app.FormatBytes(plan.TotalBytes), plan.Source, plan.Destination)
	if !p.Verbose {
		return
	}
	fmt.Fprintln(p.Writer)
	for _, line := range formatCopyLines(plan.Items) {
		fmt.Fprintln(p.Writer, line)
	}
	fmt.Fprintln(p.Writer)
}

// PrintProgress redraws the current terminal line.
func (p Printer) PrintProgress(info domain.ProgressInfo) {
	fmt.Fprintf(p.Writer, "\r%s", ProgressLine(info))
}

func (p Printer) PrintResult(plan domain.CopyPlan, elapsed time.Duration) {
	fmt.Fprintln(p.Writer)
	fmt.Fprintf(p.Writer, "Copied %d files (%s) in %s.\n",
		plan.FileCount(), app.FormatBytes(plan.TotalBytes), elapsed.Round(time.Second))
	fmt.Fprintf(p.Writer, "Marker written to %s.\n", app.MarkerPath(plan.Source))
}

func (p Printer) PrintHistory(records []domain.CopyRecord) {
	if len(records) == 0 {
		fmt.Fprintln(p.Writer, "No copies recorded yet.")
		return
	}
	for _, rec := range records {
		status := "ok"
		if !rec.Succeeded() {
			status = "failed: " + rec.Error
		}
		fmt.Fprintf(p.Writer, "%s  %s -> %s  %d files, %s  %s\n",
			rec.FinishedAt.Format("2006-01-02 15:04"),
			rec.Src, rec.Dest, rec.Files, app.FormatBytes(rec.Bytes), status)
		if p.Verbose {
			fmt.Fprintf(p.Writer, "    id %s, took %s\n", rec.ID, rec.Duration().Round(time.Second))
		}
	}
}

func (p Printer) PrintDevices(devices []string, readerPresent bool) {
	if readerPresent {
		fmt.Fprintln(p.Writer, "SD card reader detected.")
	}
	if len(devices) == 0 {
		fmt.Fprintln(p.Writer, "No unmounted devices.")
		return
	}
	fmt.Fprintln(p.Writer, "Unmounted devices:")
	for _, dev := range devices {
		fmt.Fprintln(p.Writer, "  "+dev)
	}
}

// ProgressLine renders e.g. "[####------]  40.0%  12.3 MB/s  DCIM/IMG_0001.JPG".
func ProgressLine(info domain.ProgressInfo) string {
	const width = 20
	percent := info.TotalProgress()
	filled := int(percent * width)
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	return fmt.Sprintf("[%s] %5.1f%%  %s  %s", bar, percent*100, FormatSpeed(info.Speed), info.CurrentFile)
}

// FormatSpeed renders bytes per second as MB/s.
func FormatSpeed(bytesPerSecond float64) string {
	return fmt.Sprintf("%.2f MB/s", bytesPerSecond/1_048_576.0)
}

func formatCopyLines(items []domain.FileEntry) []string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("Copy %s  %s", item.RelativePath, app.FormatBytes(item.Size)))
	}

	if len(lines) <= 4 {
		return lines
	}
	head := lines[:2]
	tail := lines[len(lines)-2:]
	return append(append(head, "..."), tail...)
}
