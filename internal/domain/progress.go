package domain

// WaitingMessage is the status shown before any drive has been seen.
const WaitingMessage = "Waiting for drive..."

// ProgressInfo is the state of the copy in flight.
type ProgressInfo struct {
	Message         string
	TotalBytes      uint64
	CopiedBytes     uint64
	FileTotalBytes  uint64
	FileCopiedBytes uint64
	CurrentFile     string
	// PreviewPath is the source path of the in-flight file when it is an image, empty otherwise.
	PreviewPath string
	// Speed is in bytes per second since the copy started.
	Speed float64
}

func NewProgressInfo() ProgressInfo {
	return ProgressInfo{Message: WaitingMessage}
}

func (p ProgressInfo) TotalProgress() float64 {
	if p.TotalBytes == 0 {
		return 0
	}
	return float64(p.CopiedBytes) / float64(p.TotalBytes)
}

func (p ProgressInfo) FileProgress() float64 {
	if p.FileTotalBytes == 0 {
		return 0
	}
	return float64(p.FileCopiedBytes) / float64(p.FileTotalBytes)
}

// HasPreview reports whether a preview candidate is set.
func (p ProgressInfo) HasPreview() bool {
	return p.PreviewPath != ""
}
