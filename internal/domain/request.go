package domain

import "time"

// CopyRequest is a detected volume waiting for confirmation.
type CopyRequest struct {
	ID         string
	Src        string
	Dest       string
	FileCount  int
	DetectedAt time.Time
}

// CopyRecord is the outcome of one finished copy.
type CopyRecord struct {
	ID         string    `json:"id"`
	Src        string    `json:"src"`
	Dest       string    `json:"dest"`
	Files      int       `json:"files"`
	Bytes      uint64    `json:"bytes"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

func (r CopyRecord) Succeeded() bool {
	return r.Error == ""
}

func (r CopyRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
