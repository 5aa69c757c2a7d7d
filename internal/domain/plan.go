package domain

// CopyPlan is the file list of one copy, collected before the first byte moves.
type CopyPlan struct {
	Source      string
	Destination string
	Dirs        []string
	Items       []FileEntry
	TotalBytes  uint64
}

func (p CopyPlan) FileCount() int {
	return len(p.Items)
}
