// Package state holds the values shared between the watcher, running copies
// and the UI. Each value owns its lock; callers only get copies out.
package state

import (
	"sync"

	"ingest/internal/domain"
)

type Progress struct {
	mu   sync.Mutex
	info domain.ProgressInfo
}

func NewProgress() *Progress {
	return &Progress{info: domain.NewProgressInfo()}
}

func (p *Progress) Snapshot() domain.ProgressInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info
}

// Update runs fn with the lock held. fn must not block.
func (p *Progress) Update(fn func(*domain.ProgressInfo)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.info)
}

func (p *Progress) SetMessage(message string) {
	p.Update(func(info *domain.ProgressInfo) {
		info.Message = message
	})
}
