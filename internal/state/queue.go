package state

import (
	"sync"

	"ingest/internal/domain"
)

// Queue holds detected volumes waiting for the user to accept or cancel them.
type Queue struct {
	mu    sync.Mutex
	items []domain.CopyRequest
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push appends req unless a request for the same source is already pending.
func (q *Queue) Push(req domain.CopyRequest) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range q.items {
		if item.Src == req.Src {
			return false
		}
	}
	q.items = append(q.items, req)
	return true
}

// Remove takes the request at index out of the queue.
func (q *Queue) Remove(index int) (domain.CopyRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || index >= len(q.items) {
		return domain.CopyRequest{}, false
	}
	req := q.items[index]
	q.items = append(q.items[:index], q.items[index+1:]...)
	return req, true
}

func (q *Queue) Snapshot() []domain.CopyRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.CopyRequest, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
