package registry

import (
	"context"
	"sync"
	"time"

	"wavecatch/internal/jobs"
)

// UpdateType classifies a registry change.
type UpdateType string

const (
	UpdateAdded   UpdateType = "added"
	UpdateChanged UpdateType = "changed"
	UpdateRemoved UpdateType = "removed"
)

// Update is one sequenced registry change carrying the job as it looked
// immediately afterwards.
type Update struct {
	Sequence  uint64     `json:"seq"`
	Timestamp time.Time  `json:"ts"`
	Type      UpdateType `json:"type"`
	Job       jobs.Job   `json:"job"`
}

// Hub stores recent updates and wakes waiters when new ones arrive.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Update
	nextSeq  uint64
}

// NewHub constructs a bounded in-memory update log.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 1024
	}
	h := &Hub{capacity: capacity}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish appends an update, assigning its sequence number.
func (h *Hub) Publish(evt Update) Update {
	if h == nil {
		return evt
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	h.cond.Broadcast()
	return evt
}

// Fetch returns updates with sequence greater than since, up to limit, and
// the sequence to pass on the next call. When wait is true Fetch blocks until
// at least one update is available or ctx ends.
func (h *Hub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Update, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	stopWake := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-stopWake:
			}
		}()
	}
	defer close(stopWake)

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		events, next := h.collectLocked(since, limit)
		if len(events) > 0 || !wait {
			return events, next, nil
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
	}
}

// Tail returns the most recent limit updates without blocking.
func (h *Hub) Tail(limit int) ([]Update, uint64) {
	if h == nil {
		return nil, 0
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	start := max(len(h.buffer)-limit, 0)
	out := make([]Update, len(h.buffer)-start)
	copy(out, h.buffer[start:])
	return out, h.nextSeq
}

// Sequence reports the sequence number of the newest update.
func (h *Hub) Sequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nextSeq
}

// collectLocked returns buffered updates after since. When since has already
// been evicted the oldest retained update is the starting point.
func (h *Hub) collectLocked(since uint64, limit int) ([]Update, uint64) {
	start := len(h.buffer)
	for i, evt := range h.buffer {
		if evt.Sequence > since {
			start = i
			break
		}
	}
	if start == len(h.buffer) {
		return nil, h.nextSeq
	}
	end := min(start+limit, len(h.buffer))
	out := make([]Update, end-start)
	copy(out, h.buffer[start:end])
	return out, out[len(out)-1].Sequence
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
