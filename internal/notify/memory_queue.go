package notify

import (
	"context"
	"sort"
	"sync"
	"time"
)

type scheduledIntent struct {
	intent  Intent
	readyAt time.Time
}

// MemoryQueue is an in-memory Queue for deterministic tests without a
// live Redis.
type MemoryQueue struct {
	mu      sync.Mutex
	pending []scheduledIntent
	dead    []Intent
}

// NewMemoryQueue creates an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, intent Intent, readyAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, scheduledIntent{intent: intent, readyAt: readyAt})
	return nil
}

func (q *MemoryQueue) Due(ctx context.Context, now time.Time) (*Intent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// high priority first, then earliest readiness
	sort.SliceStable(q.pending, func(i, j int) bool {
		hi, hj := q.pending[i].intent.Kind.HighPriority(), q.pending[j].intent.Kind.HighPriority()
		if hi != hj {
			return hi
		}
		return q.pending[i].readyAt.Before(q.pending[j].readyAt)
	})
	for idx, item := range q.pending {
		if item.readyAt.After(now) {
			continue
		}
		q.pending = append(q.pending[:idx], q.pending[idx+1:]...)
		intent := item.intent
		return &intent, nil
	}
	return nil, nil
}

func (q *MemoryQueue) Requeue(ctx context.Context, intent Intent, readyAt time.Time) error {
	return q.Enqueue(ctx, intent, readyAt)
}

func (q *MemoryQueue) Bury(ctx context.Context, intent Intent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, intent)
	return nil
}

// Pending returns a snapshot of queued intents, for assertions.
func (q *MemoryQueue) Pending() []Intent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Intent, 0, len(q.pending))
	for _, item := range q.pending {
		out = append(out, item.intent)
	}
	return out
}

// Dead returns a snapshot of the dead-letter list, for assertions.
func (q *MemoryQueue) Dead() []Intent {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Intent{}, q.dead...)
}

// Kinds lists the kinds of all pending intents in queue order.
func (q *MemoryQueue) Kinds() []Kind {
	var kinds []Kind
	for _, intent := range q.Pending() {
		kinds = append(kinds, intent.Kind)
	}
	return kinds
}
