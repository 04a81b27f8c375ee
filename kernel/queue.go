package kernel

import "sort"

// queueItem pairs a priority key with a payload value for Queue.
type queueItem struct {
	key uint64
	val uint64
	seq uint64 // insertion sequence, for a stable tie-break
}

// Queue is an unbounded, priority-ordered storage: Push inserts a value
// keyed by a caller-supplied priority, and commits are kept sorted so Front
// always observes the lowest-key element first. Ties are broken by
// insertion order, keeping the whole structure deterministic.
//
// Used by storages that need deterministic ordering of asynchronous
// completions (SPEC_FULL.md §4.4), e.g. a memory responder that must
// complete requests in the order they were issued even though they may
// finish at different simulated times.
type Queue struct {
	storageBase
	items []queueItem

	pendingPushes []queueItem
	pendingPop    bool
	seq           uint64
}

// NewQueue creates an empty Queue bound to clk.
func (k *Kernel) NewQueue(name string, clk *Clock) (*Queue, error) {
	if k.registry.frozen {
		return nil, ErrRegistryFrozen
	}
	if clk == nil {
		return nil, ErrStorageNoClock
	}
	q := &Queue{storageBase: storageBase{clock: clk, name: name}}
	k.allStorages = append(k.allStorages, q)
	return q, nil
}

// Len returns the number of elements committed at the start of the current
// cycle.
func (q *Queue) Len() int { return len(q.items) }

// Front returns the lowest-key committed element without removing it. ok is
// false if the queue is empty.
func (q *Queue) Front() (value uint64, ok bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	return q.items[0].val, true
}

// Push buffers an insertion of v keyed by priority (lower sorts first).
func (q *Queue) Push(priority uint64, v uint64) {
	q.pendingPushes = append(q.pendingPushes, queueItem{key: priority, val: v, seq: q.seq})
	q.seq++
	q.markPending(q)
}

// Pop buffers removal of the current front element. It returns false if the
// queue is currently empty.
func (q *Queue) Pop() bool {
	if len(q.items) == 0 {
		return false
	}
	q.pendingPop = true
	q.markPending(q)
	return true
}

func (q *Queue) commit() {
	wasEmpty := len(q.items) == 0
	if q.pendingPop {
		if len(q.items) == 0 {
			panic("kernel: queue " + q.name + ": pending pop on empty queue (programming error)")
		}
		q.items = q.items[1:]
	}
	q.items = append(q.items, q.pendingPushes...)
	sort.SliceStable(q.items, func(i, j int) bool {
		if q.items[i].key != q.items[j].key {
			return q.items[i].key < q.items[j].key
		}
		return q.items[i].seq < q.items[j].seq
	})
	q.pendingPushes = nil
	q.pendingPop = false
	q.finishCommit(wasEmpty && len(q.items) > 0)
}
