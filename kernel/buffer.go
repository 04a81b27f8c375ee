package kernel

import "fmt"

// Buffer is a bounded FIFO storage. Push and Pop buffer their effect for
// the next storage-update pass, which applies any pending pop before any
// pending pushes (SPEC_FULL.md §4.4). Push rejects (returns false) if the
// buffer's projected size after the pending pop and all pushes already
// buffered this cycle would exceed capacity.
//
// Grounded in jmchacon-6502/pia6532.Chip's Tick/TickDone shadow-to-live
// promotion pattern, generalized from a single scalar to a ring of values.
type Buffer struct {
	storageBase
	capacity int
	items    []uint64

	pendingPushes []uint64
	pendingPop    bool

	maxObserved int
}

// NewBuffer creates a Buffer bound to clk with the given capacity (must be
// > 0).
func (k *Kernel) NewBuffer(name string, clk *Clock, capacity int) (*Buffer, error) {
	if k.registry.frozen {
		return nil, ErrRegistryFrozen
	}
	if clk == nil {
		return nil, ErrStorageNoClock
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("kernel: buffer %q: capacity must be > 0, got %d", name, capacity)
	}
	b := &Buffer{storageBase: storageBase{clock: clk, name: name}, capacity: capacity}
	k.allStorages = append(k.allStorages, b)
	return b, nil
}

// Len returns the number of elements committed at the start of the current
// cycle.
func (b *Buffer) Len() int { return len(b.items) }

// Capacity returns the buffer's fixed capacity.
func (b *Buffer) Capacity() int { return b.capacity }

// MaxObservedSize returns the largest committed size this buffer has ever
// reached, for the sampling API's max-watermark category (SPEC_FULL.md
// §11.5).
func (b *Buffer) MaxObservedSize() int { return b.maxObserved }

// Front returns the oldest committed element without removing it. ok is
// false if the buffer is empty.
func (b *Buffer) Front() (value uint64, ok bool) {
	if len(b.items) == 0 {
		return 0, false
	}
	return b.items[0], true
}

// Push buffers an append of v. It returns false without buffering anything
// if the projected size (current size, minus a pending pop this cycle if
// any, plus every push already buffered this cycle, plus this one) would
// exceed capacity.
func (b *Buffer) Push(v uint64) bool {
	projected := len(b.items) + len(b.pendingPushes)
	if b.pendingPop {
		projected--
	}
	if projected+1 > b.capacity {
		return false
	}
	b.pendingPushes = append(b.pendingPushes, v)
	b.markPending(b)
	return true
}

// Pop buffers removal of the front element. It returns false if the buffer
// is currently empty (nothing to pop).
func (b *Buffer) Pop() bool {
	if len(b.items) == 0 {
		return false
	}
	b.pendingPop = true
	b.markPending(b)
	return true
}

func (b *Buffer) commit() {
	wasEmpty := len(b.items) == 0
	if b.pendingPop {
		if len(b.items) == 0 {
			panic(fmt.Sprintf("kernel: buffer %q: pending pop on empty buffer (programming error)", b.name))
		}
		b.items = b.items[1:]
	}
	b.items = append(b.items, b.pendingPushes...)
	if len(b.items) > b.capacity {
		panic(fmt.Sprintf("kernel: buffer %q: committed size %d exceeds capacity %d (programming error)", b.name, len(b.items), b.capacity))
	}
	if len(b.items) > b.maxObserved {
		b.maxObserved = len(b.items)
	}
	b.pendingPushes = nil
	b.pendingPop = false
	b.finishCommit(wasEmpty && len(b.items) > 0)
}
