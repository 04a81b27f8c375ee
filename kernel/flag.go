package kernel

// Flag is a boolean storage with explicit Set/Clear rather than a general
// Write, so that the only observable transition that reactivates
// subscribers is cleared->set (SPEC_FULL.md §4.4). Multiple Set/Clear calls
// by the same process within one cycle are allowed; only the final buffered
// value is committed.
//
// Grounded in jmchacon-6502/pia6532.Chip's edge-detected interrupt flag
// (interruptOn, set via a shadow/commit split in Tick/TickDone).
type Flag struct {
	storageBase
	current bool
	pending bool
	dirty   bool
}

// NewFlag creates a Flag bound to clk, initialized to initial.
func (k *Kernel) NewFlag(name string, clk *Clock, initial bool) (*Flag, error) {
	if k.registry.frozen {
		return nil, ErrRegistryFrozen
	}
	if clk == nil {
		return nil, ErrStorageNoClock
	}
	f := &Flag{storageBase: storageBase{clock: clk, name: name}, current: initial}
	k.allStorages = append(k.allStorages, f)
	return f, nil
}

// IsSet returns the value committed at the start of the current cycle.
func (f *Flag) IsSet() bool { return f.current }

// Set buffers a transition to true.
func (f *Flag) Set() {
	f.pending = true
	f.dirty = true
	f.markPending(f)
}

// Clear buffers a transition to false.
func (f *Flag) Clear() {
	f.pending = false
	f.dirty = true
	f.markPending(f)
}

func (f *Flag) commit() {
	wasClear := !f.current
	if f.dirty {
		f.current = f.pending
	}
	f.dirty = false
	f.finishCommit(wasClear && f.current)
}
