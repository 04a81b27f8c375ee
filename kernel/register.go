package kernel

// Register is a single-value storage: Read returns the committed value,
// Write buffers a next value that becomes visible at the start of the
// owning clock's next cycle.
//
// Grounded in jmchacon-6502/memory.ram's Read/Write pair (databusVal
// tracks "the last committed value"; here the write side additionally
// defers through a pending field rather than mutating in place).
type Register struct {
	storageBase
	current uint64
	pending uint64
	dirty   bool
}

// NewRegister creates a Register bound to clk, initialized to initial.
func (k *Kernel) NewRegister(name string, clk *Clock, initial uint64) (*Register, error) {
	if k.registry.frozen {
		return nil, ErrRegistryFrozen
	}
	if clk == nil {
		return nil, ErrStorageNoClock
	}
	r := &Register{storageBase: storageBase{clock: clk, name: name}, current: initial}
	k.allStorages = append(k.allStorages, r)
	return r, nil
}

// Read returns the value committed at the start of the current cycle.
func (r *Register) Read() uint64 { return r.current }

// Write buffers v as the register's next value. It is only externally
// visible (and only reactivates subscribers, if v differs from the current
// value) once the kernel's storage-update pass runs at the start of the
// owning clock's next cycle.
func (r *Register) Write(v uint64) {
	r.pending = v
	r.dirty = true
	r.markPending(r)
}

func (r *Register) commit() {
	changed := r.dirty && r.pending != r.current
	r.current = r.pending
	r.dirty = false
	r.finishCommit(changed)
}
