package kernel

// Counter is an accumulating storage: any number of processes may buffer a
// delta during a cycle (arbitrated upstream if they share write access to
// the same counter — see Arbitrator), and the storage-update pass folds
// every buffered delta into the committed value at once.
//
// Grounded in jmchacon-6502/pia6532.Chip's programmable timer prescaler
// (timerMult/timerMultCount decremented in TickDone), generalized from a
// fixed countdown to an arbitrary accumulating value — the same
// shadow-then-commit discipline, applied to addition instead of
// subtraction.
type Counter struct {
	storageBase
	current uint64
	delta   uint64
	dirty   bool
}

// NewCounter creates a Counter bound to clk, initialized to initial.
func (k *Kernel) NewCounter(name string, clk *Clock, initial uint64) (*Counter, error) {
	if k.registry.frozen {
		return nil, ErrRegistryFrozen
	}
	if clk == nil {
		return nil, ErrStorageNoClock
	}
	c := &Counter{storageBase: storageBase{clock: clk, name: name}, current: initial}
	k.allStorages = append(k.allStorages, c)
	return c, nil
}

// Value returns the value committed at the start of the current cycle.
func (c *Counter) Value() uint64 { return c.current }

// Add buffers an increment of delta, accumulating with any other Add calls
// already buffered this cycle by the same writer.
func (c *Counter) Add(delta uint64) {
	c.delta += delta
	c.dirty = true
	c.markPending(c)
}

func (c *Counter) commit() {
	changed := c.dirty && c.delta != 0
	c.current += c.delta
	c.delta = 0
	c.dirty = false
	c.finishCommit(changed)
}
