// Package kernel implements the multi-clock discrete-event engine described
// in SPEC_FULL.md: a Registry of Clocks related by rational frequency,
// Processes bound to those clocks, Storages with deferred write visibility,
// Arbitrators for contended resources, and the Kernel scheduler that drives
// all of it through a three-phase acquire/arbitrate/commit loop every
// master cycle.
//
// The whole package is single-threaded by design (SPEC_FULL.md §5): there
// is exactly one goroutine driving a Kernel, no locks, and no concurrent
// access to any type here is safe.
package kernel

// Registry owns the set of distinct clock frequencies in use by a
// simulation and computes the master cycle rate (their least common
// multiple) that every Clock's period is defined relative to.
//
// A Registry is created implicitly by NewKernel; components never
// construct one directly, they call (*Kernel).CreateClock.
type Registry struct {
	masterFrequency uint64
	masterCycle     uint64
	clocks          []*Clock
	activeHead      *Clock
	frozen          bool
}

// CreateClock returns the Clock for frequencyHz, creating it if this is the
// first request for that frequency. If a clock of this frequency already
// exists, it is returned unchanged (idempotent). Creating a clock with a
// frequency that changes the registry's master frequency recomputes every
// existing clock's period so that period*frequency == MasterFrequency()
// continues to hold for all of them.
//
// CreateClock must not be called after the first call to (*Kernel).Step.
func (r *Registry) CreateClock(frequencyHz uint64) (*Clock, error) {
	if r.frozen {
		return nil, ErrRegistryFrozen
	}
	if frequencyHz == 0 {
		return nil, ErrFrequencyInvalid
	}
	for _, c := range r.clocks {
		if c.frequency == frequencyHz {
			return c, nil
		}
	}

	newMaster := frequencyHz
	if len(r.clocks) > 0 {
		newMaster = lcm(r.masterFrequency, frequencyHz)
	}
	if newMaster != r.masterFrequency {
		r.masterFrequency = newMaster
		for _, c := range r.clocks {
			c.period = r.masterFrequency / c.frequency
		}
	}

	c := newClock(r, frequencyHz)
	c.period = r.masterFrequency / frequencyHz
	r.clocks = append(r.clocks, c)
	return c, nil
}

// MasterFrequency reports the current least common multiple of every
// frequency admitted via CreateClock. It is 0 until the first clock is
// created.
func (r *Registry) MasterFrequency() uint64 { return r.masterFrequency }

// Clocks returns every clock registered so far, in creation order. Intended
// for the introspection API (SPEC_FULL.md §6); callers must not mutate the
// returned slice's Clock values' scheduling state.
func (r *Registry) Clocks() []*Clock {
	out := make([]*Clock, len(r.clocks))
	copy(out, r.clocks)
	return out
}

// activate inserts c into the registry's active-clock list, ordered by
// ascending next-fire cycle, scheduling c to run at the earliest multiple
// of its period at or after the registry's current master cycle. A no-op
// if c is already active.
//
// "At or after" (rather than strictly after) matters for two cases: a
// clock activated before the first Step must be eligible to run at master
// cycle 0 (SPEC_FULL.md §8 scenario S1), and a process woken on a
// different clock by a storage commit must be eligible to run in the same
// master cycle its own period allows, not only in some later one
// (SPEC_FULL.md §8 property 5, the cross-clock boundary case).
func (r *Registry) activate(c *Clock) {
	if c.activated {
		return
	}
	c.nextFire = ceilToMultiple(r.masterCycle, c.period)
	r.insertActive(c)
}

// reschedule inserts c into the active-clock list at the next multiple of
// its period strictly after the registry's current master cycle. Used
// exclusively by advanceClocks to re-arm a clock that just finished being
// due this cycle but still has pending work — using activate's inclusive
// rule here would immediately re-select the cycle just processed.
func (r *Registry) reschedule(c *Clock) {
	if c.activated {
		return
	}
	c.nextFire = (r.masterCycle/c.period + 1) * c.period
	r.insertActive(c)
}

// insertActive links c into the active-clock list in ascending nextFire
// order; c.nextFire must already be set.
func (r *Registry) insertActive(c *Clock) {
	var prev *Clock
	cur := r.activeHead
	for cur != nil && cur.nextFire < c.nextFire {
		prev = cur
		cur = cur.next
	}
	c.next = cur
	if prev == nil {
		r.activeHead = c
	} else {
		prev.next = c
	}
	c.activated = true
}

// ceilToMultiple returns the smallest multiple of period that is >= n.
func ceilToMultiple(n, period uint64) uint64 {
	rem := n % period
	if rem == 0 {
		return n
	}
	return n + (period - rem)
}

// gcd returns the greatest common divisor of a and b via Euclid's algorithm.
func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// lcm returns the least common multiple of a and b.
func lcm(a, b uint64) uint64 {
	g := gcd(a, b)
	if g == 0 {
		return 0
	}
	return a / g * b
}

// ErrFrequencyInvalid and ErrRegistryFrozen are returned by CreateClock;
// defined in errors.go alongside the rest of this package's named errors.
