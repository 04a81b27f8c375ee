package kernel

import "fmt"

// Clock is a schedulable tick source: a fixed frequency relative to every
// other clock sharing its Registry, a next-fire master cycle, and the
// intrusive active lists of Processes, Storages, and Arbitrators currently
// scheduled to run on it.
//
// Clocks are created once, before the first Step, via (*Kernel).CreateClock
// and are never destroyed during a simulation (SPEC_FULL.md §3).
type Clock struct {
	registry  *Registry
	name      string
	frequency uint64
	period    uint64

	nextFire  uint64
	activated bool

	activeProcesses   *Process
	activeStorages    Storage
	activeArbitrators *Arbitrator

	// next links this clock into its registry's active-clock list,
	// ordered by ascending nextFire.
	next *Clock
}

func newClock(r *Registry, frequencyHz uint64) *Clock {
	return &Clock{registry: r, frequency: frequencyHz, name: fmt.Sprintf("clk@%dHz", frequencyHz)}
}

// Frequency returns the clock's frequency in Hz.
func (c *Clock) Frequency() uint64 { return c.frequency }

// Period returns the number of master cycles between successive ticks of
// this clock. Invariant: Period()*Frequency() == registry.MasterFrequency().
func (c *Clock) Period() uint64 { return c.period }

// Name returns the clock's introspection name, auto-derived from its
// frequency ("clk@300000000Hz") unless overridden with SetName.
func (c *Clock) Name() string { return c.name }

// SetName overrides the clock's auto-derived introspection name.
func (c *Clock) SetName(name string) { c.name = name }

// NextFire returns the next absolute master cycle this clock is scheduled
// to run on. Only meaningful while the clock has an active sub-list;
// otherwise it keeps the last cycle it was scheduled for (0 if the clock
// was never activated).
func (c *Clock) NextFire() uint64 { return c.nextFire }

// CurrentCycle returns master/Period(), the number of times this clock has
// ticked. Only meaningful when read at a master cycle aligned to this
// clock's period.
func (c *Clock) CurrentCycle(masterCycle uint64) uint64 {
	return masterCycle / c.period
}

// ActivateProcess links p at the head of this clock's active-process list
// if it is not already present, and marks the clock itself due to run.
// Processes on one clock therefore run in the reverse of the order in
// which they were activated; p is not appended at the tail. Idempotent
// within a cycle: re-activating an already-active process is a no-op.
func (c *Clock) ActivateProcess(p *Process) {
	if p.active {
		return
	}
	p.active = true
	p.next = c.activeProcesses
	c.activeProcesses = p
	c.registry.activate(c)
}

// activateStorage links s into this clock's active-storage list if it is
// not already present, and marks the clock due to run. Called by storage
// variants whenever a write/push/pop/set/clear buffers a pending update.
func (c *Clock) activateStorage(s Storage) {
	if s.isActive() {
		return
	}
	s.setActive(true)
	s.setNext(c.activeStorages)
	c.activeStorages = s
	c.registry.activate(c)
}

// activateArbitrator links a into this clock's active-arbitrator list if it
// is not already present, and marks the clock due to run. Called whenever a
// process Requests a contended resource.
func (c *Clock) activateArbitrator(a *Arbitrator) {
	if a.active {
		return
	}
	a.active = true
	a.next = c.activeArbitrators
	c.activeArbitrators = a
	c.registry.activate(c)
}
