package kernel

import "fmt"

// RunState is the outcome of a call to (*Kernel).Step.
type RunState int

const (
	// Running means the budget was exhausted while the simulation still
	// has work to do; a further Step call will continue from here.
	Running RunState = iota
	// Idle means Step found nothing left that can make progress: either no
	// clock has any active process/storage/arbitrator, or a master cycle
	// passed with no storage update and no successful commit while no
	// clock was scheduled for a later cycle and no process was left
	// Deadlocked (for example, every active process returned Delayed).
	Idle
	// Deadlock means a whole master cycle passed with no storage update,
	// no successful commit, and at least one process left Deadlocked.
	Deadlock
	// Aborted means Abort() or Stop() was called during this Step.
	Aborted
)

// String implements fmt.Stringer.
func (s RunState) String() string {
	switch s {
	case Running:
		return "running"
	case Idle:
		return "idle"
	case Deadlock:
		return "deadlock"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// Unbounded, passed to Step, means "run until Idle, Deadlock, or Aborted"
// with no cycle budget.
const Unbounded uint64 = ^uint64(0)

// Kernel is the three-phase discrete-event driver: it owns a Registry of
// clocks and repeatedly advances the master cycle to the next due clock,
// running acquire, then arbitrate, then commit across every clock due at
// that cycle, then applying buffered storage updates, until idle, a
// deadlock is detected, the caller aborts/suspends, or a cycle budget is
// exhausted.
//
// Grounded in _examples/original_source/sim/kernel.cpp's Kernel::Step for
// algorithmic shape, and in jmchacon-6502/atari2600.VCS.Tick() for Go
// idiom (plain methods, debug-gated log.Printf, error return on a fatal
// condition).
type Kernel struct {
	registry *Registry

	phase          Phase
	currentProcess *Process

	aborted        bool
	suspended      bool
	hasLastSuspend bool
	lastSuspend    uint64

	poisoned bool

	debugFlags   DebugFlags
	traceEnabled bool
	trace        []TraceEvent

	allProcesses   []*Process
	allStorages    []Storage
	allArbitrators []*Arbitrator
}

// NewKernel creates an empty Kernel ready to have clocks, processes,
// storages, and arbitrators registered with it.
func NewKernel() *Kernel {
	return &Kernel{registry: &Registry{}}
}

// CreateClock returns the Clock for frequencyHz (see Registry.CreateClock).
// Must not be called after the first call to Step.
func (k *Kernel) CreateClock(frequencyHz uint64) (*Clock, error) {
	return k.registry.CreateClock(frequencyHz)
}

// MasterFrequency reports the least common multiple of every registered
// clock's frequency; 0 until the first clock is created.
func (k *Kernel) MasterFrequency() uint64 { return k.registry.MasterFrequency() }

// Clocks returns every clock created so far, in creation order.
func (k *Kernel) Clocks() []*Clock { return k.registry.Clocks() }

// Cycle returns the kernel's current master cycle counter.
func (k *Kernel) Cycle() uint64 { return k.registry.masterCycle }

// CurrentPhase returns the phase the kernel is currently executing. Only
// meaningful to call from within a process's StepFunc or from an
// arbitrator/introspection hook invoked during Step; outside of Step it
// reflects whatever phase last ran.
func (k *Kernel) CurrentPhase() Phase { return k.phase }

// Abort requests that the current Step call return Aborted. The request is
// checked between master cycles: the master cycle in progress finishes all
// of its phases first, and Step returns with Cycle() at the next cycle due
// to run. A request made while no Step is running is discarded, since Step
// clears it on entry. Like Stop, this is meant to be called
// synchronously from within a process's StepFunc (e.g. a breakpoint check)
// since the kernel is single-threaded by design; calling it from another
// goroutine while Step is running is a data race.
func (k *Kernel) Abort() { k.aborted = true }

// Stop suspends stepping: the current Step call returns Aborted, and a
// subsequent Step call resumes from the same master cycle. See Abort for
// the single-threaded calling convention.
func (k *Kernel) Stop() { k.suspended = true }

// Step advances the simulation. budget is the maximum number of master
// cycles to advance by (pass Unbounded to run until Idle/Deadlock/Aborted).
// When a deadlock is detected, Step returns Deadlock together with a
// *DeadlockError. Any other non-nil err comes with a meaningless RunState:
// it is a *SimulationError, raised when a process's StepFunc violates the
// acquire-commit repeatability invariant; once that happens the Kernel is
// poisoned and every subsequent Step call fails immediately with a plain
// error.
func (k *Kernel) Step(budget uint64) (RunState, error) {
	if k.poisoned {
		return Running, fmt.Errorf("kernel: Step called after a simulation exception; kernel state is inspectable but not resumable")
	}

	r := k.registry
	r.frozen = true

	unbounded := budget == Unbounded
	var endCycle uint64
	if !unbounded {
		endCycle = r.masterCycle + budget
	}

	if r.activeHead == nil {
		return Idle, nil
	}
	r.masterCycle = r.activeHead.nextFire

	k.aborted = false
	k.suspended = false

	const (
		exitNone = iota
		exitAborted
		exitSuspended
		exitIdle
		exitBudget
	)
	reason := exitNone
	idle := false

	for {
		if k.aborted {
			reason = exitAborted
			break
		}
		if k.suspended && !(k.hasLastSuspend && k.lastSuspend == r.masterCycle) {
			reason = exitSuspended
			break
		}
		if idle {
			reason = exitIdle
			break
		}
		if !unbounded && r.masterCycle >= endCycle {
			reason = exitBudget
			break
		}

		idle = true

		if k.updateStorages() {
			idle = false
		}

		k.runAcquire()
		k.runArbitrate()
		if err := k.runCommit(&idle); err != nil {
			k.poisoned = true
			return Running, err
		}
		k.sweepDeactivations()

		if idle {
			for c := r.activeHead; c != nil; c = c.next {
				if c.nextFire > r.masterCycle {
					idle = false
					break
				}
			}
		}

		if !idle {
			k.advanceClocks()
		}
	}

	if !unbounded && r.masterCycle > endCycle {
		r.masterCycle = endCycle
	}

	switch reason {
	case exitAborted:
		return Aborted, nil
	case exitSuspended:
		k.hasLastSuspend = true
		k.lastSuspend = r.masterCycle
		return Aborted, nil
	case exitIdle:
		if dl := k.deadlockReport(); dl != nil {
			for _, s := range dl.Stalled {
				k.Debugf(DebugDeadlock, "cycle=%d deadlock: process=%q clock=%dHz stalls=%d",
					dl.Cycle, s.ProcessName, s.ClockFrequency, s.StallCount)
			}
			return Deadlock, dl
		}
		return Idle, nil
	default: // exitBudget
		return Running, nil
	}
}

// runAcquire invokes Acquire on every process of every clock due at the
// current master cycle.
func (k *Kernel) runAcquire() {
	k.phase = Acquire
	cycle := k.registry.masterCycle
	for c := k.registry.activeHead; c != nil && c.nextFire == cycle; c = c.next {
		for p := c.activeProcesses; p != nil; p = p.next {
			k.currentProcess = p
			res := p.step(Acquire)
			k.record(p, Acquire, res)
		}
	}
}

// runArbitrate resolves and clears every arbitrator active on a due clock.
// Runs strictly after every due clock's acquire and strictly before any due
// clock's commit (SPEC_FULL.md §4.5).
func (k *Kernel) runArbitrate() {
	cycle := k.registry.masterCycle
	for c := k.registry.activeHead; c != nil && c.nextFire == cycle; c = c.next {
		for a := c.activeArbitrators; a != nil; a = a.next {
			a.arbitrate()
			if a.winner != nil {
				k.Debugf(DebugArbitration, "cycle=%d clock=%dHz arbitrator=%q winner=%q",
					cycle, c.frequency, a.name, a.winner.name)
			}
		}
		c.activeArbitrators = nil
	}
}

// runCommit runs check then commit for every non-deadlocked process on a
// due clock, setting *idle to false whenever a process actually commits.
// Returns a *SimulationError if the repeatability invariant is violated.
func (k *Kernel) runCommit(idle *bool) error {
	cycle := k.registry.masterCycle
	for c := k.registry.activeHead; c != nil && c.nextFire == cycle; c = c.next {
		for p := c.activeProcesses; p != nil; p = p.next {
			if p.state == ProcessDeadlocked {
				continue
			}
			k.currentProcess = p
			k.phase = Check
			res := p.step(Check)
			k.record(p, Check, res)
			if res != Success {
				return &SimulationError{
					ProcessName: p.name,
					Cycle:       cycle,
					Err:         &RepeatabilityError{Phase: Check, Result: res},
				}
			}

			k.phase = Commit
			res = p.step(Commit)
			k.record(p, Commit, res)
			if res != Success {
				return &SimulationError{
					ProcessName: p.name,
					Cycle:       cycle,
					Err:         &RepeatabilityError{Phase: Commit, Result: res},
				}
			}
			p.state = ProcessRunning
			*idle = false
		}
	}
	return nil
}

// updateStorages applies every buffered update on a due clock's active
// storages, the "moment of visibility" described in SPEC_FULL.md §4.6.
func (k *Kernel) updateStorages() bool {
	cycle := k.registry.masterCycle
	updated := false
	for c := k.registry.activeHead; c != nil && c.nextFire == cycle; c = c.next {
		for s := c.activeStorages; s != nil; s = s.next() {
			s.commit()
			updated = true
		}
		c.activeStorages = nil
	}
	return updated
}

// sweepDeactivations removes every process that called Deactivate during
// this cycle (and has not since cancelled that request with a fresh
// Activate) from its clock's active list, once commit has finished for the
// cycle (Process.Deactivate's documented timing).
func (k *Kernel) sweepDeactivations() {
	cycle := k.registry.masterCycle
	for c := k.registry.activeHead; c != nil && c.nextFire == cycle; c = c.next {
		var head, tail *Process
		for p := c.activeProcesses; p != nil; {
			next := p.next
			p.next = nil
			if p.pendingDeactivate {
				p.active = false
				p.pendingDeactivate = false
				p.state = ProcessIdle
			} else if head == nil {
				head, tail = p, p
			} else {
				tail.next = p
				tail = p
			}
			p = next
		}
		c.activeProcesses = head
	}
}

// advanceClocks removes every due clock from the active list, reschedules
// any that still have active sub-lists, and advances the master cycle to
// the next clock due to run.
func (k *Kernel) advanceClocks() {
	r := k.registry
	cycle := r.masterCycle
	var next *Clock
	for c := r.activeHead; c != nil && c.nextFire == cycle; c = next {
		next = c.next
		r.activeHead = c.next
		c.activated = false
		if c.activeProcesses != nil || c.activeStorages != nil {
			r.reschedule(c)
		}
	}
	if r.activeHead != nil {
		r.masterCycle = r.activeHead.nextFire
	}
}

// deadlockReport builds a DeadlockError from every process still
// Deadlocked on a clock due at the current cycle, or nil if none are.
func (k *Kernel) deadlockReport() *DeadlockError {
	cycle := k.registry.masterCycle
	var stalled []StallInfo
	for c := k.registry.activeHead; c != nil && c.nextFire == cycle; c = c.next {
		for p := c.activeProcesses; p != nil; p = p.next {
			if p.state == ProcessDeadlocked {
				stalled = append(stalled, StallInfo{
					ProcessName:    p.name,
					ClockFrequency: c.frequency,
					StallCount:     p.stalls,
				})
			}
		}
	}
	if len(stalled) == 0 {
		return nil
	}
	return &DeadlockError{Cycle: cycle, Stalled: stalled}
}

// ProcessInfo is a snapshot of one process for the introspection API
// (SPEC_FULL.md §6).
type ProcessInfo struct {
	Name           string
	State          ProcessState
	StallCount     uint64
	ClockFrequency uint64
}

// ProcessInfos reports every process ever created on this kernel, in
// creation order, regardless of whether it is currently active.
func (k *Kernel) ProcessInfos() []ProcessInfo {
	infos := make([]ProcessInfo, len(k.allProcesses))
	for i, p := range k.allProcesses {
		infos[i] = ProcessInfo{
			Name:           p.name,
			State:          p.state,
			StallCount:     p.stalls,
			ClockFrequency: p.clock.frequency,
		}
	}
	return infos
}
