package kernel

import "fmt"

// ProcessState is the run state of a Process as of the most recently
// completed phase.
type ProcessState int

const (
	// ProcessIdle means the process has not yet completed an Acquire
	// phase with Success or Failed, or was removed from its clock's
	// active list by Deactivate.
	ProcessIdle ProcessState = iota
	// ProcessRunning means the process last completed a cycle with a
	// committed Success result.
	ProcessRunning
	// ProcessDeadlocked means the process's acquire phase returned
	// Failed this cycle, or it lost arbitration for a resource it
	// requested.
	ProcessDeadlocked
)

// String implements fmt.Stringer.
func (s ProcessState) String() string {
	switch s {
	case ProcessIdle:
		return "idle"
	case ProcessRunning:
		return "running"
	case ProcessDeadlocked:
		return "deadlocked"
	default:
		return fmt.Sprintf("ProcessState(%d)", int(s))
	}
}

// Result is the three-valued outcome of a single phase invocation of a
// Process's step function (SPEC_FULL.md §4.3 / distilled spec §9).
type Result int

const (
	// Success indicates the process is ready to proceed: during Acquire
	// it may be re-invoked for Check and then Commit; during Check or
	// Commit it means the phase completed as expected.
	Success Result = iota
	// Failed indicates the process could not acquire the resources it
	// needs this cycle. It is marked ProcessDeadlocked and retried next
	// cycle.
	Failed
	// Delayed indicates the process had no work to do this cycle. It is
	// not deadlocked and does not run Check/Commit.
	Delayed
)

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Delayed:
		return "delayed"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Phase identifies which of the three per-cycle sub-phases a StepFunc is
// being invoked for.
type Phase int

const (
	// Acquire is the first phase: the process may call Request on
	// arbitrators and read current storage state, and must return its
	// tentative Result.
	Acquire Phase = iota
	// Check re-executes the same acquire logic after arbitration, to
	// confirm the process still succeeds once it knows whether it won
	// any contested resources it requested.
	Check
	// Commit performs the process's state mutations via storage writes.
	// Only invoked after a successful Check, and by the repeatability
	// invariant must also return Success.
	Commit
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case Acquire:
		return "acquire"
	case Check:
		return "check"
	case Commit:
		return "commit"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// StepFunc is the per-cycle behavior attached to a Process. The kernel
// invokes it once for Acquire and then, only if warranted, once each for
// Check and Commit. A well-written StepFunc distinguishes phases by a
// single "would it commit?" guard, so that side effects occur only when
// phase == Commit and a successful Acquire is always repeatable.
type StepFunc func(phase Phase) Result

// Process is a piece of per-cycle behavior bound to exactly one Clock for
// its entire lifetime.
type Process struct {
	name  string
	clock *Clock
	fn    StepFunc

	state  ProcessState
	stalls uint64
	runs   uint64

	next              *Process
	active            bool
	pendingDeactivate bool
}

// NewProcess creates a Process bound to clk with the given name (used for
// introspection; need not be unique) and step function. Returns an error if
// clk has already been frozen by a Step call, or if name/step/clk are
// missing.
func (k *Kernel) NewProcess(name string, clk *Clock, step StepFunc) (*Process, error) {
	if k.registry.frozen {
		return nil, ErrRegistryFrozen
	}
	if name == "" {
		return nil, fmt.Errorf("kernel: process name must not be empty")
	}
	if clk == nil {
		return nil, fmt.Errorf("kernel: process %q: clock must not be nil", name)
	}
	if step == nil {
		return nil, fmt.Errorf("kernel: process %q: step function must not be nil", name)
	}
	p := &Process{name: name, clock: clk, fn: step}
	k.allProcesses = append(k.allProcesses, p)
	return p, nil
}

// Name returns the process's introspection name.
func (p *Process) Name() string { return p.name }

// State returns the process's state as of the most recently completed
// phase.
func (p *Process) State() ProcessState { return p.state }

// StallCount returns the number of cycles in which this process's Acquire
// phase returned Failed.
func (p *Process) StallCount() uint64 { return p.stalls }

// RunCount returns the number of cycles in which this process successfully
// committed.
func (p *Process) RunCount() uint64 { return p.runs }

// Clock returns the clock this process is bound to.
func (p *Process) Clock() *Clock { return p.clock }

// Activate marks the process runnable on its clock for the current cycle.
// Idempotent: calling it again before the clock's active list next drains
// has no additional effect. Storages and arbitrators call this on behalf of
// their subscribers when they wake a process up.
func (p *Process) Activate() {
	p.pendingDeactivate = false
	p.clock.ActivateProcess(p)
}

// Deactivate requests that the process be dropped from its clock's active
// list once the current cycle's commit phase finishes: it will not be
// invoked again until Activate is called, whether by itself (typically from
// Commit, once it knows it has no more work) or by a storage it subscribes
// to. Calling Deactivate and then Activate again within the same cycle
// cancels the pending removal.
func (p *Process) Deactivate() {
	p.pendingDeactivate = true
}

// step invokes the process's StepFunc for the given phase and updates
// state/stall/run bookkeeping. Called exclusively by the kernel scheduler.
func (p *Process) step(phase Phase) Result {
	result := p.fn(phase)
	switch phase {
	case Acquire:
		switch result {
		case Success:
			p.state = ProcessRunning
		case Failed:
			p.state = ProcessDeadlocked
			p.stalls++
		}
		// Delayed leaves state untouched: neither running nor deadlocked.
	case Commit:
		if result == Success {
			p.runs++
		}
	}
	return result
}

// markDeadlocked is used by the arbitrator to fail a process that lost
// arbitration after a successful acquire: it will not run Check/Commit this
// cycle and is retried next cycle.
func (p *Process) markDeadlocked() {
	p.state = ProcessDeadlocked
}
