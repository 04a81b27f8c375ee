package kernel

// request records one process's bid for a contended resource during a
// single acquire phase.
type request struct {
	process  *Process
	priority int
}

// Arbitrator resolves per-cycle contention for a shared resource: during
// the acquire phase, every process that needs the resource calls Request;
// between acquire and commit the kernel invokes the arbitrator once to pick
// a single winner, deadlocking every loser's process for the cycle.
//
// Ties at the highest requested priority are broken by a round-robin index
// stored on the arbitrator, so that repeated contention between the same
// set of processes rotates the winner rather than starving anyone
// (SPEC_FULL.md §4.5, §8 property 4). Grounded in jmchacon-6502/cpu.Chip's
// NMI-over-IRQ priority selection (a fixed two-level priority, evaluated
// once per tick), generalized here to N requesters and made to rotate on
// ties instead of always preferring the same source.
type Arbitrator struct {
	clock *Clock
	name  string

	requests []request
	rotate   int

	winner *Process

	active bool
	next   *Arbitrator
}

// NewArbitrator creates an Arbitrator bound to clk.
func (k *Kernel) NewArbitrator(name string, clk *Clock) (*Arbitrator, error) {
	if k.registry.frozen {
		return nil, ErrRegistryFrozen
	}
	if clk == nil {
		return nil, ErrStorageNoClock
	}
	return &Arbitrator{clock: clk, name: name}, nil
}

// Name returns the arbitrator's introspection name.
func (a *Arbitrator) Name() string { return a.name }

// Request records p's bid for this cycle with the given static priority
// (higher wins ties only against lower-priority bids; among bids tied at
// the highest priority, the round-robin index decides). A process must
// call Request at most once per cycle.
func (a *Arbitrator) Request(p *Process, priority int) {
	a.requests = append(a.requests, request{process: p, priority: priority})
	a.clock.activateArbitrator(a)
}

// Won reports whether p was selected as this arbitrator's winner for the
// cycle just arbitrated. Valid to call during Check/Commit of the same
// cycle. The request set itself is already cleared by then; the recorded
// winner stays until this arbitrator next arbitrates.
func (a *Arbitrator) Won(p *Process) bool {
	return a.winner != nil && a.winner == p
}

// arbitrate selects one winner among this cycle's requesters by highest
// priority, breaking ties with the stored round-robin index, deadlocks
// every loser, and clears the request set. Called exactly once per active
// arbitrator by the kernel, between the acquire and commit phases.
func (a *Arbitrator) arbitrate() {
	a.winner = nil
	if len(a.requests) == 0 {
		a.active = false
		return
	}

	best := a.requests[0].priority
	for _, r := range a.requests[1:] {
		if r.priority > best {
			best = r.priority
		}
	}

	var tied []int
	for i, r := range a.requests {
		if r.priority == best {
			tied = append(tied, i)
		}
	}

	winIdx := tied[a.rotate%len(tied)]
	a.rotate++

	a.winner = a.requests[winIdx].process
	for i, r := range a.requests {
		if i != winIdx {
			r.process.markDeadlocked()
		}
	}

	a.requests = a.requests[:0]
	a.active = false
}
