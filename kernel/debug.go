package kernel

import (
	"fmt"
	"log"
)

// DebugFlags is a bitmask controlling which categories of debug narration a
// Kernel emits during Step, mirroring the teacher's per-component Debug
// bool (jmchacon-6502/atari2600.VCSDef.Debug) generalized to a bitmask since
// this kernel has several independently interesting things to narrate
// (phase transitions, arbitration, deadlock detection) rather than one.
type DebugFlags uint32

const (
	// DebugPhases logs every acquire/check/commit invocation of a process.
	DebugPhases DebugFlags = 1 << iota
	// DebugArbitration logs every arbitrator's winner each cycle it runs.
	DebugArbitration
	// DebugDeadlock logs the stalled-process report whenever Step returns
	// Deadlock.
	DebugDeadlock
)

// DebugFlagsSet replaces the kernel's debug flags wholesale (SPEC_FULL.md
// §6: "debug_flags_set(mask)").
func (k *Kernel) DebugFlagsSet(flags DebugFlags) { k.debugFlags = flags }

// DebugFlagsToggle flips the given bits in the kernel's debug flags
// (SPEC_FULL.md §6: "...toggle(mask)").
func (k *Kernel) DebugFlagsToggle(flags DebugFlags) { k.debugFlags ^= flags }

// Debugf emits a log.Printf-style message, gated by whether any of flags is
// currently set, in the teacher's own idiom of a debug-gated log.Printf
// rather than a structured logging library (SPEC_FULL.md §9: the kernel
// package itself uses only stdlib log; a richer logger belongs to an
// external collaborator such as cmd/simdemo).
func (k *Kernel) Debugf(flags DebugFlags, format string, args ...any) {
	if k.debugFlags&flags == 0 {
		return
	}
	log.Printf(format, args...)
}

// TraceEvent is one (master_cycle, process_name, phase, result) tuple
// recorded when tracing is enabled, used by the determinism property test
// (SPEC_FULL.md §8 property 7: "two identical runs produce byte-identical
// traces").
type TraceEvent struct {
	Cycle   uint64
	Process string
	Phase   Phase
	Result  Result
}

// EnableTrace turns on trace recording; every subsequent phase invocation is
// appended to the trace returned by Trace. Intended for tests, not
// production use (the trace grows unboundedly).
func (k *Kernel) EnableTrace() { k.traceEnabled = true }

// Trace returns every recorded TraceEvent since the kernel was created or
// since ClearTrace was last called.
func (k *Kernel) Trace() []TraceEvent { return k.trace }

// ClearTrace discards all recorded trace events without disabling tracing.
func (k *Kernel) ClearTrace() { k.trace = nil }

// record appends a trace event (if tracing is enabled) and emits debug
// narration (if DebugPhases is set) for one phase invocation of p.
func (k *Kernel) record(p *Process, phase Phase, res Result) {
	if k.traceEnabled {
		k.trace = append(k.trace, TraceEvent{
			Cycle:   k.registry.masterCycle,
			Process: p.name,
			Phase:   phase,
			Result:  res,
		})
	}
	k.Debugf(DebugPhases, "cycle=%d clock=%dHz process=%q phase=%s result=%s",
		k.registry.masterCycle, p.clock.frequency, p.name, phase, res)
}

// ClockInfo is a snapshot of one clock for the introspection API
// (SPEC_FULL.md §6: "iterate all clocks").
type ClockInfo struct {
	Name      string
	Frequency uint64
	Period    uint64
}

// ClockInfos reports every clock created on this kernel, in creation order.
func (k *Kernel) ClockInfos() []ClockInfo {
	clocks := k.registry.Clocks()
	infos := make([]ClockInfo, len(clocks))
	for i, c := range clocks {
		infos[i] = ClockInfo{Name: c.Name(), Frequency: c.Frequency(), Period: c.Period()}
	}
	return infos
}

// String implements fmt.Stringer for a TraceEvent, used by tests printing a
// readable diff of two traces.
func (e TraceEvent) String() string {
	return fmt.Sprintf("cycle=%d process=%q phase=%s result=%s", e.Cycle, e.Process, e.Phase, e.Result)
}
