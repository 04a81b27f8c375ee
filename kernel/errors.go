package kernel

import "fmt"

// Named setup errors (SPEC_FULL.md §7: "Setup error" row). Each is returned
// directly, never wrapped, so callers can compare with errors.Is.
var (
	// ErrFrequencyInvalid is returned by CreateClock for a frequency of 0.
	ErrFrequencyInvalid = fmt.Errorf("kernel: clock frequency must be >= 1")
	// ErrRegistryFrozen is returned by any construction call (CreateClock,
	// NewProcess, NewRegister, ...) made after the first call to Step.
	ErrRegistryFrozen = fmt.Errorf("kernel: construction attempted after simulation has started")
	// ErrStorageNoClock is returned by a storage constructor given a nil
	// clock.
	ErrStorageNoClock = fmt.Errorf("kernel: storage must be bound to a non-nil clock")
)

// StallInfo describes one deadlocked process as of the cycle a DeadlockError
// was raised, for the introspection API (SPEC_FULL.md §6/§7: "inspection
// API should list all stalled processes and waited-on storages").
type StallInfo struct {
	ProcessName    string
	ClockFrequency uint64
	StallCount     uint64
}

// DeadlockError is returned by Step when a whole master cycle passes with
// no storage update, no successful commit, and at least one process in the
// Deadlocked state (SPEC_FULL.md §4.6/§7).
type DeadlockError struct {
	Cycle   uint64
	Stalled []StallInfo
}

// Error implements the error interface.
func (e *DeadlockError) Error() string {
	return fmt.Sprintf("kernel: deadlock at master cycle %d: %d process(es) stalled", e.Cycle, len(e.Stalled))
}

// SimulationError wraps an unrecoverable error detected while running a
// process's step function with the context needed to identify the offending
// process and cycle (SPEC_FULL.md §7: "Simulation exception"). The kernel
// produces it only for acquire-commit repeatability violations (Err is then
// a *RepeatabilityError); a panic inside a StepFunc is not recovered and is
// not converted into a SimulationError. Once returned, the Kernel that
// produced it must not be stepped further.
type SimulationError struct {
	ProcessName string
	Cycle       uint64
	Err         error
}

// Error implements the error interface.
func (e *SimulationError) Error() string {
	return fmt.Sprintf("kernel: process %q at master cycle %d: %v", e.ProcessName, e.Cycle, e.Err)
}

// Unwrap allows errors.Is/errors.As to see through to the underlying cause.
func (e *SimulationError) Unwrap() error { return e.Err }

// RepeatabilityError is raised (as a SimulationError's cause) when a
// process's Check phase returns something other than Success after a
// successful Acquire, or when Commit returns something other than Success
// after a successful Check — both are programming errors under the
// acquire-commit repeatability invariant (SPEC_FULL.md §8 property 3).
type RepeatabilityError struct {
	Phase  Phase
	Result Result
}

// Error implements the error interface.
func (e *RepeatabilityError) Error() string {
	return fmt.Sprintf("kernel: repeatability invariant violated: %s phase returned %s, want success", e.Phase, e.Result)
}
