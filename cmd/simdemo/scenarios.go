package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgsim/kernel/kernel"
	"github.com/mgsim/kernel/sample"
)

// scenario names a buildable, runnable reconstruction of one of the
// testable scenarios from SPEC_FULL.md §8 (S1-S5; S6's abort/resume
// behavior needs a synchronous caller and doesn't fit this batch-run
// shape, so it is exercised only by kernel_test.go). build may register
// samples against the run's registry; most scenarios have nothing worth
// sampling and leave it untouched.
type scenario struct {
	name        string
	description string
	budget      uint64
	build       func(k *kernel.Kernel, samples *sample.Registry)
}

var scenarios = []scenario{
	{
		name:        "s1",
		description: "two clocks (300MHz, 400MHz) ticking at their own rates under a shared master cycle",
		budget:      12,
		build: func(k *kernel.Kernel, samples *sample.Registry) {
			c300, err := k.CreateClock(300)
			if err != nil {
				fatalf("create 300Hz clock: %v", err)
			}
			c400, err := k.CreateClock(400)
			if err != nil {
				fatalf("create 400Hz clock: %v", err)
			}
			mustProcess(k, "p300", c300, func(phase kernel.Phase) kernel.Result { return kernel.Success }).Activate()
			mustProcess(k, "p400", c400, func(phase kernel.Phase) kernel.Result { return kernel.Success }).Activate()
		},
	},
	{
		name:        "s2",
		description: "a single-clock register: one writer, one reader observing deferred visibility",
		budget:      4,
		build: func(k *kernel.Kernel, samples *sample.Registry) {
			clk, err := k.CreateClock(100)
			if err != nil {
				fatalf("create clock: %v", err)
			}
			reg, err := k.NewRegister("reg", clk, 0)
			if err != nil {
				fatalf("create register: %v", err)
			}
			wrote := false
			mustProcess(k, "writer", clk, func(phase kernel.Phase) kernel.Result {
				if phase == kernel.Commit && !wrote {
					reg.Write(7)
					wrote = true
				}
				return kernel.Success
			}).Activate()
			mustProcess(k, "reader", clk, func(phase kernel.Phase) kernel.Result { return kernel.Success }).Activate()
		},
	},
	{
		name:        "s3",
		description: "a bounded FIFO buffer of capacity 2 with one writer and one draining reader",
		budget:      6,
		build: func(k *kernel.Kernel, samples *sample.Registry) {
			clk, err := k.CreateClock(100)
			if err != nil {
				fatalf("create clock: %v", err)
			}
			buf, err := k.NewBuffer("buf", clk, 2)
			if err != nil {
				fatalf("create buffer: %v", err)
			}
			values := []uint64{0xA, 0xB, 0xC}
			pushed := 0
			mustProcess(k, "writer", clk, func(phase kernel.Phase) kernel.Result {
				if phase == kernel.Commit && pushed < len(values) {
					if buf.Push(values[pushed]) {
						pushed++
					}
				}
				return kernel.Success
			}).Activate()
			mustProcess(k, "reader", clk, func(phase kernel.Phase) kernel.Result {
				if phase == kernel.Commit {
					if _, ok := buf.Front(); ok {
						buf.Pop()
					}
				}
				return kernel.Success
			}).Activate()
			if err := samples.Register("buf.max_observed_size", sample.MaxWatermark, func() any { return buf.MaxObservedSize() }); err != nil {
				fatalf("register buf watermark sample: %v", err)
			}
		},
	},
	{
		name:        "s4",
		description: "three clocks (100/200/400MHz) each driving the same counter",
		budget:      12,
		build: func(k *kernel.Kernel, samples *sample.Registry) {
			c100, err := k.CreateClock(100)
			if err != nil {
				fatalf("create 100Hz clock: %v", err)
			}
			c200, err := k.CreateClock(200)
			if err != nil {
				fatalf("create 200Hz clock: %v", err)
			}
			c400, err := k.CreateClock(400)
			if err != nil {
				fatalf("create 400Hz clock: %v", err)
			}
			counter, err := k.NewCounter("counter", c400, 0)
			if err != nil {
				fatalf("create counter: %v", err)
			}
			for _, clk := range []*kernel.Clock{c100, c200, c400} {
				mustProcess(k, "incrementer", clk, func(phase kernel.Phase) kernel.Result {
					if phase == kernel.Commit {
						counter.Add(1)
					}
					return kernel.Success
				}).Activate()
			}
		},
	},
	{
		name:        "s5",
		description: "two processes circularly waiting on each other's single-slot buffers",
		budget:      kernel.Unbounded,
		build: func(k *kernel.Kernel, samples *sample.Registry) {
			clk, err := k.CreateClock(100)
			if err != nil {
				fatalf("create clock: %v", err)
			}
			x, err := k.NewBuffer("x", clk, 1)
			if err != nil {
				fatalf("create buffer x: %v", err)
			}
			y, err := k.NewBuffer("y", clk, 1)
			if err != nil {
				fatalf("create buffer y: %v", err)
			}
			mustProcess(k, "p", clk, func(phase kernel.Phase) kernel.Result {
				if _, ok := x.Front(); !ok {
					return kernel.Failed
				}
				if phase == kernel.Commit {
					x.Pop()
					y.Push(1)
				}
				return kernel.Success
			}).Activate()
			mustProcess(k, "q", clk, func(phase kernel.Phase) kernel.Result {
				if _, ok := y.Front(); !ok {
					return kernel.Failed
				}
				if phase == kernel.Commit {
					y.Pop()
					x.Push(1)
				}
				return kernel.Success
			}).Activate()
		},
	},
}

// mustProcess wraps NewProcess for scenario builders, where a construction
// failure is always a programming error in the scenario itself (every
// scenario is driven entirely by this program's own literals, never by
// user input).
func mustProcess(k *kernel.Kernel, name string, clk *kernel.Clock, fn kernel.StepFunc) *kernel.Process {
	p, err := k.NewProcess(name, clk, fn)
	if err != nil {
		fatalf("create process %q: %v", name, err)
	}
	return p
}

func findScenario(name string) (scenario, bool) {
	for _, s := range scenarios {
		if s.name == name {
			return s, true
		}
	}
	return scenario{}, false
}

// newScenarioCmd builds the "scenario" subcommand, which runs one of the
// named scenarios from SPEC_FULL.md §8 to completion and prints its trace.
func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "scenario {s1|s2|s3|s4|s5}",
		Short:     "Run one of the kernel's testable scenarios and print its trace",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"s1", "s2", "s3", "s4", "s5"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := findScenario(args[0])
			if !ok {
				return fmt.Errorf("unknown scenario %q (want one of s1-s5)", args[0])
			}

			log := newLogger()
			k := kernel.NewKernel()
			if debugNarration {
				k.DebugFlagsSet(kernel.DebugPhases | kernel.DebugArbitration | kernel.DebugDeadlock)
			}
			k.EnableTrace()
			samples := sample.NewRegistry()

			log.Info("building scenario", "name", s.name, "description", s.description)
			s.build(k, samples)

			state, err := k.Step(s.budget)
			for _, ev := range k.Trace() {
				log.Info("trace", "cycle", ev.Cycle, "process", ev.Process, "phase", ev.Phase.String(), "result", ev.Result.String())
			}
			if err != nil {
				var dl *kernel.DeadlockError
				if errors.As(err, &dl) {
					for _, stall := range dl.Stalled {
						log.Error("stalled process", "name", stall.ProcessName, "clock_hz", stall.ClockFrequency, "stall_count", stall.StallCount)
					}
				}
				log.Error("scenario ended in error", "state", state.String(), "error", err)
				return err
			}

			for _, v := range samples.Snapshot() {
				log.Info("sample", "name", v.Name, "category", v.Category.String(), "value", v.Reading)
			}
			log.Info("scenario complete", "name", s.name, "state", state.String(), "final_cycle", k.Cycle())
			return nil
		},
	}
	return cmd
}
