// runner.go - the stub CPU's free-run loop, driven on its own
// goroutine and joined to the debugger's errgroup (internal/debugger's
// StartBreakpointListener). Implements cpuiface.Clock so the `g`
// command with no argument (Debugger.Resume -> Clock.Start) and a
// breakpoint hit (Debugger.Activate -> Clock.Stop) drive it the same
// way internal/debugger's tests drive a fakeClock.
package main

import (
	"context"
	"sync"

	"github.com/ie286emu/core/internal/debugger"
	"github.com/ie286emu/core/internal/stubcpu"
)

type cpuRunner struct {
	d   *debugger.Debugger
	cp  *debugger.CommandProcessor
	cpu *stubcpu.CPU

	mu      sync.Mutex
	running bool
	resume  chan struct{}
}

func newCPURunner(d *debugger.Debugger, cp *debugger.CommandProcessor, cpu *stubcpu.CPU) *cpuRunner {
	return &cpuRunner{d: d, cp: cp, cpu: cpu, resume: make(chan struct{}, 1)}
}

// Start implements cpuiface.Clock: wakes the free-run loop.
func (r *cpuRunner) Start() {
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()
	select {
	case r.resume <- struct{}{}:
	default:
	}
}

// Stop implements cpuiface.Clock: the loop notices on its next
// breakpoint/halt check and parks until Start wakes it again.
func (r *cpuRunner) Stop(reason string) {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *cpuRunner) OnStep(n int) {}

func (r *cpuRunner) isRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run is joined to the debugger's errgroup via Debugger.Go. It blocks
// on resume until Start is called, then free-runs: Step, CheckHit,
// exactly the sequence CommandProcessor.step uses for a single `t` (step
// history, when enabled, is recorded by the Bus's own read trap as the
// CPU fetches each instruction, not by an explicit call here), so a
// breakpoint fires identically whether hit by single-stepping or by a
// free-running `g`. The loop parks again as soon as Stop clears running
// or ctx is cancelled, before touching the bus again — the debugger's
// command goroutine is never racing this one against the same CPU/Bus
// state.
func (r *cpuRunner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.resume:
		}
		for r.isRunning() {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if r.cpu.Halted {
				r.Stop("halted")
				break
			}
			r.cpu.Step()
			if r.d.Breakpoints.CheckHit(r.cpu.PC(), r.cp.Resolve) {
				break
			}
		}
	}
}
