// debugger.go - Machine debugger core: state, activation, and the
// scrollback buffer the command processor and TUI front-end render.
//
// Grounded on debug_monitor.go's MachineMonitor, narrowed from its
// multi-CPU/multi-device registry down to the single CPU + single Bus
// + one set of segment registers this core models (spec §4.5/§6).

package debugger

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ie286emu/core/internal/bus"
	"github.com/ie286emu/core/internal/cpuiface"
	"github.com/ie286emu/core/internal/segment"
)

// Config configures a Debugger at construction (spec §6).
type Config struct {
	DefaultBase  int // 8, 10, or 16; default 16
	DefaultBits  int // default busAddrWidth
	HistoryLimit int // default 100000
}

// OutputLine holds one line of scrollback text.
type OutputLine struct {
	Text string
}

// Debugger is the interactive machine debugger's core state machine:
// breakpoint/watchpoint manager, step history, and the scrollback
// buffer, wired to one CPU/Clock/Bus/segment set.
type Debugger struct {
	mu sync.Mutex

	CPU   cpuiface.CPU
	Clock cpuiface.Clock
	Bus   *bus.Bus
	Segs  map[string]*segment.Register // by register name: CS, DS, ES, SS

	cfg Config

	active bool

	Breakpoints *Breakpoints
	History     *History

	output    []OutputLine
	maxOutput int

	breakChan chan cpuiface.BreakpointEvent

	group     *errgroup.Group
	groupCtx  context.Context
	groupStop context.CancelFunc
}

// New builds a Debugger against the given collaborators.
func New(cpu cpuiface.CPU, clock cpuiface.Clock, b *bus.Bus, segs map[string]*segment.Register, cfg Config) *Debugger {
	if cfg.DefaultBase == 0 {
		cfg.DefaultBase = 16
	}
	if cfg.DefaultBits == 0 {
		cfg.DefaultBits = b.AddrWidth()
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = 100000
	}
	d := &Debugger{
		CPU:       cpu,
		Clock:     clock,
		Bus:       b,
		Segs:      segs,
		cfg:       cfg,
		maxOutput: 2000,
		breakChan: make(chan cpuiface.BreakpointEvent, 1),
	}
	d.Breakpoints = newBreakpoints(b, d.breakChan)
	d.History = newHistory(cfg.HistoryLimit, b, cpu.PC)
	return d
}

// Printf appends a formatted line to the scrollback buffer.
func (d *Debugger) Printf(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.appendOutput(fmt.Sprintf(format, args...))
}

func (d *Debugger) appendOutput(text string) {
	d.output = append(d.output, OutputLine{Text: text})
	if len(d.output) > d.maxOutput {
		d.output = d.output[len(d.output)-d.maxOutput:]
	}
}

// Output returns a copy of the current scrollback buffer.
func (d *Debugger) Output() []OutputLine {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]OutputLine, len(d.output))
	copy(out, d.output)
	return out
}

// Activate freezes the clock and enters the debugger (spec: breakpoint
// hits and explicit entry both route here).
func (d *Debugger) Activate(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active {
		return
	}
	d.active = true
	d.Clock.Stop(reason)
	d.appendOutput(reason)
}

// Resume leaves the debugger and restarts the clock.
func (d *Debugger) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return
	}
	d.active = false
	d.Clock.Start()
}

// IsActive reports whether the debugger currently holds the machine.
func (d *Debugger) IsActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// StartBreakpointListener launches the breakpoint/watchpoint drain loop
// under an errgroup.Group rather than a bare goroutine, mirroring
// trapLoop's channel-fed pattern but giving the listener a supervised
// lifetime: StopBreakpointListener cancels ctx, the loop exits cleanly
// on <-ctx.Done(), and Wait() surfaces any error instead of letting a
// panic or a stuck goroutine go unnoticed. The stub-CPU step loop
// (cmd/ie286dbg) is expected to join the same group so both background
// goroutines share one shutdown path.
func (d *Debugger) StartBreakpointListener() {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	d.group = g
	d.groupCtx = gctx
	d.groupStop = cancel
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev, ok := <-d.breakChan:
				if !ok {
					return nil
				}
				d.handleBreakpointHit(ev)
			}
		}
	})
}

// StopBreakpointListener cancels the listener goroutine and blocks
// until it (and any other goroutine joined to the same group, such as
// a stub-CPU runner started via Go) has returned, surfacing the first
// error if any.
func (d *Debugger) StopBreakpointListener() error {
	if d.groupStop == nil {
		return nil
	}
	d.groupStop()
	err := d.group.Wait()
	d.group, d.groupCtx, d.groupStop = nil, nil, nil
	return err
}

// Go joins fn to the same errgroup supervising the breakpoint listener,
// so a stub-CPU runner goroutine shares its shutdown and error
// propagation (spec §5: the runner and the debugger's command loop
// never touch the bus concurrently; StopBreakpointListener's context
// cancellation is the signal the runner waits on before returning).
// StartBreakpointListener must run first.
func (d *Debugger) Go(fn func(ctx context.Context) error) {
	ctx := d.groupCtx
	d.group.Go(func() error { return fn(ctx) })
}

func (d *Debugger) handleBreakpointHit(ev cpuiface.BreakpointEvent) {
	var msg string
	if ev.IsWatch {
		msg = fmt.Sprintf("WATCH $%X: $%02X -> $%02X at PC=$%X", ev.WatchAddr, ev.WatchOldValue, ev.WatchNewValue, ev.Address)
	} else {
		msg = fmt.Sprintf("BREAK at $%X", ev.Address)
	}
	d.Activate(msg)
}

