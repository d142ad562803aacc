// breakpoints.go - Breakpoint and watchpoint manager.
//
// Grounded on debug_monitor.go's CPU-side breakpoint calls plus spec
// §9's Design Note: "disabled" is a tagged {addr, enabled} record, not
// source's trick of adding 2^32 to a 32-bit address to mean disabled.
// Watchpoints are wired directly to bus.Bus's write-trap API instead
// of the teacher's CPU-adapter-level SetWatchpoint, since this core's
// Bus already gives every block a trap slot (spec §4.5).

package debugger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ie286emu/core/internal/bus"
	"github.com/ie286emu/core/internal/cpuiface"
)

// Breakpoint is one instruction breakpoint, optionally conditional.
type Breakpoint struct {
	Addr      uint64
	Enabled   bool
	Condition *Condition
	HitCount  uint64
}

// Watchpoint is a write watchpoint on one bus address.
type Watchpoint struct {
	Addr      uint32
	Enabled   bool
	lastValue byte
}

// Breakpoints owns the instruction-breakpoint and watchpoint tables
// for one CPU/Bus pair.
type Breakpoints struct {
	mu sync.Mutex

	bus       *bus.Bus
	breakChan chan<- cpuiface.BreakpointEvent

	byAddr map[uint64]*Breakpoint
	watch  map[uint32]*Watchpoint
}

func newBreakpoints(b *bus.Bus, ch chan<- cpuiface.BreakpointEvent) *Breakpoints {
	return &Breakpoints{
		bus:       b,
		breakChan: ch,
		byAddr:    make(map[uint64]*Breakpoint),
		watch:     make(map[uint32]*Watchpoint),
	}
}

// Set installs an unconditional, enabled breakpoint at addr.
func (bp *Breakpoints) Set(addr uint64) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.byAddr[addr] = &Breakpoint{Addr: addr, Enabled: true}
}

// SetConditional installs a conditional breakpoint at addr.
func (bp *Breakpoints) SetConditional(addr uint64, cond *Condition) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.byAddr[addr] = &Breakpoint{Addr: addr, Enabled: true, Condition: cond}
}

// Clear removes the breakpoint at addr. Returns false if none existed.
func (bp *Breakpoints) Clear(addr uint64) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if _, ok := bp.byAddr[addr]; !ok {
		return false
	}
	delete(bp.byAddr, addr)
	return true
}

// ClearAll removes every breakpoint.
func (bp *Breakpoints) ClearAll() {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.byAddr = make(map[uint64]*Breakpoint)
}

// List returns every breakpoint address in ascending order.
func (bp *Breakpoints) List() []uint64 {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	addrs := make([]uint64, 0, len(bp.byAddr))
	for a := range bp.byAddr {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// Get returns the breakpoint record at addr, or nil.
func (bp *Breakpoints) Get(addr uint64) *Breakpoint {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.byAddr[addr]
}

// CheckHit is called by the stub CPU's run loop after each Step with
// the new PC. It evaluates any matching breakpoint's condition,
// increments its hit count on a match, and publishes a
// BreakpointEvent when it fires. resolve looks up registers/memory
// for a conditional expression (see conditions.go).
func (bp *Breakpoints) CheckHit(pc uint64, resolve ResolveFunc) bool {
	bp.mu.Lock()
	b, ok := bp.byAddr[pc]
	if !ok || !b.Enabled {
		bp.mu.Unlock()
		return false
	}
	fires := b.Condition == nil || b.Condition.Eval(resolve, b.HitCount+1)
	if fires {
		b.HitCount++
	}
	bp.mu.Unlock()

	if !fires {
		return false
	}
	bp.breakChan <- cpuiface.BreakpointEvent{Address: pc}
	return true
}

// SetWatch installs a write watchpoint at addr via the bus's trap API.
//
// The trap slot a block hands out is per-block, not per-address (spec
// §4.2/§4.5): any write anywhere in addr's block would otherwise fire
// every watchpoint registered on that block, and a second SetWatch
// landing in the same block would be rejected outright by
// Block.installTrap since it only accepts a second *identical*
// callback. checkBusWrite is that one identical callback — every
// SetWatch call on this Breakpoints installs the same bound method
// value, so the block's trap slot always sees "same fn, bump the
// refcount" instead of "different fn, reject" — and checkBusWrite
// itself looks the incoming address up in bp.watch before firing,
// filtering out the other bytes in the block that aren't actually
// being watched.
func (bp *Breakpoints) SetWatch(addr uint32) bool {
	bp.mu.Lock()
	if _, exists := bp.watch[addr]; exists {
		bp.mu.Unlock()
		return false
	}
	bp.watch[addr] = &Watchpoint{Addr: addr, Enabled: true, lastValue: bp.bus.ReadData(addr, nil)}
	bp.mu.Unlock()

	return bp.bus.TrapWrite(addr, bp.checkBusWrite)
}

// checkBusWrite is the single shared write-trap callback for every
// watchpoint this Breakpoints owns. It fires only for addresses
// actually present in bp.watch, discarding the block-granular noise
// the bus trap API otherwise delivers for neighboring bytes.
func (bp *Breakpoints) checkBusWrite(addr uint32, value byte) {
	bp.mu.Lock()
	w, ok := bp.watch[addr]
	if !ok || !w.Enabled {
		bp.mu.Unlock()
		return
	}
	old := w.lastValue
	w.lastValue = value
	bp.mu.Unlock()

	bp.breakChan <- cpuiface.BreakpointEvent{
		Address: addr, IsWatch: true, WatchAddr: addr,
		WatchOldValue: old, WatchNewValue: value,
	}
}

// ClearWatch removes the watchpoint at addr.
func (bp *Breakpoints) ClearWatch(addr uint32) bool {
	bp.mu.Lock()
	_, ok := bp.watch[addr]
	if ok {
		delete(bp.watch, addr)
	}
	bp.mu.Unlock()
	if !ok {
		return false
	}
	return bp.bus.UntrapWrite(addr, bp.checkBusWrite)
}

// ListWatch returns every watched address in ascending order.
func (bp *Breakpoints) ListWatch() []uint32 {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	addrs := make([]uint32, 0, len(bp.watch))
	for a := range bp.watch {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// Format renders a breakpoint for the `lb` command.
func (b *Breakpoint) Format() string {
	if b.Condition == nil {
		return fmt.Sprintf("$%X", b.Addr)
	}
	return fmt.Sprintf("$%X if %s (hits=%d)", b.Addr, b.Condition.String(), b.HitCount)
}
