// history.go - Step/PC trace history for the `sh`/`dh` commands.
//
// Grounded on debug_monitor.go's Feature 8/9 trace and backstep state
// (traceWatches/writeHistory/stepHistory), narrowed to the single
// piece spec scenario F actually exercises: an enable/disable toggle
// and a ring buffer of executed PCs in program order. Per spec
// §4.5, enabling history traps every ROM/RAM block via the Bus's read
// trap API rather than sampling PC on its own: `enableHistory(true)`
// enumerates blocks and installs one shared read callback per block,
// which records a hit only when the read address equals the CPU's
// current PC (an instruction fetch), matching the spec's
// "checkBusRead observes all reads; when the address equals the CPU's
// current PC, it appends" mechanism.

package debugger

import (
	"sync"

	"github.com/ie286emu/core/internal/bus"
)

// History records the PC at each executed step when enabled, by
// trapping every ROM/RAM block on the bus and filtering reads down to
// the ones landing on the CPU's current PC.
type History struct {
	mu      sync.Mutex
	enabled bool
	limit   int
	pcs     []uint64

	bus     *bus.Bus
	pc      func() uint64
	trapped []uint32 // base address of each block currently trapped
}

func newHistory(limit int, b *bus.Bus, pc func() uint64) *History {
	return &History{limit: limit, bus: b, pc: pc}
}

// SetEnabled turns tracing on or off (the `sh on`/`sh off` commands),
// installing or removing the read traps that feed it. Disabling does
// not clear previously recorded history.
func (h *History) SetEnabled(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if on == h.enabled {
		return
	}
	h.enabled = on
	if on {
		h.installTraps()
	} else {
		h.removeTraps()
	}
}

// installTraps traps every ROM/RAM block with the shared checkBusRead
// callback. Trapping one address in a block traps the whole block
// (spec §4.2: the trap slot is per block), so one TrapRead call per
// block is sufficient to observe every fetch in it.
func (h *History) installTraps() {
	h.trapped = h.trapped[:0]
	h.bus.EnumBlocks(bus.TypeROM|bus.TypeRAM, func(blk *bus.Block) {
		if h.bus.TrapRead(blk.Addr, h.checkBusRead) {
			h.trapped = append(h.trapped, blk.Addr)
		}
	})
}

// removeTraps undoes installTraps, one UntrapRead per block trapped.
func (h *History) removeTraps() {
	for _, addr := range h.trapped {
		h.bus.UntrapRead(addr, h.checkBusRead)
	}
	h.trapped = nil
}

// checkBusRead is the shared read-trap callback installed on every
// ROM/RAM block while history is enabled. It records a step only when
// the read address is the CPU's current PC, i.e. an instruction
// fetch, not a data read through the same block.
func (h *History) checkBusRead(addr uint32, value byte) {
	if uint64(addr) != h.pc() {
		return
	}
	h.record(uint64(addr))
}

// record appends pc to the trace, dropping the oldest entry once
// limit is exceeded.
func (h *History) record(pc uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pcs = append(h.pcs, pc)
	if len(h.pcs) > h.limit {
		h.pcs = h.pcs[len(h.pcs)-h.limit:]
	}
}

// Last returns the most recent n recorded PCs in program order (the
// `dh n` command); fewer than n if history is shorter.
func (h *History) Last(n int) []uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n > len(h.pcs) {
		n = len(h.pcs)
	}
	out := make([]uint64, n)
	copy(out, h.pcs[len(h.pcs)-n:])
	return out
}

// Clear empties the recorded trace.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pcs = nil
}
