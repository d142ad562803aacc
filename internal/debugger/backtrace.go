// backtrace.go - Stack backtrace for the `bt` command.
//
// Grounded on debug_backtrace.go's per-architecture stack walkers,
// narrowed to the one stack shape this core has: a word-oriented
// 80286 stack walked through the focused SS segment's CheckRead
// (spec §4.3), not a flat architecture-specific SP register read.

package debugger

import (
	"fmt"

	"github.com/ie286emu/core/internal/segment"
)

// Backtrace walks depth return addresses off the stack segment ss,
// starting at sp, reading each word through the bus via ss's checked
// linear address (a suppressed check, so an expand-down or
// limit-violating read ends the walk without raising a fault rather
// than silently reading garbage). readWord reads one 16-bit
// little-endian word at a linear address.
func Backtrace(ss *segment.Register, sp uint16, depth int, readWord func(linear uint32) uint16) []uint64 {
	var frames []uint64
	off := uint32(sp)
	for range depth {
		res := ss.CheckRead(off, 2, true)
		if res.Kind != segment.Ok {
			break
		}
		frames = append(frames, uint64(readWord(res.Base)))
		off += 2
	}
	return frames
}

// FormatBacktrace renders a backtrace for scrollback output.
func FormatBacktrace(frames []uint64) []string {
	lines := make([]string, 0, len(frames)+1)
	lines = append(lines, "--- Backtrace ---")
	for i, f := range frames {
		lines = append(lines, fmt.Sprintf("  #%d  $%04X", i, f))
	}
	return lines
}
