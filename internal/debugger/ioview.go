// ioview.go - Mapped-region viewer for the `io` command.
//
// Grounded on debug_ioview.go's static per-device register table,
// adapted to this core's generic block-paged bus: instead of a fixed
// map of named device registers, it enumerates the blocks Bus.EnumBlocks
// already tracks by type, since the spec's Bus has no per-device
// register metadata of its own (spec §4.6 supplement).

package debugger

import (
	"fmt"

	"github.com/ie286emu/core/internal/bus"
)

// RegionDesc describes one mapped region for display.
type RegionDesc struct {
	Addr  uint32
	Size  int
	Type  string
	Dirty bool
}

var typeNames = map[bus.BlockType]string{
	bus.TypeRAM:   "RAM",
	bus.TypeROM:   "ROM",
	bus.TypeVideo: "VIDEO",
}

// FormatIOView enumerates every mapped (non-NONE) block on b and
// renders one line per region.
func FormatIOView(b *bus.Bus) []string {
	lines := []string{"--- Mapped regions ---"}
	b.EnumBlocks(bus.TypeRAM|bus.TypeROM|bus.TypeVideo, func(blk *bus.Block) {
		name := typeNames[blk.Type]
		if name == "" {
			name = "?"
		}
		lines = append(lines, fmt.Sprintf("  $%06X +$%05X  %-6s dirty=%v",
			blk.Addr, blk.Size(), name, blk.IsDirty()))
	})
	return lines
}
