// disasm.go - Disassemble for the `u` command. Grounded on
// debug_disasm_x86.go's per-line shape (address, hex bytes, mnemonic),
// reduced to this package's own tiny opcode set.

package stubcpu

import (
	"fmt"
	"strings"

	"github.com/ie286emu/core/internal/cpuiface"
)

func opLen(op byte) int {
	switch op {
	case opLoadSeg:
		return 4
	case opCallGate:
		return 3
	case opIntN:
		return 2
	default:
		return 1
	}
}

func mnemonic(addr uint32, op byte, bytes []byte) string {
	switch op {
	case opNOP:
		return "NOP"
	case opLoadSeg:
		reg := segOperand[bytes[1]&0x03]
		sel := uint16(bytes[2]) | uint16(bytes[3])<<8
		return fmt.Sprintf("MOV %s, %#04x", reg, sel)
	case opCallGate:
		sel := uint16(bytes[1]) | uint16(bytes[2])<<8
		return fmt.Sprintf("CALLF %#04x", sel)
	case opRetf:
		return "RETF"
	case opIntN:
		return fmt.Sprintf("INT %#02x", bytes[1])
	case opIret:
		return "IRET"
	case opHlt:
		return "HLT"
	default:
		return fmt.Sprintf("DB %#02x", op)
	}
}

// Disassemble renders count synthetic instructions starting at addr
// (a CS-relative offset, matching PC/SetPC).
func (c *CPU) Disassemble(addr uint64, count int) []cpuiface.DisassembledLine {
	lines := make([]cpuiface.DisassembledLine, 0, count)
	offset := uint16(addr)
	for i := 0; i < count; i++ {
		linear := c.csLinear(offset)
		op := c.readByte(linear)
		n := opLen(op)
		raw := make([]byte, n)
		hex := make([]string, n)
		for j := 0; j < n; j++ {
			raw[j] = c.readByte(linear + uint32(j))
			hex[j] = fmt.Sprintf("%02X", raw[j])
		}
		lines = append(lines, cpuiface.DisassembledLine{
			Address:  uint64(offset),
			HexBytes: strings.Join(hex, " "),
			Mnemonic: mnemonic(linear, op, raw),
			Size:     n,
			IsPC:     offset == c.IP,
			IsBranch: op == opCallGate || op == opRetf || op == opIntN || op == opIret,
		})
		offset += uint16(n)
	}
	return lines
}
