// stubcpu.go - Minimal instruction stepper standing in for a real
// 80286 decoder (spec's explicit Non-goal: full instruction decode).
//
// Grounded on cpu_x86.go's register layout (AX/BX/CX/DX/SI/DI/BP/SP,
// CS/DS/ES/SS, a Flags word) and debug_cpu_x86.go's GetRegisters/
// GetRegister/SetRegister/GetPC/SetPC shape, narrowed to the single
// cpuiface.CPU this module's debugger drives. It implements just
// enough of a fetch-decode-execute loop (step.go) to push bytes
// through internal/segment's Load/LoadIDT/CheckRead/CheckWrite paths
// and drive a call-gate or task-gate transfer end to end, so the
// debugger's t/g/u commands and breakpoint machinery have something
// real to step through.

package stubcpu

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/ie286emu/core/internal/bus"
	"github.com/ie286emu/core/internal/cpuiface"
	"github.com/ie286emu/core/internal/segment"
)

// Flag bits (spec's processor-status word; same bit positions as the
// real 80286, a subset of cpu_x86.go's x86Flag* constants).
const (
	FlagCF uint16 = 1 << 0
	FlagPF uint16 = 1 << 2
	FlagAF uint16 = 1 << 4
	FlagZF uint16 = 1 << 6
	FlagSF uint16 = 1 << 7
	FlagTF uint16 = 1 << 8
	FlagIF uint16 = 1 << 9
	FlagDF uint16 = 1 << 10
	FlagOF uint16 = 1 << 11
	FlagNT uint16 = 1 << 14
)

// CPU is the stub's state: an 80286 general-register file, an IP, and
// the four segment registers wired in from internal/segment. Segs is
// shared with the debugger (same map instance) so breakpoint
// conditions, backtraces, and this stepper all see one set of
// descriptor caches.
type CPU struct {
	AX, BX, CX, DX uint16
	SI, DI, BP, SP uint16
	IP             uint16
	Flags          uint16

	Halted bool

	Bus  *bus.Bus
	Sys  *segment.System
	Segs map[string]*segment.Register

	lastFault    segment.Exception
	lastFaultErr uint16
	hasFault     bool
}

// New builds a CPU over an already-constructed bus/system/segment set
// (cmd/ie286dbg owns their lifetime and wires Sys.SaveContext/
// LoadContext/CurrentSP/CurrentSS/ReadStackWord/MaskFlags/
// SetNestedTask/Fault back to this CPU — see WireSystemHooks).
func New(b *bus.Bus, sys *segment.System, segs map[string]*segment.Register) *CPU {
	return &CPU{Bus: b, Sys: sys, Segs: segs}
}

// WireSystemHooks installs this CPU as the System's general-register
// and stack-access collaborator (spec §6: "faults and the handful of
// CPU-owned operations a gate/task-switch transfer touches are
// threaded through CPU-provided hooks, not owned by Segment").
func (c *CPU) WireSystemHooks() {
	c.Sys.CurrentSP = func() uint16 { return c.SP }
	c.Sys.CurrentSS = func() uint16 {
		if ss := c.Segs["SS"]; ss != nil {
			return ss.Sel
		}
		return 0
	}
	c.Sys.ReadStackWord = func(wordIndex int) uint16 {
		ss := c.Segs["SS"]
		if ss == nil {
			return 0
		}
		addr := ss.Base + uint32(c.SP) + uint32(wordIndex*2)
		return c.readWord(addr)
	}
	c.Sys.MaskFlags = func(isInterrupt bool) {
		c.Flags &^= FlagTF
		if isInterrupt {
			c.Flags &^= FlagIF
		}
		c.Flags &^= FlagNT
	}
	c.Sys.SaveContext = c.SaveContext
	c.Sys.LoadContext = c.LoadContext
	c.Sys.SetNestedTask = func(nest bool) {
		if nest {
			c.Flags |= FlagNT
		} else {
			c.Flags &^= FlagNT
		}
	}
	c.Sys.Fault = c.Fault
}

// SaveContext/LoadContext back switchTSS's task-context save/restore.
func (c *CPU) SaveContext() segment.TaskContext {
	return segment.TaskContext{
		IP: c.IP, Flags: c.Flags,
		AX: c.AX, CX: c.CX, DX: c.DX, BX: c.BX,
		SP: c.SP, BP: c.BP, SI: c.SI, DI: c.DI,
		ES: c.segSel("ES"), CS: c.segSel("CS"), SS: c.segSel("SS"), DS: c.segSel("DS"),
	}
}

func (c *CPU) LoadContext(ctx segment.TaskContext) {
	c.IP, c.Flags = ctx.IP, ctx.Flags
	c.AX, c.CX, c.DX, c.BX = ctx.AX, ctx.CX, ctx.DX, ctx.BX
	c.SP, c.BP, c.SI, c.DI = ctx.SP, ctx.BP, ctx.SI, ctx.DI
	for name, sel := range map[string]uint16{"ES": ctx.ES, "CS": ctx.CS, "SS": ctx.SS, "DS": ctx.DS} {
		if r := c.Segs[name]; r != nil {
			r.Load(sel, true)
		}
	}
}

func (c *CPU) segSel(name string) uint16 {
	if r := c.Segs[name]; r != nil {
		return r.Sel
	}
	return 0
}

// Fault records the most recent segmentation fault and halts on fatal
// ones, matching spec §7's "fatal faults stop the machine; non-fatal
// faults are recoverable" split.
func (c *CPU) Fault(code segment.Exception, errorCode uint16, fatal bool) {
	c.lastFault, c.lastFaultErr, c.hasFault = code, errorCode, true
	if fatal {
		c.Halted = true
	}
}

var _ cpuiface.CPU = (*CPU)(nil)

// BusMemory adapts *bus.Bus to segment.Memory, the narrow descriptor-
// table access internal/segment needs — the one-line adapter
// internal/segment's own design notes call for at the wiring layer,
// shared here since stubcpu is the one package that owns both a Bus
// and a segment.System.
type BusMemory struct {
	Bus *bus.Bus
}

func (m BusMemory) ReadByte(addr uint32) byte        { return m.Bus.ReadData(addr, nil) }
func (m BusMemory) WriteByte(addr uint32, value byte) { m.Bus.WriteData(addr, value, nil) }
func (m BusMemory) ReadWord(addr uint32) uint16 {
	return uint16(m.Bus.ReadData(addr, nil)) | uint16(m.Bus.ReadData(addr+1, nil))<<8
}

// Registers reports the general, flags, and segment-selector groups
// (debug_cpu_x86.go's GetRegisters grouping convention).
func (c *CPU) Registers() []cpuiface.RegisterInfo {
	regs := []cpuiface.RegisterInfo{
		{Name: "AX", BitWidth: 16, Value: uint64(c.AX), Group: "general"},
		{Name: "BX", BitWidth: 16, Value: uint64(c.BX), Group: "general"},
		{Name: "CX", BitWidth: 16, Value: uint64(c.CX), Group: "general"},
		{Name: "DX", BitWidth: 16, Value: uint64(c.DX), Group: "general"},
		{Name: "SI", BitWidth: 16, Value: uint64(c.SI), Group: "general"},
		{Name: "DI", BitWidth: 16, Value: uint64(c.DI), Group: "general"},
		{Name: "BP", BitWidth: 16, Value: uint64(c.BP), Group: "general"},
		{Name: "SP", BitWidth: 16, Value: uint64(c.SP), Group: "general"},
		{Name: "IP", BitWidth: 16, Value: uint64(c.IP), Group: "general"},
		{Name: "FLAGS", BitWidth: 16, Value: uint64(c.Flags), Group: "flags"},
	}
	for _, name := range []string{"CS", "DS", "ES", "SS"} {
		if r := c.Segs[name]; r != nil {
			regs = append(regs, cpuiface.RegisterInfo{Name: name, BitWidth: 16, Value: uint64(r.Sel), Group: "segment"})
		}
	}
	return regs
}

func (c *CPU) Register(name string) (uint64, bool) {
	switch strings.ToUpper(name) {
	case "AX":
		return uint64(c.AX), true
	case "BX":
		return uint64(c.BX), true
	case "CX":
		return uint64(c.CX), true
	case "DX":
		return uint64(c.DX), true
	case "SI":
		return uint64(c.SI), true
	case "DI":
		return uint64(c.DI), true
	case "BP":
		return uint64(c.BP), true
	case "SP":
		return uint64(c.SP), true
	case "IP":
		return uint64(c.IP), true
	case "FLAGS":
		return uint64(c.Flags), true
	case "CS", "DS", "ES", "SS":
		if r := c.Segs[strings.ToUpper(name)]; r != nil {
			return uint64(r.Sel), true
		}
	}
	return 0, false
}

func (c *CPU) SetRegister(name string, value uint64) bool {
	switch strings.ToUpper(name) {
	case "AX":
		c.AX = uint16(value)
	case "BX":
		c.BX = uint16(value)
	case "CX":
		c.CX = uint16(value)
	case "DX":
		c.DX = uint16(value)
	case "SI":
		c.SI = uint16(value)
	case "DI":
		c.DI = uint16(value)
	case "BP":
		c.BP = uint16(value)
	case "SP":
		c.SP = uint16(value)
	case "IP":
		c.IP = uint16(value)
	case "FLAGS":
		c.Flags = uint16(value)
	case "CS", "DS", "ES", "SS":
		r := c.Segs[strings.ToUpper(name)]
		if r == nil {
			return false
		}
		return r.Load(uint16(value), false).Kind == segment.Ok
	default:
		return false
	}
	return true
}

// PC and SetPC operate on the instruction offset within the current
// CS, not a linear address: this core's breakpoints and the `u`
// command both work in CS-relative terms, matching how a real-mode
// debugger on this hardware would show addresses.
func (c *CPU) PC() uint64        { return uint64(c.IP) }
func (c *CPU) SetPC(addr uint64) { c.IP = uint16(addr) }

// String renders the register file; detail=true additionally dumps
// every segment register's full descriptor cache via go-spew, for the
// debugger's verbose `r v` variant.
func (c *CPU) String(detail bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "AX=%04X BX=%04X CX=%04X DX=%04X SI=%04X DI=%04X BP=%04X SP=%04X IP=%04X FLAGS=%04X",
		c.AX, c.BX, c.CX, c.DX, c.SI, c.DI, c.BP, c.SP, c.IP, c.Flags)
	if !detail {
		return b.String()
	}
	for _, name := range []string{"CS", "DS", "ES", "SS"} {
		if r := c.Segs[name]; r != nil {
			fmt.Fprintf(&b, "\n%s: %s", name, spew.Sdump(r))
		}
	}
	return b.String()
}
