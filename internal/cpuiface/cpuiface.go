// cpuiface.go - the external CPU and Clock collaborators the debugger
// drives, narrowed from the teacher's DebuggableCPU down to exactly
// what a debugger-facing CPU needs to expose.

package cpuiface

import "github.com/ie286emu/core/internal/segment"

// RegisterInfo describes a single CPU register for monitor display.
type RegisterInfo struct {
	Name     string
	BitWidth int
	Value    uint64
	Group    string
}

// DisassembledLine is one decoded instruction, for the debugger's `u`
// (unassemble) command.
type DisassembledLine struct {
	Address      uint64
	HexBytes     string
	Mnemonic     string
	Size         int
	IsPC         bool
	IsBranch     bool
	BranchTarget uint64
}

// BreakpointEvent is published on a channel when execution halts,
// either at an instruction breakpoint or a write watchpoint the bus
// trap observed.
type BreakpointEvent struct {
	Address uint64

	IsWatch       bool
	WatchAddr     uint64
	WatchOldValue byte
	WatchNewValue byte
}

// CPU is the external CPU collaborator the debugger and command
// processor operate against. It exposes register access by name, the
// program counter, and a human-readable dump, plus the fault hook the
// segment package's System.Fault field ultimately wires to.
type CPU interface {
	Registers() []RegisterInfo
	Register(name string) (uint64, bool)
	SetRegister(name string, value uint64) bool

	PC() uint64
	SetPC(addr uint64)

	// Step executes one instruction and returns the cycle count
	// consumed, for the `t`/`g` stepping commands.
	Step() int

	Disassemble(addr uint64, count int) []DisassembledLine

	// String renders the CPU state; detail selects a terse one-line
	// form (false) or the full register/flag dump (true).
	String(detail bool) string

	// Fault reports a segmentation exception raised by a Segment
	// load/check through the CPU's own fault(code, errorCode, fatal)
	// collaborator (spec §6).
	Fault(code segment.Exception, errorCode uint16, fatal bool)
}

// Clock is the external clock collaborator: the CPU's run loop
// reports to the debugger, and the debugger starts/stops it.
type Clock interface {
	Start()
	Stop(reason string)
	OnStep(n int)
}
