// machine.go - wires a Bus, a GDT, four segment registers, a stub CPU,
// and the debugger into one runnable machine.
//
// Grounded on main.go's Init()/bring-up sequence (teacher builds one
// machine.Bus plus one CPU per architecture flag at startup); this
// narrows that to the single 80286 core this module models.

package main

import (
	"fmt"
	"os"

	"github.com/ie286emu/core/internal/bus"
	"github.com/ie286emu/core/internal/debugger"
	"github.com/ie286emu/core/internal/segment"
	"github.com/ie286emu/core/internal/stubcpu"
)

// Default geometry: a 24-bit physical address space (the 80286's full
// 16MB range) with the GDT living at the bottom and a flat code/data
// pair (base 0, limit 0xFFFF) covering its first 64KB, so a
// freshly-built machine is immediately steppable in protected mode
// without a bring-up script.
const (
	addrWidthBits = 24

	gdtBase        = 0x0000
	gdtFlatCodeSel = 0x0008
	gdtFlatDataSel = 0x0010
	gdtLimit       = 0x17 // 3 descriptors * 8 bytes - 1

	defaultEntry = 0x1000
)

// Machine bundles every collaborator cmd/ie286dbg wires together, so
// main.go and the TUI model share one construction path.
type Machine struct {
	Bus   *bus.Bus
	Sys   *segment.System
	Segs  map[string]*segment.Register
	CPU   *stubcpu.CPU
	Debug *debugger.Debugger
	CP    *debugger.CommandProcessor

	Runner *cpuRunner
}

// NewMachine builds a Machine with a flat protected-mode GDT already
// installed and CS:IP parked at entry.
func NewMachine(entry uint16) *Machine {
	b := bus.New(bus.Config{AddrWidth: addrWidthBits, DataWidth: 8, BlockSize: 4096})
	b.AddBlocks(0, 1<<addrWidthBits, bus.TypeRAM, nil)

	mem := stubcpu.BusMemory{Bus: b}
	sys := &segment.System{Mem: mem, GDTBase: gdtBase, GDTLimit: gdtLimit, Protected: true}

	putDescriptor(b, gdtBase+gdtFlatCodeSel, 0xFFFF, 0, 0x9A) // P,DPL0,code,readable
	putDescriptor(b, gdtBase+gdtFlatDataSel, 0xFFFF, 0, 0x92) // P,DPL0,data,writable

	segs := map[string]*segment.Register{
		"CS": segment.New("CS", segment.RoleCode, sys),
		"DS": segment.New("DS", segment.RoleData, sys),
		"SS": segment.New("SS", segment.RoleStack, sys),
		"ES": segment.New("ES", segment.RoleData, sys),
	}
	for name, r := range segs {
		r.EnterProtectedMode()
		sel := uint16(gdtFlatDataSel)
		if name == "CS" {
			sel = gdtFlatCodeSel
		}
		if res := r.Load(sel, false); res.Kind != segment.Ok {
			fmt.Fprintf(os.Stderr, "ie286dbg: failed to load flat %s descriptor\n", name)
			os.Exit(1)
		}
	}

	cpu := stubcpu.New(b, sys, segs)
	cpu.WireSystemHooks()
	cpu.IP = entry
	cpu.SP = 0xFFFE

	runner := newCPURunner(nil, nil, cpu)
	d := debugger.New(cpu, runner, b, segs, debugger.Config{})
	cp := debugger.NewCommandProcessor(d)
	runner.d, runner.cp = d, cp

	return &Machine{Bus: b, Sys: sys, Segs: segs, CPU: cpu, Debug: d, CP: cp, Runner: runner}
}

// putDescriptor writes one 8-byte GDT/LDT entry: limit, base, access
// byte (high byte of the access word; low byte is base bits 16-23),
// and a zero extended-rights word, matching internal/segment's
// descriptor layout (constants.go).
func putDescriptor(b *bus.Bus, addr uint32, limit uint32, base uint32, accessByte byte) {
	putWord(b, addr, uint16(limit))
	putWord(b, addr+2, uint16(base))
	putWord(b, addr+4, uint16(accessByte)<<8|uint16(byte(base>>16)))
	putWord(b, addr+6, 0)
}

func putWord(b *bus.Bus, addr uint32, v uint16) {
	b.WriteData(addr, byte(v), nil)
	b.WriteData(addr+1, byte(v>>8), nil)
}

// LoadBinary reads path into the bus at addr, for the `run --load`
// flag.
func (m *Machine) LoadBinary(path string, addr uint32) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	for i, v := range data {
		m.Bus.WriteData(addr+uint32(i), v, nil)
	}
	return nil
}
