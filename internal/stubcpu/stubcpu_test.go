package stubcpu

import (
	"testing"

	"github.com/ie286emu/core/internal/bus"
	"github.com/ie286emu/core/internal/segment"
)

func newMachine() (*CPU, *bus.Bus) {
	b := bus.New(bus.DefaultConfig())
	b.AddBlocks(0, 0x10000, bus.TypeRAM, nil)
	sys := &segment.System{Mem: BusMemory{Bus: b}, GDTBase: 0, GDTLimit: 0xFFFF, Protected: true}
	segs := map[string]*segment.Register{
		"CS": segment.New("CS", segment.RoleCode, sys),
		"DS": segment.New("DS", segment.RoleData, sys),
		"SS": segment.New("SS", segment.RoleStack, sys),
		"ES": segment.New("ES", segment.RoleData, sys),
	}
	for _, r := range segs {
		r.EnterProtectedMode()
		r.Load(0, true) // null selector until a test loads a real one
	}
	cpu := New(b, sys, segs)
	cpu.WireSystemHooks()
	return cpu, b
}

func putDesc(b *bus.Bus, addr uint32, limit uint32, base uint32, accessByte byte) {
	put16(b, addr, uint16(limit))
	put16(b, addr+2, uint16(base))
	put16(b, addr+4, uint16(accessByte)<<8|uint16(byte(base>>16)))
	put16(b, addr+6, 0)
}

func put16(b *bus.Bus, addr uint32, v uint16) {
	b.WriteData(addr, byte(v), nil)
	b.WriteData(addr+1, byte(v>>8), nil)
}

func TestStepLoadSegExercisesDescriptorCache(t *testing.T) {
	cpu, b := newMachine()
	// DATA descriptor at GDT selector 0x0008: present, S=1, writable, base 0x2000.
	putDesc(b, 0x0008, 0x0FFF, 0x2000, 0x92)

	// LOADSEG DS, 0x0008 at CS:0 (CS holds the null selector, base 0).
	b.WriteData(0, opLoadSeg, nil)
	b.WriteData(1, 0, nil) // reg index 0 = DS
	put16(b, 2, 0x0008)

	cpu.Step()
	ds := cpu.Segs["DS"]
	if ds.Base != 0x2000 {
		t.Fatalf("DS.Base = %#x, want 0x2000", ds.Base)
	}
	if cpu.IP != 4 {
		t.Fatalf("IP = %#x, want 4", cpu.IP)
	}
}

func TestStepCallGatePrivilegeRaise(t *testing.T) {
	cpu, b := newMachine()

	// TR: a busy TSS at 0x3000 with CPL0 SS:SP fields populated.
	tssSel := uint16(0x0028)
	putDesc(b, uint32(tssSel), 0x002B, 0x3000, 0x83) // present, DPL0, TSS16-busy(0x3)
	tr := segment.New("TR", segment.RoleTSS, cpu.Sys)
	tr.EnterProtectedMode()
	tr.Load(tssSel, false)
	cpu.Sys.TR = tr
	put16(b, 0x3000+0x02, 0x0080) // SP0
	put16(b, 0x3000+0x04, 0x0018) // SS0 selector

	// SS0 descriptor (selector 0x0018): stack, present, writable, base 0x4000.
	putDesc(b, 0x0018, 0x0FFF, 0x4000, 0x92)

	// Call-gate descriptor at selector 0x0010: target CS selector 0x0020,
	// target offset 0x0050, DPL 3 (so a CPL3 caller may use the gate; the
	// privilege raise to CPL0 comes from the target code segment's own
	// DPL below), 0 copied parameters, type=call gate(0x4).
	put16(b, 0x0010, 0x0050)   // "limit" field doubles as gate offset
	put16(b, 0x0010+2, 0x0020) // "base-low" field doubles as target selector
	put16(b, 0x0010+4, 0xE400) // P=1, DPL=3, S=0, type=0x4
	put16(b, 0x0010+6, 0)

	// Target CS descriptor at selector 0x0020: code, present, DPL0, base 0x5000.
	putDesc(b, 0x0020, 0x0FFF, 0x5000, 0x9A)

	cs := cpu.Segs["CS"]
	cs.CPL = 3 // caller starts at CPL3

	ss := cpu.Segs["SS"]
	ss.Load(0x0018|3, false) // caller's own stack, RPL3 (expect a real descriptor in practice)
	cpu.SP = 0x0100

	b.WriteData(cpu.csLinear(0), opCallGate, nil)
	put16(b, cpu.csLinear(1), 0x0010)

	cpu.Step()

	if cs.Base != 0x5000 {
		t.Fatalf("CS.Base after call-gate transfer = %#x, want 0x5000", cs.Base)
	}
	if cpu.IP != 0x0050 {
		t.Fatalf("IP after call-gate transfer = %#x, want 0x50", cpu.IP)
	}
	if cs.CPL != 0 {
		t.Fatalf("CPL after call-gate transfer = %d, want 0", cs.CPL)
	}
}

func TestRegisterAccessors(t *testing.T) {
	cpu, _ := newMachine()
	cpu.SetRegister("AX", 0x1234)
	v, ok := cpu.Register("AX")
	if !ok || v != 0x1234 {
		t.Fatalf("Register(AX) = %#x, %v; want 0x1234, true", v, ok)
	}
	if _, ok := cpu.Register("NOSUCH"); ok {
		t.Fatal("Register(NOSUCH) should fail")
	}
}

func TestHaltStopsStep(t *testing.T) {
	cpu, b := newMachine()
	b.WriteData(0, opHlt, nil)
	cpu.Step()
	if !cpu.Halted {
		t.Fatal("CPU did not halt on HLT")
	}
	ip := cpu.IP
	cpu.Step()
	if cpu.IP != ip {
		t.Fatal("Step advanced IP after halt")
	}
}
