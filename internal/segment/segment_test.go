package segment

import "testing"

// fakeMemory is a flat byte-addressable Memory backing descriptor
// tables in tests; no bus package dependency needed here.
type fakeMemory struct {
	data map[uint32]byte
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{data: make(map[uint32]byte)}
}

func (m *fakeMemory) ReadByte(addr uint32) byte { return m.data[addr] }

func (m *fakeMemory) WriteByte(addr uint32, v byte) { m.data[addr] = v }

func (m *fakeMemory) ReadWord(addr uint32) uint16 {
	return uint16(m.data[addr]) | uint16(m.data[addr+1])<<8
}

func (m *fakeMemory) putWord(addr uint32, v uint16) {
	m.data[addr] = byte(v)
	m.data[addr+1] = byte(v >> 8)
}

// putDescriptor writes an 8-byte descriptor at addr: limit, base,
// access word (base-mid in the low byte, access byte in the high
// byte), ext.
func (m *fakeMemory) putDescriptor(addr uint32, limit uint32, base uint32, accessByte byte, ext uint16) {
	m.putWord(addr+0, uint16(limit))
	m.putWord(addr+2, uint16(base))
	m.putWord(addr+4, uint16(accessByte)<<8|uint16(byte(base>>16)))
	m.putWord(addr+6, ext)
}

// TestInvariant8RealModeBase covers spec invariant 8.
func TestInvariant8RealModeBase(t *testing.T) {
	mem := newFakeMemory()
	sys := &System{Mem: mem}
	cs := New("CS", RoleCode, sys)

	res := cs.Load(0xF000, false)
	if res.Kind != Ok {
		t.Fatalf("real-mode load failed: %+v", res)
	}
	if cs.Base != 0xF0000 {
		t.Fatalf("CS.base = 0x%X, want 0xF0000", cs.Base)
	}
}

// TestInvariant9Accessed covers spec invariant 9.
func TestInvariant9Accessed(t *testing.T) {
	mem := newFakeMemory()
	sys := &System{Mem: mem, GDTBase: 0, GDTLimit: 0xFFFF, Protected: true}
	// Data descriptor: present, S=1, executable=0, writable=1, DPL=0.
	accessByte := byte(accP>>8) | byte(accS>>8) | byte(accWritable>>8)
	mem.putDescriptor(0x0008, 0xFFFF, 0x00001000, accessByte, 0)

	ds := New("DS", RoleData, sys)
	ds.updateMode(false, true)

	res := ds.Load(0x0008, false)
	if res.Kind != Ok {
		t.Fatalf("data descriptor load failed: %+v", res)
	}
	accByte := mem.ReadByte(0x0008 + accessedByteOffset)
	if accByte&byte(accAccessed>>8) == 0 {
		t.Fatal("ACCESSED bit not set in memory after a successful load")
	}
}

// TestInvariant10ExpandDownStack covers spec invariant 10.
func TestInvariant10ExpandDownStack(t *testing.T) {
	mem := newFakeMemory()
	sys := &System{Mem: mem, GDTBase: 0, GDTLimit: 0xFFFF, Protected: true}
	// Stack descriptor: present, S=1, executable=0, writable=1, expand-down=1.
	accessByte := byte(accP>>8) | byte(accS>>8) | byte(accWritable>>8) | byte(accExpDown>>8)
	const limit = 0x2000
	mem.putDescriptor(0x0010, limit, 0x00003000, accessByte, 0)

	ss := New("SS", RoleStack, sys)
	ss.updateMode(false, true)

	res := ss.Load(0x0010, false)
	if res.Kind != Ok {
		t.Fatalf("stack descriptor load failed: %+v", res)
	}
	if !ss.ExpDown {
		t.Fatal("expand-down stack descriptor did not set ExpDown")
	}

	if r := ss.CheckWrite(limit, 2, true); r.Kind == Ok {
		t.Fatalf("checkWrite at/below the limit should fail on an expand-down segment, got %+v", r)
	}
	if r := ss.CheckWrite(limit+1, 2, true); r.Kind != Ok {
		t.Fatalf("checkWrite just above the limit should succeed on an expand-down segment, got %+v", r)
	}
}

// TestScenarioDRealToProtected covers spec scenario D.
func TestScenarioDRealToProtected(t *testing.T) {
	mem := newFakeMemory()
	sys := &System{Mem: mem, GDTBase: 0, GDTLimit: 0xFFFF}
	cs := New("CS", RoleCode, sys)

	res := cs.Load(0x1000, false)
	if res.Kind != Ok || cs.Base != 0x10000 {
		t.Fatalf("real-mode load = %+v base=0x%X, want base 0x10000", res, cs.Base)
	}
	if r := cs.CheckRead(0x0020, 2, false); r.Kind != Ok || r.Base != 0x10020 {
		t.Fatalf("real-mode checkRead = %+v, want base 0x10020", r)
	}

	// Enter protected mode: GDT[1] is a present, readable, non-
	// conforming code descriptor, DPL 0, base 0x00040000, limit 0xFFFF.
	accessByte := byte(accP>>8) | byte(accS>>8) | byte(accExecutable>>8) | byte(accReadable>>8)
	mem.putDescriptor(0x0008, 0xFFFF, 0x00040000, accessByte, 0)

	sys.Protected = true
	cs.updateMode(false, true)
	cs.FCall = CallNone

	res = cs.Load(0x0008, false)
	if res.Kind != Ok {
		t.Fatalf("protected-mode CS load failed: %+v", res)
	}
	if cs.Base != 0x00040000 {
		t.Fatalf("CS.base = 0x%X, want 0x00040000", cs.Base)
	}
}

// TestScenarioECallGateParams covers spec scenario E.
func TestScenarioECallGateParams(t *testing.T) {
	mem := newFakeMemory()
	sys := &System{Mem: mem, GDTBase: 0, GDTLimit: 0xFFFF, Protected: true}

	// Target code descriptor at GDT index 2 (selector 0x10): present,
	// code, non-conforming, readable, DPL 0.
	targetAccess := byte(accP>>8) | byte(accS>>8) | byte(accExecutable>>8) | byte(accReadable>>8)
	mem.putDescriptor(0x0010, 0xFFFF, 0x00050000, targetAccess, 0)

	// Call gate at GDT index 1 (selector 0x08): present, system,
	// type=CALL_GATE, DPL 3 (so CPL3 may invoke it), 2 parameter
	// words, target selector 0x10, target offset 0x0040. The target
	// code descriptor's DPL 0 is what becomes the new CPL.
	gateAccess := byte(accP>>8) | byte(3<<5) | byte(sysCallGate16)
	mem.putWord(0x0008+0, 0x0040)              // offset
	mem.putWord(0x0008+2, 0x0010)              // target selector
	mem.putWord(0x0008+4, uint16(gateAccess)<<8|0x02) // access byte, param count = 2
	mem.putWord(0x0008+6, 0)

	// TSS for the caller (CPL 3), providing CPL0's SS:SP.
	const tssBase = 0x1000
	mem.putWord(tssBase+tssSS0, 0x0018)
	mem.putWord(tssBase+tssSP0, 0x0FF0)
	tr := New("TR", RoleTSS, sys)
	tr.Base = tssBase

	sys.TR = tr
	stackWords := []uint16{0xBEEF, 0xCAFE} // param1, param2 on the caller's stack
	sys.CurrentSP = func() uint16 { return 0x2000 }
	sys.CurrentSS = func() uint16 { return 0x0030 }
	sys.ReadStackWord = func(i int) uint16 { return stackWords[i] }

	cs := New("CS", RoleCode, sys)
	cs.EnterProtectedMode()
	cs.CPL = 3
	cs.FCall = CallIn

	res := cs.Load(0x0008, false)
	if res.Kind != Ok {
		t.Fatalf("call-gate transfer failed: %+v", res)
	}
	if cs.CPL != 0 {
		t.Fatalf("CS.cpl = %d, want 0 after the gate transfer", cs.CPL)
	}
	if !cs.FStackSwitch {
		t.Fatal("expected a stack switch through a privilege-raising call gate")
	}
	if cs.PendingSS != 0x0018 || cs.PendingSP != 0x0FF0 {
		t.Fatalf("pending SS:SP = %04X:%04X, want 0018:0FF0", cs.PendingSS, cs.PendingSP)
	}
	if cs.PendingOldSS != 0x0030 || cs.PendingOldSP != 0x2000 {
		t.Fatalf("pending old SS:SP = %04X:%04X, want 0030:2000", cs.PendingOldSS, cs.PendingOldSP)
	}
	if cs.PendingParamCount != 2 || cs.AwParms[0] != 0xBEEF || cs.AwParms[1] != 0xCAFE {
		t.Fatalf("copied params = %v (count %d), want [BEEF CAFE] (2)", cs.AwParms[:2], cs.PendingParamCount)
	}
}
