package bus

import "testing"

// TestAddressRouting covers spec invariant 1: bus.ReadData(addr) routes
// through blocks[(addr & addrLimit) >> blockShift].ReadByte(addr & blockLimit).
func TestAddressRouting(t *testing.T) {
	b := New(Config{AddrWidth: 16, DataWidth: 8, BlockSize: 1024})
	if !b.AddBlocks(0x2000, 1024, TypeRAM, nil) {
		t.Fatal("AddBlocks failed")
	}

	b.WriteData(0x2050, 0xAB, nil)
	if got := b.ReadData(0x2050, nil); got != 0xAB {
		t.Fatalf("ReadData(0x2050) = 0x%02X, want 0xAB", got)
	}

	// Address outside the installed block reads the NONE sentinel.
	if got := b.ReadData(0x3050, nil); got != noneSentinel {
		t.Fatalf("ReadData(0x3050) = 0x%02X, want 0x%02X (NONE sentinel)", got, noneSentinel)
	}
}

// TestAddBlocksConflict covers spec invariant 5: AddBlocks returns false
// and does not mutate the bus when any target index already holds a
// non-NONE block.
func TestAddBlocksConflict(t *testing.T) {
	b := New(DefaultConfig())
	if !b.AddBlocks(0x1000, 1024, TypeRAM, nil) {
		t.Fatal("first AddBlocks should succeed")
	}
	b.WriteData(0x1010, 0x42, nil)

	if b.AddBlocks(0x1000, 1024, TypeROM, nil) {
		t.Fatal("overlapping AddBlocks should fail")
	}
	// Original contents must be untouched.
	if got := b.ReadData(0x1010, nil); got != 0x42 {
		t.Fatalf("block was mutated by the failed AddBlocks: got 0x%02X", got)
	}
}

// TestTrapTransparency covers spec invariant 2: after trapRead then
// untrapRead with the same callback, reads return exactly what they
// would have without the trap.
func TestTrapTransparency(t *testing.T) {
	b := New(DefaultConfig())
	b.AddBlocks(0x2000, 1024, TypeRAM, nil)
	b.WriteData(0x2050, 0x11, nil)

	var seen []byte
	cb := func(addr uint32, value byte) { seen = append(seen, value) }

	if !b.TrapRead(0x2050, cb) {
		t.Fatal("TrapRead failed")
	}
	if got := b.ReadData(0x2050, nil); got != 0x11 {
		t.Fatalf("trapped read = 0x%02X, want 0x11", got)
	}
	if len(seen) != 1 || seen[0] != 0x11 {
		t.Fatalf("trap callback saw %v, want [0x11]", seen)
	}

	if !b.UntrapRead(0x2050, cb) {
		t.Fatal("UntrapRead failed")
	}
	if got := b.ReadData(0x2050, nil); got != 0x11 {
		t.Fatalf("post-untrap read = 0x%02X, want 0x11", got)
	}
	if len(seen) != 1 {
		t.Fatalf("trap callback fired after untrap: %v", seen)
	}
}

// TestTrapReferenceCounting covers spec invariant 3.
func TestTrapReferenceCounting(t *testing.T) {
	b := New(DefaultConfig())
	b.AddBlocks(0x4000, 1024, TypeRAM, nil)
	cb := func(addr uint32, value byte) {}

	if !b.TrapRead(0x4000, cb) {
		t.Fatal("first TrapRead failed")
	}
	if !b.TrapRead(0x4000, cb) {
		t.Fatal("second TrapRead (same fn) should increment refcount, not fail")
	}
	if !b.UntrapRead(0x4000, cb) {
		t.Fatal("first UntrapRead failed")
	}
	// One more read should still be trapped (count went from 2 to 1).
	var fired bool
	b2 := New(DefaultConfig())
	b2.AddBlocks(0x4000, 1024, TypeRAM, nil)
	track := func(addr uint32, value byte) { fired = true }
	b2.TrapRead(0x4000, track)
	b2.TrapRead(0x4000, track)
	b2.UntrapRead(0x4000, track)
	b2.ReadData(0x4000, nil)
	if !fired {
		t.Fatal("trap should still be installed after one untrap of two installs")
	}

	if !b.UntrapRead(0x4000, cb) {
		t.Fatal("second UntrapRead should remove the trap entirely")
	}
	if b.UntrapRead(0x4000, cb) {
		t.Fatal("third UntrapRead should fail: no trap installed")
	}
}

// TestTrapConflict: a different callback on the same block is rejected.
func TestTrapConflict(t *testing.T) {
	b := New(DefaultConfig())
	b.AddBlocks(0x5000, 1024, TypeRAM, nil)
	cb1 := func(addr uint32, value byte) {}
	cb2 := func(addr uint32, value byte) {}

	if !b.TrapRead(0x5000, cb1) {
		t.Fatal("TrapRead(cb1) should succeed")
	}
	if b.TrapRead(0x5000, cb2) {
		t.Fatal("TrapRead(cb2) on a block already trapped by cb1 should fail")
	}
}

// TestTrapCallbackOrdering covers spec invariant 4 and scenario B: write
// traps fire BEFORE the store; read traps fire AFTER the load.
func TestTrapCallbackOrdering(t *testing.T) {
	b := New(DefaultConfig())
	b.AddBlocks(0x2000, 1024, TypeRAM, nil)

	var sawDuringCallback byte
	var callCount int
	cb := func(addr uint32, value byte) {
		callCount++
		sawDuringCallback = b.ReadData(0x2050, nil)
	}
	if !b.TrapWrite(0x2050, cb) {
		t.Fatal("TrapWrite failed")
	}

	b.WriteData(0x2050, 0xCC, nil)

	if callCount != 1 {
		t.Fatalf("write trap fired %d times, want 1", callCount)
	}
	if sawDuringCallback == 0xCC {
		t.Fatal("write trap fired after the store, not before")
	}
	if got := b.ReadData(0x2050, nil); got != 0xCC {
		t.Fatalf("post-write read = 0x%02X, want 0xCC", got)
	}
}

func TestROMWriteProtected(t *testing.T) {
	b := New(DefaultConfig())
	b.AddBlocks(0x8000, 1024, TypeROM, nil)
	b.WriteData(0x8000, 0x42, nil)
	if got := b.ReadData(0x8000, nil); got == 0x42 {
		t.Fatal("ROM block accepted a write")
	}
}

func TestCleanBlocks(t *testing.T) {
	b := New(DefaultConfig())
	b.AddBlocks(0x1000, 1024, TypeRAM, nil)

	if clean := b.CleanBlocks(0x1000, 1024); !clean {
		t.Fatal("freshly installed block should start clean")
	}
	b.WriteData(0x1000, 1, nil)
	if clean := b.CleanBlocks(0x1000, 1024); clean {
		t.Fatal("CleanBlocks should report dirty before clearing it")
	}
	if clean := b.CleanBlocks(0x1000, 1024); !clean {
		t.Fatal("CleanBlocks should have cleared the dirty flag")
	}
}

func TestEnumBlocks(t *testing.T) {
	b := New(DefaultConfig())
	b.AddBlocks(0x1000, 1024, TypeRAM, nil)
	b.AddBlocks(0x2000, 1024, TypeROM, nil)
	b.AddBlocks(0x3000, 1024, TypeVideo, nil)

	var types []BlockType
	count := b.EnumBlocks(TypeRAM|TypeROM, func(blk *Block) {
		types = append(types, blk.Type)
	})
	if count != 2 {
		t.Fatalf("EnumBlocks visited %d blocks, want 2", count)
	}
	for _, ty := range types {
		if ty == TypeVideo {
			t.Fatal("EnumBlocks visited a VIDEO block despite the mask")
		}
	}
}

func TestScenarioA(t *testing.T) {
	b := New(Config{AddrWidth: 16, DataWidth: 8, BlockSize: 1024})
	if !b.AddBlocks(0x2000, 1024, TypeRAM, nil) {
		t.Fatal("AddBlocks failed")
	}
	b.WriteData(0x2050, 0xAB, nil)
	if got := b.ReadData(0x2050, nil); got != 0xAB {
		t.Fatalf("got 0x%02X want 0xAB", got)
	}
	if got := b.ReadData(0x3050, nil); got != noneSentinel {
		t.Fatalf("got 0x%02X want NONE sentinel", got)
	}
}

func TestScenarioB(t *testing.T) {
	b := New(DefaultConfig())
	b.AddBlocks(0x2000, 1024, TypeRAM, nil)

	var callCount int
	var observedBefore byte
	cb := func(addr uint32, value byte) {
		callCount++
		observedBefore = b.ReadData(0x2050, nil)
	}
	b.TrapWrite(0x2050, cb)
	b.WriteData(0x2050, 0xCC, nil)

	if callCount != 1 {
		t.Fatalf("callback fired %d times, want exactly once", callCount)
	}
	if observedBefore == 0xCC {
		t.Fatal("callback observed the post-write value; spec requires pre-write")
	}
	if got := b.ReadData(0x2050, nil); got != 0xCC {
		t.Fatalf("final value = 0x%02X, want 0xCC", got)
	}
}
