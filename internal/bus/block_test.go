package bus

import "testing"

func TestBlockLoadPreservesValues(t *testing.T) {
	blk := NewBlock(0, 16, TypeRAM)
	blk.Load([]byte{1, 2, 3, 4})
	if got := blk.ReadByte(0, nil); got != 1 {
		t.Fatalf("ReadByte(0) = %d, want 1", got)
	}
	if got := blk.ReadByte(3, nil); got != 4 {
		t.Fatalf("ReadByte(3) = %d, want 4", got)
	}
	if got := blk.ReadByte(4, nil); got != 0 {
		t.Fatalf("ReadByte(4) = %d, want 0 (untouched)", got)
	}
}

func TestBlockNoneSentinel(t *testing.T) {
	blk := NewBlock(0, 0, TypeNone)
	if got := blk.ReadByte(5, nil); got != noneSentinel {
		t.Fatalf("NONE block ReadByte = 0x%02X, want 0x%02X", got, noneSentinel)
	}
	blk.WriteByte(5, 0x42, nil) // must not panic
}

func TestBlockDirtyFlag(t *testing.T) {
	blk := NewBlock(0, 16, TypeRAM)
	if blk.IsDirty() {
		t.Fatal("new block should not be dirty")
	}
	blk.WriteByte(0, 1, nil)
	if !blk.IsDirty() {
		t.Fatal("block should be dirty after a write")
	}
	blk.Clean()
	if blk.IsDirty() {
		t.Fatal("Clean() should clear the dirty flag")
	}
}

func TestBlockTrapInstallRejectsSecondCallback(t *testing.T) {
	blk := NewBlock(0, 16, TypeRAM)
	cb1 := func(addr uint32, value byte) {}
	cb2 := func(addr uint32, value byte) {}

	if !blk.installReadTrap(cb1) {
		t.Fatal("first install should succeed")
	}
	if blk.installReadTrap(cb2) {
		t.Fatal("installing a distinct callback should fail")
	}
	if !blk.installReadTrap(cb1) {
		t.Fatal("re-installing the same callback should succeed (refcount++)")
	}
}
