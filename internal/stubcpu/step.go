// step.go - Fetch/decode/execute for the stub's tiny synthetic
// instruction set: just enough opcodes to exercise a segment load, a
// privilege-changing call-gate/task-gate transfer, and a return, since
// real 80286 decode is out of scope (spec Non-goal). Fetch addresses
// are the CS descriptor cache's base plus IP; fetches are not checked
// against the CS limit.
//
// Grounded on cpu_x86.go's opcode-dispatch-table shape, collapsed from
// a 256-entry jump table down to a plain switch since this "decoder"
// only needs a handful of opcodes.

package stubcpu

import "github.com/ie286emu/core/internal/segment"

const (
	opNOP     = 0x00
	opLoadSeg = 0x01 // LOADSEG reg, sel_lo, sel_hi
	opCallGate = 0x02 // CALLGATE sel_lo, sel_hi
	opRetf    = 0x03 // RETF
	opIntN    = 0x04 // INT vector
	opIret    = 0x05 // IRET
	opHlt     = 0xFF
)

var segOperand = [4]string{"DS", "ES", "SS", "CS"}

func (c *CPU) readByte(addr uint32) byte { return c.Bus.ReadData(addr, nil) }
func (c *CPU) readWord(addr uint32) uint16 {
	return uint16(c.readByte(addr)) | uint16(c.readByte(addr+1))<<8
}
func (c *CPU) writeWord(addr uint32, v uint16) {
	c.Bus.WriteData(addr, byte(v), nil)
	c.Bus.WriteData(addr+1, byte(v>>8), nil)
}

func (c *CPU) csLinear(offset uint16) uint32 {
	cs := c.Segs["CS"]
	if cs == nil {
		return uint32(offset)
	}
	return cs.Base + uint32(offset)
}

// Step decodes and executes exactly one synthetic instruction,
// returning a rough cycle count for Clock.OnStep. Halted CPUs no-op.
func (c *CPU) Step() int {
	if c.Halted {
		return 0
	}
	addr := c.csLinear(c.IP)
	op := c.readByte(addr)
	switch op {
	case opNOP:
		c.IP++
		return 1

	case opLoadSeg:
		reg := segOperand[c.readByte(addr+1)&0x03]
		sel := uint16(c.readByte(addr+2)) | uint16(c.readByte(addr+3))<<8
		c.IP += 4
		if r := c.Segs[reg]; r != nil {
			r.Load(sel, false)
		}
		return 4

	case opCallGate:
		sel := uint16(c.readByte(addr+1)) | uint16(c.readByte(addr+2))<<8
		c.IP += 3
		c.farCall(sel)
		return 8

	case opRetf:
		c.farReturn()
		return 6

	case opIntN:
		vector := uint16(c.readByte(addr + 1))
		c.IP += 2
		c.interrupt(vector)
		return 8

	case opIret:
		// Simplified: shares farReturn with RETF rather than also
		// popping FLAGS, since this stepper doesn't model a pushed
		// flags word on the gate-entry path either.
		c.farReturn()
		return 6

	case opHlt:
		c.Halted = true
		c.IP++
		return 1

	default:
		// Unknown opcode: treat as a one-byte NOP rather than fault,
		// since this stub never claims to decode real 80286 encodings.
		c.IP++
		return 1
	}
}

// farCall drives a CS load through a system descriptor — call gate,
// task gate, interrupt gate, or trap gate — and applies whatever
// pending control-transfer state internal/segment staged. It assumes
// sel names one of those (PendingEIP is only populated along the gate
// path); a direct same-privilege far jump to a plain code segment goes
// through opLoadSeg instead, which just exercises the descriptor load
// itself without pretending to relocate IP to an instruction-supplied
// offset this stub never decoded.
func (c *CPU) farCall(sel uint16) {
	cs := c.Segs["CS"]
	if cs == nil {
		return
	}
	oldCPL := cs.CPL
	cs.FCall = segment.CallIn
	res := cs.Load(sel, false)
	if res.Kind != segment.Ok {
		return
	}
	c.applyPendingTransfer(cs, oldCPL)
}

// interrupt drives an IDT-indexed gate load the same way.
func (c *CPU) interrupt(vector uint16) {
	cs := c.Segs["CS"]
	if cs == nil {
		return
	}
	oldCPL := cs.CPL
	cs.FCall = segment.CallIn
	res := cs.LoadIDT(vector, false)
	if res.Kind != segment.Ok {
		return
	}
	c.applyPendingTransfer(cs, oldCPL)
}

// applyPendingTransfer adopts PendingEIP and, when the gate raised
// privilege, the staged stack switch (spec §4.3.2's parameter-copy/
// stack-switch sequence that internal/segment stages but never
// applies itself, since SP/SS are CPU-owned).
func (c *CPU) applyPendingTransfer(cs *segment.Register, oldCPL uint8) {
	c.IP = uint16(cs.PendingEIP)
	if !cs.FStackSwitch {
		return
	}
	ss := c.Segs["SS"]
	if ss == nil {
		return
	}
	oldSS, oldSP := cs.PendingOldSS, cs.PendingOldSP
	ss.Load(cs.PendingSS, false)
	c.SP = cs.PendingSP
	c.push(ss, oldSS)
	c.push(ss, oldSP)
	for i := cs.PendingParamCount - 1; i >= 0; i-- {
		c.push(ss, cs.AwParms[i])
	}
}

// farReturn pops CS:IP and, when returning to a less-privileged level,
// SS:SP as well.
func (c *CPU) farReturn() {
	cs, ss := c.Segs["CS"], c.Segs["SS"]
	if cs == nil || ss == nil {
		return
	}
	oldCPL := cs.CPL
	newIP := c.pop(ss)
	newSel := c.pop(ss)
	cs.FCall = segment.CallOut
	res := cs.Load(newSel, false)
	if res.Kind != segment.Ok {
		return
	}
	c.IP = newIP
	if cs.CPL > oldCPL {
		newSP := c.pop(ss)
		newSS := c.pop(ss)
		ss.Load(newSS, false)
		c.SP = newSP
	}
}

func (c *CPU) push(ss *segment.Register, v uint16) {
	c.SP -= 2
	c.writeWord(ss.Base+uint32(c.SP), v)
}

func (c *CPU) pop(ss *segment.Register) uint16 {
	v := c.readWord(ss.Base + uint32(c.SP))
	c.SP += 2
	return v
}
