// tss.go - Task switch (spec §4.3.3)

package segment

// switchTSS implements switchTSS(selNew, nest): r must be the CS
// segment. Saves the outgoing task's context into the current TSS,
// loads the incoming one from selNew's TSS, and switches LDT and (when
// the incoming task is more privileged) SS:SP.
func (r *Register) switchTSS(selNew uint16, nest bool) LoadResult {
	sys := r.Sys
	if sys.TR == nil {
		return r.protFault(false, true)
	}

	if !nest && sys.TR.Type != sysTSS16Busy {
		sys.fault(ExTS, selNew, true)
		return fault(ExTS, selNew, true)
	}
	if !nest {
		clearBusy(sys.Mem, sys.TR.AddrDesc)
	}

	tableBase, tableLimit := sys.GDTBase, sys.GDTLimit
	if selNew&selTIBit != 0 {
		// A TSS selector must reference the GDT; per the 80286
		// architecture an LDT-indicated selector here is invalid.
		return r.protFault(false, false)
	}
	index := uint32(selNew &^ (selRPLMask | selTIBit))
	if index+7 > tableLimit {
		return r.protFault(false, false)
	}
	newDescAddr := tableBase + index

	mem := sys.Mem
	limit := uint32(mem.ReadWord(newDescAddr))
	baseLow := uint32(mem.ReadWord(newDescAddr + 2))
	acc := mem.ReadWord(newDescAddr + 4)
	newType := uint8((acc & 0x0F00) >> 8)

	if newType != sysTSS16Avail {
		sys.fault(ExGP, selNew, false)
		return fault(ExGP, selNew, false)
	}
	setBusy(mem, newDescAddr)

	newBase := baseLow | ((uint32(acc) & 0xFF) << 16)

	if sys.SaveContext != nil && sys.TR.AddrDesc != invalidAddr {
		saveTaskContext(mem, sys.TR.Base, sys.SaveContext())
	}

	var incoming TaskContext
	if sys.LoadContext != nil {
		incoming = loadTaskContext(mem, newBase)
	}

	oldTRSel := sys.TR.Sel
	oldCPL := r.CPL

	sys.TR.Sel = selNew
	sys.TR.Base = newBase
	sys.TR.Limit = limit
	sys.TR.OffMax = limit + 1
	sys.TR.Acc = acc
	sys.TR.AddrDesc = newDescAddr
	sys.TR.Type = sysTSS16Busy

	if sys.SetNestedTask != nil {
		sys.SetNestedTask(nest)
	}

	newCPL := uint8(incoming.CS & selRPLMask)
	if newCPL < oldCPL {
		newSS := mem.ReadWord(newBase + cplSSOffset(newCPL))
		newSP := mem.ReadWord(newBase + cplSPOffset(newCPL))
		incoming.SS = newSS
		incoming.SP = newSP
	}

	if sys.LoadContext != nil {
		sys.LoadContext(incoming)
	}

	if sys.LDTR != nil {
		newLDTSel := mem.ReadWord(newBase + tssLDT)
		sys.LDTR.Load(newLDTSel, true)
	}

	if nest {
		mem.WriteByte(newBase+tssBackLink, byte(oldTRSel))
		mem.WriteByte(newBase+tssBackLink+1, byte(oldTRSel>>8))
	}

	if sys.SetBusy != nil {
		sys.SetBusy()
	}

	r.CPL = newCPL
	return ok(newBase)
}

func clearBusy(mem Memory, descAddr uint32) {
	if descAddr == invalidAddr {
		return
	}
	b := mem.ReadByte(descAddr + accessedByteOffset)
	mem.WriteByte(descAddr+accessedByteOffset, b&^byte(0x02))
}

func setBusy(mem Memory, descAddr uint32) {
	b := mem.ReadByte(descAddr + accessedByteOffset)
	mem.WriteByte(descAddr+accessedByteOffset, b|0x02)
}

func saveTaskContext(mem Memory, tssBase uint32, ctx TaskContext) {
	putWord(mem, tssBase+tssIP, ctx.IP)
	putWord(mem, tssBase+tssFlags, ctx.Flags)
	putWord(mem, tssBase+tssAX, ctx.AX)
	putWord(mem, tssBase+tssCX, ctx.CX)
	putWord(mem, tssBase+tssDX, ctx.DX)
	putWord(mem, tssBase+tssBX, ctx.BX)
	putWord(mem, tssBase+tssSP, ctx.SP)
	putWord(mem, tssBase+tssBP, ctx.BP)
	putWord(mem, tssBase+tssSI, ctx.SI)
	putWord(mem, tssBase+tssDI, ctx.DI)
	putWord(mem, tssBase+tssES, ctx.ES)
	putWord(mem, tssBase+tssCS, ctx.CS)
	putWord(mem, tssBase+tssSS, ctx.SS)
	putWord(mem, tssBase+tssDS, ctx.DS)
}

func loadTaskContext(mem Memory, tssBase uint32) TaskContext {
	return TaskContext{
		IP:    getWord(mem, tssBase+tssIP),
		Flags: getWord(mem, tssBase+tssFlags),
		AX:    getWord(mem, tssBase+tssAX),
		CX:    getWord(mem, tssBase+tssCX),
		DX:    getWord(mem, tssBase+tssDX),
		BX:    getWord(mem, tssBase+tssBX),
		SP:    getWord(mem, tssBase+tssSP),
		BP:    getWord(mem, tssBase+tssBP),
		SI:    getWord(mem, tssBase+tssSI),
		DI:    getWord(mem, tssBase+tssDI),
		ES:    getWord(mem, tssBase+tssES),
		CS:    getWord(mem, tssBase+tssCS),
		SS:    getWord(mem, tssBase+tssSS),
		DS:    getWord(mem, tssBase+tssDS),
	}
}

func putWord(mem Memory, addr uint32, v uint16) {
	mem.WriteByte(addr, byte(v))
	mem.WriteByte(addr+1, byte(v>>8))
}

func getWord(mem Memory, addr uint32) uint16 {
	return mem.ReadWord(addr)
}
