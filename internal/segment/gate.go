// gate.go - Gate processing: call, interrupt, trap and task gates
// (spec §4.3.2)

package segment

// processGate handles a control transfer through a system descriptor
// found where a code segment was expected. offsetWord/gateSelWord are
// the gate descriptor's offset and target-selector fields, reusing the
// generic 8-byte layout loadDesc8 already parsed (offset where `limit`
// would be, target selector where `base-low` would be).
func (r *Register) processGate(origSel uint16, offsetWord, gateSelWord uint32, acc uint16, sysType uint8, suppress bool) LoadResult {
	if sysType == sysTaskGate {
		return r.switchTSS(uint16(gateSelWord), true)
	}

	gateDPL := uint8((acc & accDPLMask) >> accDPLShift)
	rpl := origSel & selRPLMask
	effRPL := rpl
	if uint16(r.CPL) > effRPL {
		effRPL = uint16(r.CPL)
	}
	if effRPL > uint16(gateDPL) {
		return r.protFault(suppress, false)
	}

	targetSel := uint16(gateSelWord)
	targetOffset := uint16(offsetWord)
	wordCount := int(acc & 0x1F)

	res := r.transferThroughGate(targetSel, targetOffset, wordCount, suppress)
	if res.Kind != Ok {
		return res
	}

	switch sysType {
	case sysIntGate16:
		r.maskFlagsForGate(true)
	case sysTrapGate16:
		r.maskFlagsForGate(false)
	}
	return res
}

// transferThroughGate resolves the target code descriptor directly
// (bypassing the normal dpl==cpl equality check a direct CALLF/JMPF
// enforces, since a gate's whole purpose is to permit a privilege
// change the gate descriptor's own DPL already authorized above), then
// performs the stack switch when the target is more privileged.
func (r *Register) transferThroughGate(targetSel, targetOffset uint16, wordCount int, suppress bool) LoadResult {
	oldCPL := r.CPL

	tableBase, tableLimit := r.Sys.GDTBase, r.Sys.GDTLimit
	if targetSel&selTIBit != 0 {
		if r.Sys.LDTR == nil {
			return r.protFault(suppress, true)
		}
		tableBase, tableLimit = r.Sys.LDTR.Base, r.Sys.LDTR.Limit
	}
	index := uint32(targetSel &^ (selRPLMask | selTIBit))
	if index+7 > tableLimit {
		return r.protFault(suppress, false)
	}
	descAddr := tableBase + index

	mem := r.Sys.Mem
	limit := uint32(mem.ReadWord(descAddr))
	baseLow := uint32(mem.ReadWord(descAddr + 2))
	acc := mem.ReadWord(descAddr + 4)
	ext := mem.ReadWord(descAddr + 6)
	base := baseLow | ((uint32(acc) & 0xFF) << 16)
	if r.Wide {
		base |= uint32(ext&extBase2431) << 16
		limit |= uint32(ext&extLimit1619) << 16
		if ext&extLimitPages != 0 {
			limit = (limit << 12) | 0xFFF
		}
	}
	if acc&accP == 0 {
		return r.faultNP(targetSel, suppress)
	}
	dpl := uint8((acc & accDPLMask) >> accDPLShift)

	// The new CS selector's RPL is forced to the new CPL, matching the
	// hardware's behavior on a privilege-changing control transfer.
	loadedSel := (targetSel &^ selRPLMask) | uint16(dpl)
	r.commit(loadedSel, base, limit, acc, ext, descAddr, 0, RoleCode, dpl)
	r.PendingEIP = uint32(targetOffset)
	r.FStackSwitch = false

	if dpl < oldCPL {
		r.stageStackSwitch(dpl, wordCount)
	}
	return ok(r.Base + uint32(targetOffset))
}

// stageStackSwitch implements the privilege-raising half of spec
// §4.3.2: copy wordCount parameters off the current stack into
// AwParms, look up the target CPL's SS:SP in the current TSS, and
// stage OldSS/OldSP/the parameters for the CPU to push once it has
// adopted the new stack (this package never mutates SP/SS directly;
// those are CPU-owned registers).
func (r *Register) stageStackSwitch(newCPL uint8, wordCount int) {
	sys := r.Sys
	if sys.TR == nil || sys.CurrentSP == nil || sys.CurrentSS == nil || sys.ReadStackWord == nil {
		return
	}
	if wordCount > len(r.AwParms) {
		wordCount = len(r.AwParms)
	}
	for i := 0; i < wordCount; i++ {
		r.AwParms[i] = sys.ReadStackWord(i)
	}

	newSS := sys.Mem.ReadWord(sys.TR.Base + cplSSOffset(newCPL))
	newSP := sys.Mem.ReadWord(sys.TR.Base + cplSPOffset(newCPL))

	r.PendingOldSS = sys.CurrentSS()
	r.PendingOldSP = sys.CurrentSP()
	r.PendingSS = newSS
	r.PendingSP = newSP
	r.PendingParamCount = wordCount
	r.FStackSwitch = true
}

// maskFlagsForGate clears the processor-status bits a hardware
// interrupt/trap gate is required to clear on entry.
func (r *Register) maskFlagsForGate(isInterruptGate bool) {
	if r.Sys.MaskFlags == nil {
		return
	}
	r.Sys.MaskFlags(isInterruptGate)
}
