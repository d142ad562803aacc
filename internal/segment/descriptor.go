// descriptor.go - Protected-mode descriptor loading (spec §4.3.1)

package segment

// loadProt resolves sel against the GDT/LDT and runs loadDesc8.
func (r *Register) loadProt(sel uint16, suppress bool) LoadResult {
	if sel&^selRPLMask == 0 {
		r.Sel = sel
		r.Acc = 0
		r.updateMode(false, true)
		return ok(0)
	}

	tableBase, tableLimit := r.Sys.GDTBase, r.Sys.GDTLimit
	if sel&selTIBit != 0 {
		if r.Sys.LDTR == nil {
			return r.protFault(suppress, true)
		}
		tableBase, tableLimit = r.Sys.LDTR.Base, r.Sys.LDTR.Limit
	}

	index := uint32(sel &^ (selRPLMask | selTIBit))
	if index+7 > tableLimit {
		return r.protFault(suppress, false)
	}
	descAddr := tableBase + index

	return r.loadDesc8(descAddr, sel, suppress)
}

// loadDesc8 implements spec §4.3.1 steps 1-4.
func (r *Register) loadDesc8(descAddr uint32, sel uint16, suppress bool) LoadResult {
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

	present := acc&accP != 0
	isSystemSeg := acc&accS == 0
	sysType := uint8(acc & 0x0F00 >> 8)

	switch r.Role {
	case RoleCode:
		r.FStackSwitch = false
		if isSystemSeg {
			if !present {
				return r.faultNP(sel, suppress)
			}
			switch sysType {
			case sysCallGate16, sysTaskGate, sysIntGate16, sysTrapGate16:
				return r.processGate(sel, limit, baseLow, acc, sysType, suppress)
			default:
				return r.protFault(suppress, false)
			}
		}
		if sel != 0 && !present {
			return r.faultNP(sel, suppress)
		}
		if acc&accExecutable == 0 {
			return r.protFault(suppress, false)
		}
		dpl := uint8((acc & accDPLMask) >> accDPLShift)
		rpl := sel & selRPLMask
		conforming := acc&accConforming != 0
		switch {
		case r.FCall == CallOut && rpl > uint16(r.CPL):
			// RETF/IRET to a numerically higher RPL (lower privilege):
			// accepted unconditionally; the CPU pops SP and SS from
			// the current stack.
		case conforming:
			if dpl > r.CPL {
				return r.protFault(suppress, false)
			}
		default:
			if dpl != r.CPL {
				return r.protFault(suppress, false)
			}
		}
		r.commit(sel, base, limit, acc, ext, descAddr, sysType, RoleCode, dpl)
		return ok(base)

	case RoleData:
		if sel != 0 && !present {
			return r.faultNP(sel, suppress)
		}
		executable := acc&accExecutable != 0
		readable := acc&accReadable != 0
		if isSystemSeg || (executable && !readable) {
			// Empty descriptor (acc == 0): real software loads DS with
			// one and recovers, so this fault is not fatal.
			fatal := acc != 0
			if suppress {
				return invalid()
			}
			r.Sys.fault(ExGP, sel, fatal)
			return fault(ExGP, sel, fatal)
		}
		r.ExpDown = !executable && acc&accExpDown != 0
		r.commit(sel, base, limit, acc, ext, descAddr, sysType, RoleData, uint8((acc&accDPLMask)>>accDPLShift))
		return ok(base)

	case RoleStack:
		if !present {
			if suppress {
				return invalid()
			}
			r.Sys.fault(ExSS, sel, true)
			return fault(ExSS, sel, true)
		}
		writable := acc&accS != 0 && acc&accExecutable == 0 && acc&accWritable != 0
		if !writable {
			return r.protFault(suppress, false)
		}
		r.ExpDown = acc&accExpDown != 0
		r.commit(sel, base, limit, acc, ext, descAddr, sysType, RoleStack, uint8((acc&accDPLMask)>>accDPLShift))
		return ok(base)

	case RoleTSS:
		if sysType != sysTSS16Avail && sysType != sysTSS16Busy {
			if suppress {
				return invalid()
			}
			r.Sys.fault(ExTS, sel, true)
			return fault(ExTS, sel, true)
		}
		r.commit(sel, base, limit, acc, ext, descAddr, sysType, RoleTSS, 0)
		return ok(base)

	default: // RoleLDT, RoleOther
		r.commit(sel, base, limit, acc, ext, descAddr, sysType, r.Role, uint8((acc&accDPLMask)>>accDPLShift))
		return ok(base)
	}
}

func (r *Register) faultNP(sel uint16, suppress bool) LoadResult {
	if suppress {
		return invalid()
	}
	r.Sys.fault(ExNP, sel, false)
	return fault(ExNP, sel, false)
}

func (r *Register) commit(sel uint16, base, limit uint32, acc, ext uint16, descAddr uint32, sysType uint8, role RoleID, dpl uint8) {
	r.Sel = sel
	r.Base = base
	r.Limit = limit
	r.OffMax = limit + 1
	r.Acc = acc
	r.Ext = ext
	r.AddrDesc = descAddr
	r.Type = sysType
	r.Role = role
	r.DPL = dpl
	r.updateMode(true, true)
}

// loadIDTProt treats the IDT entry as an 8-byte descriptor and runs
// the gate-processing path.
func (r *Register) loadIDTProt(vector uint16, suppress bool) LoadResult {
	descAddr := r.Sys.IDTBase + uint32(vector)*8
	if descAddr+7 > r.Sys.IDTBase+r.Sys.IDTLimit {
		return r.protFault(suppress, true)
	}
	return r.loadDesc8(descAddr, 0, suppress)
}
