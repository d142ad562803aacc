// register.go - Segment Register: descriptor cache plus mode-tagged
// dispatch for load/loadIDT/checkRead/checkWrite.
//
// Grounded on the teacher's general struct-with-accessor style
// (memory_bus.go's Bus type); the descriptor cache semantics below come
// directly from spec §4.3, which is precise enough to implement from
// prose alone — there is no segmentation-unit analogue in the example
// pack.

package segment

// Register is one CPU segment register (CS, DS, ES, SS, or the LDTR)
// together with its descriptor cache.
type Register struct {
	Name string
	Role RoleID
	Sys  *System

	Sel      uint16
	Base     uint32
	Limit    uint32
	OffMax   uint32
	Acc      uint16 // high byte: real access rights; low byte: base bits 16-23
	Type     uint8  // extracted type/sub-type bits
	Ext      uint16
	AddrDesc uint32 // linear address of the descriptor this was loaded from, or invalidAddr

	CPL uint8
	DPL uint8

	ExpDown bool

	DataSize, AddrSize int    // 2 or 4
	DataMask, AddrMask uint32

	Wide bool // enables the larger-model (32-bit) descriptor fields

	// CODE-segment-only state (spec §3).
	AwParms      [32]uint16
	FCall        CallKind
	FStackSwitch bool

	// Pending transfer, populated by a successful gate load; the CPU
	// reads these after Load returns Ok to finish applying the
	// control transfer (set EIP, and if FStackSwitch, adopt the new
	// SS:SP and push OldSS/OldSP/the copied parameters).
	PendingEIP        uint32
	PendingSS         uint16
	PendingSP         uint16
	PendingOldSS      uint16
	PendingOldSP      uint16
	PendingParamCount int

	mode      Mode
	readKind  checkKind
	writeKind checkKind
}

// New constructs a Register in real mode with the conventional 16-bit
// defaults; sys may be shared across every register on one CPU.
func New(name string, role RoleID, sys *System) *Register {
	r := &Register{
		Name:      name,
		Role:      role,
		Sys:       sys,
		DataSize:  2,
		AddrSize:  2,
		DataMask:  0xFFFF,
		AddrMask:  0xFFFF,
		AddrDesc:  invalidAddr,
		mode:      ModeReal,
		readKind:  checkNormal,
		writeKind: checkNormal,
	}
	return r
}

// Load resolves sel through whichever mode this register is bound to.
// suppress, when true, turns protected-mode faults into Invalid instead
// of invoking Sys.Fault.
func (r *Register) Load(sel uint16, suppress bool) LoadResult {
	switch r.mode {
	case ModeProtected:
		return r.loadProt(sel, suppress)
	default:
		return r.loadReal(sel)
	}
}

// loadReal implements spec §4.3's real-mode load: store sel, rebase,
// leave every other attribute unchanged.
func (r *Register) loadReal(sel uint16) LoadResult {
	r.Sel = sel
	r.Base = uint32(sel) << 4
	return ok(r.Base)
}

// LoadIDT fetches interrupt vector, dispatching on mode.
func (r *Register) LoadIDT(vector uint16, suppress bool) LoadResult {
	switch r.mode {
	case ModeProtected:
		return r.loadIDTProt(vector, suppress)
	default:
		return r.loadIDTReal(vector)
	}
}

func (r *Register) loadIDTReal(vector uint16) LoadResult {
	entryAddr := r.Sys.IDTBase + uint32(vector)*4 // real-mode IVT lives at IDT.base
	offset := r.Sys.Mem.ReadWord(entryAddr)
	segSel := r.Sys.Mem.ReadWord(entryAddr + 2)
	res := r.Load(segSel, false)
	if res.Kind != Ok {
		return res
	}
	return ok(res.Base + uint32(offset))
}

// CheckRead/CheckWrite validate [offset, offset+count) and return the
// resulting linear address.
func (r *Register) CheckRead(offset uint32, count uint32, suppress bool) LoadResult {
	return r.check(offset, count, suppress, r.readKind)
}

func (r *Register) CheckWrite(offset uint32, count uint32, suppress bool) LoadResult {
	return r.check(offset, count, suppress, r.writeKind)
}

func (r *Register) check(offset, count uint32, suppress bool, kind checkKind) LoadResult {
	if r.mode != ModeProtected {
		return ok(r.Base + offset)
	}
	switch kind {
	case checkDisallowed:
		return r.protFault(suppress, false)
	case checkExpandDown:
		if offset > r.Limit && offset+count-1 <= r.AddrMask {
			return ok(r.Base + offset)
		}
		return r.protFault(suppress, false)
	default:
		if uint64(offset)+uint64(count) <= uint64(r.OffMax) {
			return ok(r.Base + offset)
		}
		return r.protFault(suppress, false)
	}
}

func (r *Register) protFault(suppress bool, fatal bool) LoadResult {
	if suppress {
		return invalid()
	}
	r.Sys.fault(ExGP, 0, fatal)
	return fault(ExGP, 0, fatal)
}

// SetBase forces a base independent of the loaded selector; truncated
// to 24 bits, the 80286's physical address width.
func (r *Register) SetBase(addr uint32) {
	r.Base = addr & 0x00FFFFFF
}

// EnterProtectedMode switches this register's dispatch from real to
// protected without touching its cached descriptor, matching real
// 80286 behavior: setting PE doesn't retroactively reload CS/DS/etc,
// it just changes what the next Load resolves against. The CPU calls
// this once per segment register when the guest sets CR0.PE.
func (r *Register) EnterProtectedMode() {
	r.updateMode(false, true)
}

// savedState is everything needed to resume a Register without
// requerying descriptor memory (spec §6 persisted-state list).
type savedState struct {
	Sel, Base, Limit                       uint32
	Acc                                     uint16
	Role                                    RoleID
	CPL, DPL                                uint8
	AddrDesc                                uint32
	AddrSize, DataSize                      int
	AddrMask, DataMask                      uint32
	Type                                    uint8
	OffMax                                  uint32
}

func (r *Register) Save() any {
	return savedState{
		Sel: uint32(r.Sel), Base: r.Base, Limit: r.Limit,
		Acc: r.Acc, Role: r.Role, CPL: r.CPL, DPL: r.DPL,
		AddrDesc: r.AddrDesc, AddrSize: r.AddrSize, DataSize: r.DataSize,
		AddrMask: r.AddrMask, DataMask: r.DataMask, Type: r.Type,
		OffMax: r.OffMax,
	}
}

func (r *Register) Restore(state any) bool {
	s, okType := state.(savedState)
	if !okType {
		return false
	}
	r.Sel = uint16(s.Sel)
	r.Base = s.Base
	r.Limit = s.Limit
	r.Acc = s.Acc
	r.Role = s.Role
	r.CPL = s.CPL
	r.DPL = s.DPL
	r.AddrDesc = s.AddrDesc
	r.AddrSize = s.AddrSize
	r.DataSize = s.DataSize
	r.AddrMask = s.AddrMask
	r.DataMask = s.DataMask
	r.Type = s.Type
	r.OffMax = s.OffMax
	r.updateMode(false, r.Sys.Protected)
	return true
}

// updateMode rebinds the dispatch tags and, when justLoaded, recomputes
// cpl/dpl/operand-size defaults from the current descriptor (spec
// §4.3.5).
func (r *Register) updateMode(justLoaded, protectedMode bool) {
	if protectedMode {
		r.mode = ModeProtected
	} else {
		r.mode = ModeReal
	}

	nullSel := r.Sel&^selRPLMask == 0
	switch {
	case r.mode != ModeProtected:
		r.readKind, r.writeKind = checkNormal, checkNormal
	case nullSel:
		r.readKind, r.writeKind = checkDisallowed, checkDisallowed
	case r.ExpDown:
		r.readKind, r.writeKind = checkExpandDown, checkExpandDown
	default:
		r.readKind, r.writeKind = checkNormal, checkNormal
		if r.Role == RoleCode && r.Acc&accReadable == 0 {
			r.readKind = checkDisallowed
		}
		if r.Role == RoleData || r.Role == RoleStack {
			if r.Acc&accWritable == 0 {
				r.writeKind = checkDisallowed
			}
		} else if r.Role == RoleCode {
			r.writeKind = checkDisallowed
		}
	}

	if !justLoaded {
		return
	}
	if !nullSel && r.AddrDesc != invalidAddr {
		setAccessed(r.Sys.Mem, r.AddrDesc)
		r.Acc |= accAccessed // mark the cached copy too
	}
	if r.mode == ModeProtected {
		r.CPL = uint8(r.Sel & selRPLMask)
	} else {
		r.CPL = 0
	}
	accessByte := (r.Acc >> 8) & 0xFF
	r.DPL = uint8((accessByte & (accDPLMask >> 8)) >> (accDPLShift - 8))

	if r.Wide && r.Ext&extBig != 0 {
		r.DataSize, r.AddrSize = 4, 4
		r.DataMask, r.AddrMask = 0xFFFFFFFF, 0xFFFFFFFF
	} else {
		r.DataSize, r.AddrSize = 2, 2
		r.DataMask, r.AddrMask = 0xFFFF, 0xFFFF
	}
}

func setAccessed(mem Memory, descAddr uint32) {
	b := mem.ReadByte(descAddr + accessedByteOffset)
	mem.WriteByte(descAddr+accessedByteOffset, b|byte(accAccessed>>8))
}
