// types.go - Shared enums and the Memory/System collaborator contracts
//
// Segment Register never talks to the Bus directly (spec §6: the
// external interfaces name Memory/Bus and CPU as separate
// collaborators). Memory is the narrow slice of Bus this package
// needs; a *bus.Bus satisfies it through a one-line adapter at the
// wiring layer (internal/stubcpu's BusMemory), keeping this package free of a direct
// dependency on internal/bus.

package segment

// Memory is the descriptor-table access a Register needs: reading
// 16-bit fields out of GDT/LDT/IDT entries, and setting the ACCESSED
// bit back into a descriptor after a successful load.
type Memory interface {
	ReadWord(addr uint32) uint16
	ReadByte(addr uint32) byte
	WriteByte(addr uint32, value byte)
}

// Mode tags whether a Register's dispatch slots are bound to real or
// protected mode (spec Design Note: a tagged variant, not swapped
// function values).
type Mode int

const (
	ModeReal Mode = iota
	ModeProtected
)

// checkKind tags which bounds-check variant checkRead/checkWrite
// currently resolve to.
type checkKind int

const (
	checkDisallowed checkKind = iota // null selector: every access faults
	checkNormal                      // offset must lie within [0, offMax)
	checkExpandDown                  // offset must lie within (limit, 0xFFFF]
)

// RoleID is the segment's descriptor role (spec's `id` attribute).
type RoleID int

const (
	RoleCode RoleID = iota
	RoleData
	RoleStack
	RoleTSS
	RoleLDT
	RoleOther
)

func (r RoleID) String() string {
	switch r {
	case RoleCode:
		return "CODE"
	case RoleData:
		return "DATA"
	case RoleStack:
		return "STACK"
	case RoleTSS:
		return "TSS"
	case RoleLDT:
		return "LDT"
	default:
		return "OTHER"
	}
}

// CallKind is the spec's `fCall` tri-state, set by the CPU immediately
// before a load that may cross a privilege boundary.
type CallKind int

const (
	// CallNone: no privilege change is permitted on this load.
	CallNone CallKind = iota
	// CallIn: CALLF/INT — a transition to a numerically lower (more
	// privileged) CPL via a gate is allowed.
	CallIn
	// CallOut: RETF/IRET — a transition to a numerically higher (less
	// privileged) CPL is allowed; SP then SS are popped.
	CallOut
)

// System is the descriptor-table and fault-reporting context shared by
// every Register belonging to one CPU. One System is constructed per
// machine and handed to each Register at New.
type System struct {
	Mem Memory

	GDTBase, GDTLimit uint32
	IDTBase, IDTLimit uint32

	// LDTR is the segment holding the currently loaded LDT's base and
	// limit; nil (or an empty selector) means no LDT is loaded.
	LDTR *Register

	// Protected reports whether the CPU is currently in protected
	// mode; Register.Restore consults it to rebind dispatch. Load
	// dispatches on each register's own mode tag, which
	// EnterProtectedMode or a protected load sets.
	Protected bool

	// Fault reports a segmentation exception to the CPU. May be nil in
	// tests that only exercise suppressed (probing) loads.
	Fault func(code Exception, errorCode uint16, fatal bool)

	// TR is the segment holding the currently loaded Task State
	// Segment's base/limit, consulted by call gates and task switches
	// for the CPL-indexed SP/SS fields.
	TR *Register

	// CurrentSP/CurrentSS/ReadStackWord let a call gate read the
	// caller's stack (general registers and SP live on the CPU, not
	// in this package) to copy its parameter words onto the new
	// stack. wordIndex counts words downward from the current SP.
	CurrentSP     func() uint16
	CurrentSS     func() uint16
	ReadStackWord func(wordIndex int) uint16

	// MaskFlags clears the processor-status bits an interrupt
	// (isInterrupt=true) or trap (isInterrupt=false) gate must clear
	// on entry (IF/TF/NT, or TF/NT respectively). The PS register
	// lives on the CPU side.
	MaskFlags func(isInterrupt bool)

	// SaveContext/LoadContext snapshot and restore the general
	// registers and flags a task switch carries across (spec §4.3.3);
	// they live on the CPU, not in this package.
	SaveContext func() TaskContext
	LoadContext func(TaskContext)

	// SetNestedTask sets or clears PS.NT (nested-task) on the CPU.
	SetNestedTask func(bool)

	// SetBusy is invoked after a successful task switch so the CPU
	// can set CR0.TS.
	SetBusy func()
}

// TaskContext is the register file a TSS carries across a task
// switch (spec §4.3.3's save/restore list).
type TaskContext struct {
	IP, Flags              uint16
	AX, CX, DX, BX         uint16
	SP, BP, SI, DI         uint16
	ES, CS, SS, DS         uint16
}

func (s *System) fault(code Exception, errorCode uint16, fatal bool) {
	if s.Fault != nil {
		s.Fault(code, errorCode, fatal)
	}
}

const invalidAddr uint32 = 0xFFFFFFFF
