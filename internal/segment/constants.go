// constants.go - 80286 descriptor and selector bit layout

package segment

// Selector bits.
const (
	selRPLMask uint16 = 0x0003
	selTIBit   uint16 = 0x0004 // 0 = GDT, 1 = LDT
)

// Access-byte bits (the high byte of the 16-bit `acc` word loaded from
// descAddr+4; the low byte is base bits 16-23).
const (
	accP          uint16 = 1 << 15 // present
	accDPLMask    uint16 = 3 << 13
	accDPLShift          = 13
	accS          uint16 = 1 << 12 // 1 = code/data, 0 = system
	accExecutable uint16 = 1 << 11 // S=1 only: 1 = code, 0 = data
	accConforming uint16 = 1 << 10 // code: conforming
	accReadable   uint16 = 1 << 9  // code: readable
	accExpDown    uint16 = 1 << 10 // data: expand-down
	accWritable   uint16 = 1 << 9  // data: writable
	accAccessed   uint16 = 1 << 8
	accSysTypeMask uint16 = 0x0F00 // S=0: system descriptor type, in the high byte's low nibble
)

// accessedByteOffset is the offset, relative to descAddr, of the byte
// containing the ACCESSED bit: the access byte lives at descAddr+5.
const accessedByteOffset = 5

// System descriptor types (S == 0), held in the low nibble of the
// access byte.
const (
	sysInvalid     = 0x0
	sysTSS16Avail  = 0x1
	sysLDT         = 0x2
	sysTSS16Busy   = 0x3
	sysCallGate16  = 0x4
	sysTaskGate    = 0x5
	sysIntGate16   = 0x6
	sysTrapGate16  = 0x7
)

// Extended-rights (`ext`) bits, read from descAddr+6; only consulted
// when wide (larger-model) descriptors are enabled.
const (
	extBase2431    uint16 = 0xFF00
	extLimit1619   uint16 = 0x000F
	extLimitPages  uint16 = 1 << 7 // granularity (G)
	extBig         uint16 = 1 << 6 // default operand/address size (D/B)
)

// TSS field byte offsets (80286 TSS layout).
const (
	tssBackLink = 0x00
	tssSP0      = 0x02
	tssSS0      = 0x04
	tssSP1      = 0x06
	tssSS1      = 0x08
	tssSP2      = 0x0A
	tssSS2      = 0x0C
	tssIP       = 0x0E
	tssFlags    = 0x10
	tssAX       = 0x12
	tssCX       = 0x14
	tssDX       = 0x16
	tssBX       = 0x18
	tssSP       = 0x1A
	tssBP       = 0x1C
	tssSI       = 0x1E
	tssDI       = 0x20
	tssES       = 0x22
	tssCS       = 0x24
	tssSS       = 0x26
	tssDS       = 0x28
	tssLDT      = 0x2A
)

// cplSPOffset/cplSSOffset return the TSS field offsets for the
// CPL-indexed stack pointer used by call gates and task switches
// (cpl must be 0, 1 or 2; CPL3 never has a privileged stack).
func cplSPOffset(cpl uint8) uint32 {
	switch cpl {
	case 0:
		return tssSP0
	case 1:
		return tssSP1
	default:
		return tssSP2
	}
}

func cplSSOffset(cpl uint8) uint32 {
	switch cpl {
	case 0:
		return tssSS0
	case 1:
		return tssSS1
	default:
		return tssSS2
	}
}
