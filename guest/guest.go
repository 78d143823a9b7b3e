// Package guest models the architectural state of the ARMv5 guest machine:
// the register file, program counter, and program status register. The
// field layout of GuestState is pinned and observable — generated code
// (package emit) encodes byte offsets into this structure directly, and the
// runtime trampoline (package runtime) bakes in the address of its register
// file, so its layout must never change without updating every offset
// constant that depends on it.
package guest

import "fmt"

// RegIdx names one of the 16 guest registers (R0..R15, with R15 special-cased
// as the program counter during lifting — see readRegOrPC in lift/arm).
type RegIdx = uint32

// NumRegs is the number of general-purpose guest registers (R0..R14); R15
// is tracked separately as PC.
const NumRegs = 15

// Field byte offsets within GuestState, as observed by generated code.
// LrOffset is R14 ("link register" by software convention).
// PcOffset is the program counter.
// These are the two offsets the emitter currently bakes into native
// code; if NumRegs or the field order above ever changes, these
// must be recomputed together.
const (
	LrOffset = 14 * 4 // 0x38
	PcOffset = NumRegs * 4 // 0x3C
)

// ProgramCounter distinguishes the two views of PC the ARM architecture
// exposes: the fetch address (the instruction being lifted) and the exec
// address (fetch+8), which is what guest code observes when it reads R15.
type ProgramCounter uint32

// Fetch returns the address of the instruction currently being lifted.
func (pc ProgramCounter) Fetch() uint32 { return uint32(pc) }

// Exec returns the value guest code observes when reading R15 mid-instruction.
func (pc ProgramCounter) Exec() uint32 { return uint32(pc) + 8 }

// Increment advances the fetch PC by one instruction (4 bytes), wrapping.
func (pc *ProgramCounter) Increment() { *pc = ProgramCounter(uint32(*pc) + 4) }

// CpuMode is the 5-bit operating mode field of the CPSR.
type CpuMode uint32

const (
	ModeUsr CpuMode = 0b10000
	ModeFiq CpuMode = 0b10001
	ModeIrq CpuMode = 0b10010
	ModeSvc CpuMode = 0b10011
	ModeAbt CpuMode = 0b10111
	ModeUnd CpuMode = 0b11011
	ModeSys CpuMode = 0b11111
)

// IsPrivileged reports whether this mode runs with elevated privileges.
func (m CpuMode) IsPrivileged() bool { return m != ModeUsr }

// CpuModeFromBits decodes the 5-bit mode field. Invalid bit patterns are a
// decoder/guest-state-corruption bug and are fatal (spec.md §7).
func CpuModeFromBits(x uint32) CpuMode {
	switch x {
	case uint32(ModeUsr), uint32(ModeFiq), uint32(ModeIrq), uint32(ModeSvc),
		uint32(ModeAbt), uint32(ModeUnd), uint32(ModeSys):
		return CpuMode(x)
	default:
		panic(fmt.Sprintf("invalid CPU mode bits %#08x", x))
	}
}

// Psr is the 32-bit program status register (CPSR).
type Psr uint32

func (p *Psr) setBit(idx uint, val bool) {
	if val {
		*p |= 1 << idx
	} else {
		*p &^= 1 << idx
	}
}

func (p Psr) Mode() CpuMode   { return CpuModeFromBits(uint32(p) & 0x1f) }
func (p Psr) Thumb() bool     { return p&0x0000_0020 != 0 }
func (p Psr) FiqDisable() bool { return p&0x0000_0040 != 0 }
func (p Psr) IrqDisable() bool { return p&0x0000_0080 != 0 }

func (p Psr) Q() bool { return p&0x0800_0000 != 0 }
func (p Psr) V() bool { return p&0x1000_0000 != 0 }
func (p Psr) C() bool { return p&0x2000_0000 != 0 }
func (p Psr) Z() bool { return p&0x4000_0000 != 0 }
func (p Psr) N() bool { return p&0x8000_0000 != 0 }

func (p *Psr) SetMode(m CpuMode) { *p = (*p &^ 0x1f) | Psr(m) }
func (p *Psr) SetThumb(v bool)     { p.setBit(5, v) }
func (p *Psr) SetFiqDisable(v bool) { p.setBit(6, v) }
func (p *Psr) SetIrqDisable(v bool) { p.setBit(7, v) }

func (p *Psr) SetQ(v bool) { p.setBit(27, v) }
func (p *Psr) SetV(v bool) { p.setBit(28, v) }
func (p *Psr) SetC(v bool) { p.setBit(29, v) }
func (p *Psr) SetZ(v bool) { p.setBit(30, v) }
func (p *Psr) SetN(v bool) { p.setBit(31, v) }

// Cond is a 4-bit ARM condition code.
type Cond uint32

const (
	CondEQ Cond = 0b0000
	CondNE Cond = 0b0001
	CondCS Cond = 0b0010
	CondCC Cond = 0b0011
	CondMI Cond = 0b0100
	CondPL Cond = 0b0101
	CondVS Cond = 0b0110
	CondVC Cond = 0b0111
	CondHI Cond = 0b1000
	CondLS Cond = 0b1001
	CondGE Cond = 0b1010
	CondLT Cond = 0b1011
	CondGT Cond = 0b1100
	CondLE Cond = 0b1101
	CondAL Cond = 0b1110
)

// CondFromBits decodes the 4-bit condition field of an ARM opcode. Bit
// pattern 0b1111 ("NV", never taken on ARMv5) is a decoder contract
// violation if it reaches here — handlers must not be invoked for it.
func CondFromBits(x uint32) Cond {
	if x > uint32(CondAL) {
		panic(fmt.Sprintf("invalid condition bits %#x", x))
	}
	return Cond(x)
}

// GuestState is the pinned architectural register file. Field order and
// width are load-bearing: generated code addresses Reg and Pc by byte
// offset (see LrOffset, PcOffset above) and reaches Cpsr through its own
// pointer, and the runtime maps a pointer to this structure into the
// reserved guest-register-file host register.
type GuestState struct {
	Reg  [NumRegs]uint32 // R0..R14; R14 conventionally holds the link register
	Pc   ProgramCounter
	Cpsr Psr
}

// NewGuestState creates guest state with the given initial PC and CPSR.
func NewGuestState(pc uint32, cpsr uint32) *GuestState {
	return &GuestState{Pc: ProgramCounter(pc), Cpsr: Psr(cpsr)}
}

// Dump renders the register file for diagnostics, in the same four-per-row
// layout a debugger for this architecture would use.
func (s *GuestState) Dump() string {
	return fmt.Sprintf(
		" R0=%08x  R1=%08x R2=%08x  R3=%08x\n"+
			" R4=%08x  R5=%08x R6=%08x  R7=%08x\n"+
			" R8=%08x  R9=%08x R10=%08x R11=%08x\n"+
			"R12=%08x R13=%08x R14=%08x R15=%08x  CPSR=%08x",
		s.Reg[0], s.Reg[1], s.Reg[2], s.Reg[3],
		s.Reg[4], s.Reg[5], s.Reg[6], s.Reg[7],
		s.Reg[8], s.Reg[9], s.Reg[10], s.Reg[11],
		s.Reg[12], s.Reg[13], s.Reg[14], s.Pc.Fetch(), uint32(s.Cpsr))
}
