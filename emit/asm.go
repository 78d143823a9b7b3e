// Package emit hand-assembles x86-64 machine code for a lifted basic block
// and for the runtime dispatcher trampoline. There is no assembler-as-a-
// library in the dependency set this was grounded on, so instruction bytes
// are built up the same way the pack's own ELF code generator does it:
// small emitByte/emitBytes/emitU32 primitives plus inline REX/ModRM/SIB
// math (see Assembler below).
package emit

import "github.com/Urethramancer/armjit/regalloc"

// Assembler accumulates machine code bytes for one function's worth of
// generated code (a recompiled block, or the runtime trampoline).
type Assembler struct {
	code []byte
}

// NewAssembler returns an empty code buffer.
func NewAssembler() *Assembler { return &Assembler{} }

// Bytes returns the assembled machine code so far.
func (a *Assembler) Bytes() []byte { return a.code }

// Len reports how many bytes have been emitted.
func (a *Assembler) Len() int { return len(a.code) }

func (a *Assembler) emitByte(b byte) { a.code = append(a.code, b) }

func (a *Assembler) emitBytes(bs ...byte) { a.code = append(a.code, bs...) }

func (a *Assembler) emitI32(v int32) {
	a.emitBytes(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (a *Assembler) emitU32(v uint32) { a.emitI32(int32(v)) }

func (a *Assembler) emitU64(v uint64) {
	a.emitU32(uint32(v))
	a.emitU32(uint32(v >> 32))
}

// reg3 returns the low 3 bits of a register's ModRM/REX encoding.
func reg3(r regalloc.HostRegister) byte { return byte(r) & 7 }

// wide reports whether r needs REX.B/R/X (its encoding is 8 or above).
func wide(r regalloc.HostRegister) bool { return r >= 8 }

// rex builds a REX prefix byte from its four component bits.
func rex(w, r, x, b bool) byte {
	v := byte(0x40)
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

// emitRex emits a REX prefix if w is set or either register operand needs
// an extension bit; omitted otherwise, matching how real assemblers elide
// the prefix whenever the low 8 registers with no 64-bit operand suffice.
func (a *Assembler) emitRex(w bool, r, b regalloc.HostRegister) {
	if w || wide(r) || wide(b) {
		a.emitByte(rex(w, wide(r), false, wide(b)))
	}
}

func modrm(mod, reg, rm byte) byte { return mod<<6 | (reg&7)<<3 | (rm & 7) }

// PushReg pushes a 64-bit register.
func (a *Assembler) PushReg(r regalloc.HostRegister) {
	if wide(r) {
		a.emitByte(rex(false, false, false, true))
	}
	a.emitByte(0x50 + reg3(r))
}

// PopReg pops a 64-bit register.
func (a *Assembler) PopReg(r regalloc.HostRegister) {
	if wide(r) {
		a.emitByte(rex(false, false, false, true))
	}
	a.emitByte(0x58 + reg3(r))
}

// MovRegImm64 loads a 64-bit immediate into a register.
func (a *Assembler) MovRegImm64(dst regalloc.HostRegister, imm uint64) {
	a.emitByte(rex(true, false, false, wide(dst)))
	a.emitByte(0xB8 + reg3(dst))
	a.emitU64(imm)
}

// MovRegImm32 loads a 32-bit immediate into the low 32 bits of dst,
// zero-extending the upper 32 bits of the host register.
func (a *Assembler) MovRegImm32(dst regalloc.HostRegister, imm uint32) {
	if wide(dst) {
		a.emitByte(rex(false, false, false, true))
	}
	a.emitByte(0xB8 + reg3(dst))
	a.emitU32(imm)
}

// MovRegMemDisp8 encodes `mov r32, [base+disp8]`.
func (a *Assembler) MovRegMemDisp8(dst, base regalloc.HostRegister, disp int8) {
	a.emitRex(false, dst, base)
	a.emitBytes(0x8B, modrm(0x01, byte(dst), byte(base)), byte(disp))
}

// MovMemDisp8Reg encodes `mov [base+disp8], r32`.
func (a *Assembler) MovMemDisp8Reg(base, src regalloc.HostRegister, disp int8) {
	a.emitRex(false, src, base)
	a.emitBytes(0x89, modrm(0x01, byte(src), byte(base)), byte(disp))
}

// MovMemDisp8Imm32 encodes `mov DWORD [base+disp8], imm32`.
func (a *Assembler) MovMemDisp8Imm32(base regalloc.HostRegister, disp int8, imm uint32) {
	a.emitRex(false, 0, base)
	a.emitBytes(0xC7, modrm(0x01, 0, byte(base)), byte(disp))
	a.emitU32(imm)
}

// AndMemDisp8Imm32 encodes `and DWORD [base+disp8], imm32`.
func (a *Assembler) AndMemDisp8Imm32(base regalloc.HostRegister, disp int8, imm uint32) {
	a.emitRex(false, 0, base)
	a.emitBytes(0x81, modrm(0x01, arithAnd.immDigit, byte(base)), byte(disp))
	a.emitU32(imm)
}

// OrMemDisp8Imm32 encodes `or DWORD [base+disp8], imm32`.
func (a *Assembler) OrMemDisp8Imm32(base regalloc.HostRegister, disp int8, imm uint32) {
	a.emitRex(false, 0, base)
	a.emitBytes(0x81, modrm(0x01, arithOr.immDigit, byte(base)), byte(disp))
	a.emitU32(imm)
}

// OrMemDisp8Reg encodes `or DWORD [base+disp8], r32`.
func (a *Assembler) OrMemDisp8Reg(base, src regalloc.HostRegister, disp int8) {
	a.emitRex(false, src, base)
	a.emitBytes(arithOr.regOpcode, modrm(0x01, byte(src), byte(base)), byte(disp))
}

// sibByte encodes scale=1 (no index scaling needed for byte-addressed
// fastmem) with the given index/base register triples.
func sibByte(index, base regalloc.HostRegister) byte {
	return 0<<6 | (reg3(index))<<3 | reg3(base)
}

// MovRegSIB encodes `mov r32, [base+index]` (scale 1, no displacement).
func (a *Assembler) MovRegSIB(dst, base, index regalloc.HostRegister) {
	if wide(dst) || wide(base) || wide(index) {
		a.emitByte(rex(false, wide(dst), wide(index), wide(base)))
	}
	a.emitBytes(0x8B, modrm(0x00, byte(dst), 0x04), sibByte(index, base))
}

// MovSIBReg encodes `mov [base+index], r32` (scale 1, no displacement).
func (a *Assembler) MovSIBReg(base, index, src regalloc.HostRegister) {
	if wide(src) || wide(base) || wide(index) {
		a.emitByte(rex(false, wide(src), wide(index), wide(base)))
	}
	a.emitBytes(0x89, modrm(0x00, byte(src), 0x04), sibByte(index, base))
}

// MovSIBImm32 encodes `mov DWORD [base+index], imm32` (scale 1, no
// displacement).
func (a *Assembler) MovSIBImm32(base, index regalloc.HostRegister, imm uint32) {
	if wide(base) || wide(index) {
		a.emitByte(rex(false, false, wide(index), wide(base)))
	}
	a.emitBytes(0xC7, modrm(0x00, 0, 0x04), sibByte(index, base))
	a.emitU32(imm)
}

// MovRegReg32 encodes `mov r32, r32` (dst <- src).
func (a *Assembler) MovRegReg32(dst, src regalloc.HostRegister) {
	a.emitRex(false, dst, src)
	a.emitBytes(0x8B, modrm(0x03, byte(dst), byte(src)))
}

// MovRegReg64 encodes `mov r64, r64` (dst <- src).
func (a *Assembler) MovRegReg64(dst, src regalloc.HostRegister) {
	a.emitByte(rex(true, wide(dst), false, wide(src)))
	a.emitBytes(0x8B, modrm(0x03, byte(dst), byte(src)))
}

// arithOp maps an arithmetic opcode family to its register-form and
// immediate-form (MI, /digit) encodings.
type arithOp struct {
	regOpcode byte // ADD/SUB/AND/OR r/m32, r32
	immDigit  byte // /digit for opcode 0x81 ib32 form
}

var (
	arithAdd = arithOp{regOpcode: 0x01, immDigit: 0}
	arithSub = arithOp{regOpcode: 0x29, immDigit: 5}
	arithAnd = arithOp{regOpcode: 0x21, immDigit: 4}
	arithOr  = arithOp{regOpcode: 0x09, immDigit: 1}
)

// regRegOp32 encodes `op r/m32, r32` (dst op= src).
func (a *Assembler) regRegOp32(op arithOp, dst, src regalloc.HostRegister) {
	a.emitRex(false, src, dst)
	a.emitBytes(op.regOpcode, modrm(0x03, byte(src), byte(dst)))
}

// regImmOp32 encodes `op r/m32, imm32` (dst op= imm).
func (a *Assembler) regImmOp32(op arithOp, dst regalloc.HostRegister, imm uint32) {
	a.emitRex(false, 0, dst)
	a.emitBytes(0x81, modrm(0x03, op.immDigit, byte(dst)))
	a.emitU32(imm)
}

func (a *Assembler) AddRegReg32(dst, src regalloc.HostRegister) { a.regRegOp32(arithAdd, dst, src) }
func (a *Assembler) SubRegReg32(dst, src regalloc.HostRegister) { a.regRegOp32(arithSub, dst, src) }
func (a *Assembler) AndRegReg32(dst, src regalloc.HostRegister) { a.regRegOp32(arithAnd, dst, src) }
func (a *Assembler) OrRegReg32(dst, src regalloc.HostRegister)  { a.regRegOp32(arithOr, dst, src) }

func (a *Assembler) AddRegImm32(dst regalloc.HostRegister, imm uint32) { a.regImmOp32(arithAdd, dst, imm) }
func (a *Assembler) SubRegImm32(dst regalloc.HostRegister, imm uint32) { a.regImmOp32(arithSub, dst, imm) }
func (a *Assembler) AndRegImm32(dst regalloc.HostRegister, imm uint32) { a.regImmOp32(arithAnd, dst, imm) }
func (a *Assembler) OrRegImm32(dst regalloc.HostRegister, imm uint32)  { a.regImmOp32(arithOr, dst, imm) }

// ShlRegImm8 encodes `shl r32, imm8`.
func (a *Assembler) ShlRegImm8(dst regalloc.HostRegister, count uint8) {
	a.emitRex(false, 0, dst)
	a.emitBytes(0xC1, modrm(0x03, 4, byte(dst)), count)
}

// ShrRegImm8 encodes `shr r32, imm8`.
func (a *Assembler) ShrRegImm8(dst regalloc.HostRegister, count uint8) {
	a.emitRex(false, 0, dst)
	a.emitBytes(0xC1, modrm(0x03, 5, byte(dst)), count)
}

// TestRegReg32 encodes `test r32, r32`.
func (a *Assembler) TestRegReg32(x, y regalloc.HostRegister) {
	a.emitRex(false, y, x)
	a.emitBytes(0x85, modrm(0x03, byte(y), byte(x)))
}

// CmpRegReg8 encodes `cmp r8, r8`, restricted to the REX-free byte
// registers (AL/CL/DL/BL) used by the condition evaluator below.
func (a *Assembler) CmpRegReg8(x, y regalloc.HostRegister) {
	a.emitBytes(0x38, modrm(0x03, byte(y), byte(x)))
}

// AndRegReg8 / OrRegReg8 combine two byte-sized boolean registers.
func (a *Assembler) AndRegReg8(dst, src regalloc.HostRegister) {
	a.emitBytes(0x20, modrm(0x03, byte(src), byte(dst)))
}
func (a *Assembler) OrRegReg8(dst, src regalloc.HostRegister) {
	a.emitBytes(0x08, modrm(0x03, byte(src), byte(dst)))
}

// cc is an x86 condition-code nibble, used by Setcc/Cmovcc encodings.
type cc byte

const (
	ccO  cc = 0x0
	ccC  cc = 0x2
	ccNC cc = 0x3
	ccZ  cc = 0x4
	ccNZ cc = 0x5
	ccE  cc = 0x4
	ccNE cc = 0x5
)

// SetccReg8 encodes `setCC r8`. Callers only ever pass a register from
// {rax,rcx,rdx,rbx,r8..r11}, never rsp/rbp/rsi/rdi, so a bare REX.B (with
// no other bits) is never needed to disambiguate a low byte register from
// one of the legacy AH/CH/DH/BH high-byte encodings.
func (a *Assembler) SetccReg8(c cc, dst regalloc.HostRegister) {
	if wide(dst) {
		a.emitByte(rex(false, false, false, true))
	}
	a.emitBytes(0x0F, 0x90+byte(c), modrm(0x03, 0, byte(dst)))
}

// MovzxReg32Reg8 encodes `movzx r32, r8`.
func (a *Assembler) MovzxReg32Reg8(dst, src regalloc.HostRegister) {
	a.emitRex(false, dst, src)
	a.emitBytes(0x0F, 0xB6, modrm(0x03, byte(dst), byte(src)))
}

// CmovccReg32 encodes `cmovCC r32, r32` (dst <- src if CC).
func (a *Assembler) CmovccReg32(c cc, dst, src regalloc.HostRegister) {
	a.emitRex(false, dst, src)
	a.emitBytes(0x0F, 0x40+byte(c), modrm(0x03, byte(dst), byte(src)))
}

// BtMemDisp8Imm8 encodes `bt DWORD [base+disp8], imm8`.
func (a *Assembler) BtMemDisp8Imm8(base regalloc.HostRegister, disp int8, bit uint8) {
	a.emitRex(false, 0, base)
	a.emitBytes(0x0F, 0xBA, modrm(0x01, 4, byte(base)), byte(disp), bit)
}

// CallReg encodes `call r64`.
func (a *Assembler) CallReg(r regalloc.HostRegister) {
	if wide(r) {
		a.emitByte(rex(false, false, false, true))
	}
	a.emitBytes(0xFF, modrm(0x03, 2, byte(r)))
}

// SubRspImm8 encodes `sub rsp, imm8`.
func (a *Assembler) SubRspImm8(imm int8) {
	a.emitByte(rex(true, false, false, false))
	a.emitBytes(0x83, modrm(0x03, 5, byte(regalloc.RSP)), byte(imm))
}

// AddRspImm8 encodes `add rsp, imm8`.
func (a *Assembler) AddRspImm8(imm int8) {
	a.emitByte(rex(true, false, false, false))
	a.emitBytes(0x83, modrm(0x03, 0, byte(regalloc.RSP)), byte(imm))
}

// Ret encodes `ret`.
func (a *Assembler) Ret() { a.emitByte(0xC3) }
