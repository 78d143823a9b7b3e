package arm

import (
	"github.com/Urethramancer/armjit/block"
	"github.com/Urethramancer/armjit/ir"
)

// SubImm lifts SUB{S} Rd, Rn, #imm.
func SubImm(bb *block.BasicBlock, opcd uint32) {
	requireAL(opcd)
	imm, _ := rotByImm(bb, imm12(opcd))

	rnVal := readRegOrPC(bb, rn(opcd))
	res, c, v := bb.Sub32F(rnVal, imm)

	if rd(opcd) == 15 {
		panic("writing PC from a data-processing instruction is unimplemented")
	}
	if sFlag(opcd) {
		writeNZCV(bb, res, c, v)
	}
	bb.WriteReg(rd(opcd), res)
}

// AddImm lifts ADD{S} Rd, Rn, #imm — the additive counterpart of SubImm,
// reusing the same barrel-shifter and flag-write plumbing.
func AddImm(bb *block.BasicBlock, opcd uint32) {
	requireAL(opcd)
	imm, _ := rotByImm(bb, imm12(opcd))

	rnVal := readRegOrPC(bb, rn(opcd))
	res, c, v := bb.Add32F(rnVal, imm)

	if rd(opcd) == 15 {
		panic("writing PC from a data-processing instruction is unimplemented")
	}
	if sFlag(opcd) {
		writeNZCV(bb, res, c, v)
	}
	bb.WriteReg(rd(opcd), res)
}

// AddReg lifts ADD{S} Rd, Rn, Rm{, shift}.
func AddReg(bb *block.BasicBlock, opcd uint32) {
	requireAL(opcd)
	rnVal := readRegOrPC(bb, rn(opcd))
	rmVal := readRegOrPC(bb, rm(opcd))
	shifted, _ := shiftByImm(bb, rmVal, stype(opcd), imm5(opcd))
	res, c, v := bb.Add32F(rnVal, shifted)

	if rd(opcd) == 15 {
		panic("writing PC from a data-processing instruction is unimplemented")
	}
	if sFlag(opcd) {
		writeNZCV(bb, res, c, v)
	}
	bb.WriteReg(rd(opcd), res)
}

// MovImm lifts MOV{S} Rd, #imm.
func MovImm(bb *block.BasicBlock, opcd uint32) {
	requireAL(opcd)
	imm, cOut := rotByImm(bb, imm12(opcd))

	if rd(opcd) == 15 {
		panic("writing PC from a data-processing instruction is unimplemented")
	}
	bb.WriteReg(rd(opcd), imm)
	if sFlag(opcd) {
		n := bb.IsNegative(imm)
		z := bb.IsZero(imm)
		bb.WriteFlag(ir.FlagNegative, n)
		bb.WriteFlag(ir.FlagZero, z)
		bb.WriteFlag(ir.FlagCarry, cOut)
	}
}

// MovReg lifts MOV{S} Rd, Rm{, shift}.
func MovReg(bb *block.BasicBlock, opcd uint32) {
	requireAL(opcd)
	rmVal := readRegOrPC(bb, rm(opcd))
	res, c := shiftByImm(bb, rmVal, stype(opcd), imm5(opcd))

	if rd(opcd) == 15 {
		panic("writing PC from a data-processing instruction is unimplemented")
	}
	bb.WriteReg(rd(opcd), res)
	if sFlag(opcd) {
		n := bb.IsNegative(res)
		z := bb.IsZero(res)
		bb.WriteFlag(ir.FlagNegative, n)
		bb.WriteFlag(ir.FlagZero, z)
		bb.WriteFlag(ir.FlagCarry, c)
	}
}

// AndImm lifts AND{S} Rd, Rn, #imm, mirroring MovImm's plumbing through the
// bitwise-and IR op instead of a plain bind.
func AndImm(bb *block.BasicBlock, opcd uint32) {
	requireAL(opcd)
	imm, cOut := rotByImm(bb, imm12(opcd))
	rnVal := readRegOrPC(bb, rn(opcd))
	res := bb.And32(rnVal, imm)

	if rd(opcd) == 15 {
		panic("writing PC from a data-processing instruction is unimplemented")
	}
	bb.WriteReg(rd(opcd), res)
	if sFlag(opcd) {
		n := bb.IsNegative(res)
		z := bb.IsZero(res)
		bb.WriteFlag(ir.FlagNegative, n)
		bb.WriteFlag(ir.FlagZero, z)
		bb.WriteFlag(ir.FlagCarry, cOut)
	}
}

// AndReg lifts AND{S} Rd, Rn, Rm{, shift}.
func AndReg(bb *block.BasicBlock, opcd uint32) {
	requireAL(opcd)
	rnVal := readRegOrPC(bb, rn(opcd))
	rmVal := readRegOrPC(bb, rm(opcd))
	shifted, c := shiftByImm(bb, rmVal, stype(opcd), imm5(opcd))
	res := bb.And32(rnVal, shifted)

	if rd(opcd) == 15 {
		panic("writing PC from a data-processing instruction is unimplemented")
	}
	bb.WriteReg(rd(opcd), res)
	if sFlag(opcd) {
		n := bb.IsNegative(res)
		z := bb.IsZero(res)
		bb.WriteFlag(ir.FlagNegative, n)
		bb.WriteFlag(ir.FlagZero, z)
		bb.WriteFlag(ir.FlagCarry, c)
	}
}

// OrrImm lifts ORR{S} Rd, Rn, #imm.
func OrrImm(bb *block.BasicBlock, opcd uint32) {
	requireAL(opcd)
	imm, cOut := rotByImm(bb, imm12(opcd))
	rnVal := readRegOrPC(bb, rn(opcd))
	res := bb.Or32(rnVal, imm)

	if rd(opcd) == 15 {
		panic("writing PC from a data-processing instruction is unimplemented")
	}
	bb.WriteReg(rd(opcd), res)
	if sFlag(opcd) {
		n := bb.IsNegative(res)
		z := bb.IsZero(res)
		bb.WriteFlag(ir.FlagNegative, n)
		bb.WriteFlag(ir.FlagZero, z)
		bb.WriteFlag(ir.FlagCarry, cOut)
	}
}

// OrrReg lifts ORR{S} Rd, Rn, Rm{, shift}.
func OrrReg(bb *block.BasicBlock, opcd uint32) {
	requireAL(opcd)
	rnVal := readRegOrPC(bb, rn(opcd))
	rmVal := readRegOrPC(bb, rm(opcd))
	shifted, c := shiftByImm(bb, rmVal, stype(opcd), imm5(opcd))
	res := bb.Or32(rnVal, shifted)

	if rd(opcd) == 15 {
		panic("writing PC from a data-processing instruction is unimplemented")
	}
	bb.WriteReg(rd(opcd), res)
	if sFlag(opcd) {
		n := bb.IsNegative(res)
		z := bb.IsZero(res)
		bb.WriteFlag(ir.FlagNegative, n)
		bb.WriteFlag(ir.FlagZero, z)
		bb.WriteFlag(ir.FlagCarry, c)
	}
}

// CmpImm lifts CMP Rn, #imm: a SUB whose result is discarded but whose
// flags are always written, regardless of the S bit (CMP has no S bit of
// its own — bit 20 is forced to 1 by the encoding).
func CmpImm(bb *block.BasicBlock, opcd uint32) {
	requireAL(opcd)
	rnVal := bb.ReadReg(rn(opcd))
	imm, _ := rotByImm(bb, imm12(opcd))

	res, c, v := bb.Sub32F(rnVal, imm)
	writeNZCV(bb, res, c, v)
}

// CmpReg lifts CMP Rn, Rm{, shift} — mirrors CmpImm with a register/shift
// operand instead of a rotated immediate.
func CmpReg(bb *block.BasicBlock, opcd uint32) {
	requireAL(opcd)
	rnVal := bb.ReadReg(rn(opcd))
	rmVal := readRegOrPC(bb, rm(opcd))
	shifted, _ := shiftByImm(bb, rmVal, stype(opcd), imm5(opcd))

	res, c, v := bb.Sub32F(rnVal, shifted)
	writeNZCV(bb, res, c, v)
}

func writeNZCV(bb *block.BasicBlock, res, c, v ir.Var) {
	n := bb.IsNegative(res)
	z := bb.IsZero(res)
	bb.WriteFlag(ir.FlagNegative, n)
	bb.WriteFlag(ir.FlagZero, z)
	bb.WriteFlag(ir.FlagCarry, c)
	bb.WriteFlag(ir.FlagOverflow, v)
}

// readRegOrPC reads a general register, except R15 which reads as the
// "exec" PC value (fetch address + 8) per the ARM architecture's PC-as-
// operand rule.
func readRegOrPC(bb *block.BasicBlock, reg uint32) ir.Var {
	if reg == 15 {
		return bb.Constant(32, uint64(bb.ReadExecPC()))
	}
	return bb.ReadReg(reg)
}
