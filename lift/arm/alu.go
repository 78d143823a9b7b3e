package arm

import (
	"math/bits"

	"github.com/Urethramancer/armjit/block"
	"github.com/Urethramancer/armjit/ir"
)

// ShiftType is the barrel shifter's operating mode, as encoded in a
// register-shift operand's stype field. Only Lsl is implemented; the
// others are classified but unimplemented (see shiftByImm).
type ShiftType uint32

const (
	ShiftLsl ShiftType = 0b00
	ShiftLsr ShiftType = 0b01
	ShiftAsr ShiftType = 0b10
	ShiftRor ShiftType = 0b11
)

// rotByImm evaluates the ARM "immediate" operand: an 8-bit value rotated
// right by twice a 4-bit rotate amount. Returns the materialized value and
// its output carry, deduplicated through bb.Constant the same way every
// other immediate is.
func rotByImm(bb *block.BasicBlock, imm12 uint32) (val, cOut ir.Var) {
	rot, imm8 := (imm12&0xf00)>>8, imm12&0xff
	v := bits.RotateLeft32(imm8, -int(rot*2))
	res := bb.Constant(32, uint64(v))
	if rot == 0 {
		return res, bb.ReadFlag(ir.FlagCarry)
	}
	carry := (v & 0x8000_0000) != 0
	return res, bb.Constant(1, boolToU64(carry))
}

// shiftByImm evaluates a register operand shifted by an immediate amount.
// Only LSL is implemented; every other shift type is decoded correctly
// upstream but has no lowering here yet.
func shiftByImm(bb *block.BasicBlock, rmVar ir.Var, stype uint32, simm uint32) (val, cOut ir.Var) {
	switch ShiftType(stype) {
	case ShiftLsl:
		return doLsl(bb, rmVar, simm)
	default:
		panic("only LSL register-shift-by-immediate is implemented")
	}
}

// doLsl lowers a logical-shift-left by an immediate, with ARM's special
// case that a zero shift amount passes the value through unchanged and
// leaves the carry flag untouched.
func doLsl(bb *block.BasicBlock, rmVar ir.Var, simm uint32) (val, cOut ir.Var) {
	if simm == 0 {
		return rmVar, bb.ReadFlag(ir.FlagCarry)
	}
	simmVal := bb.Constant(32, uint64(simm))
	res, c, _ := bb.Lsl32F(rmVar, simmVal)
	return res, c
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
