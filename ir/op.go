package ir

import "github.com/Urethramancer/armjit/guest"

// OpKind is the flat opcode of an Operation, covering the Bind, Memory and
// Arith families. Kept flat (rather than a nested family-of-enums, as the
// ported-from Rust source modeled it) so dispatch in package emit and in
// Instruction.UsedVars is a single typed switch.
type OpKind int

const (
	OpConst OpKind = iota
	OpReadGuestReg
	OpWriteGuestReg
	OpReadFlag
	OpWriteFlag

	OpLoad32
	OpStore32

	OpAdd32
	OpSub32
	OpAnd32
	OpOr32
	OpShl32
	OpShr32
	OpLsl32
	OpIsZero
	OpIsNegative
)

// Operation is the right-hand side of an Instruction. Only the fields
// relevant to Kind are populated; see the per-opcode doc below.
type Operation struct {
	Kind OpKind

	Reg  guest.RegIdx // ReadGuestReg, WriteGuestReg
	Flag FlagKind     // ReadFlag, WriteFlag
	C    Constant     // Const

	// X is the sole operand of Load32 (address), WriteGuestReg (value),
	// WriteFlag (value), IsZero, IsNegative, and the first operand of
	// every binary Arith op and of Store32 (address).
	X Var
	// Y is the second operand of binary Arith ops and of Store32 (value).
	Y Var
}

func opConst(c Constant) Operation                { return Operation{Kind: OpConst, C: c} }
func opReadGuestReg(reg guest.RegIdx) Operation    { return Operation{Kind: OpReadGuestReg, Reg: reg} }
func opWriteGuestReg(reg guest.RegIdx, v Var) Operation {
	return Operation{Kind: OpWriteGuestReg, Reg: reg, X: v}
}
func opReadFlag(f FlagKind) Operation      { return Operation{Kind: OpReadFlag, Flag: f} }
func opWriteFlag(f FlagKind, v Var) Operation { return Operation{Kind: OpWriteFlag, Flag: f, X: v} }

func opLoad32(addr Var) Operation         { return Operation{Kind: OpLoad32, X: addr} }
func opStore32(addr, val Var) Operation   { return Operation{Kind: OpStore32, X: addr, Y: val} }

func opAdd32(x, y Var) Operation { return Operation{Kind: OpAdd32, X: x, Y: y} }
func opSub32(x, y Var) Operation { return Operation{Kind: OpSub32, X: x, Y: y} }
func opAnd32(x, y Var) Operation { return Operation{Kind: OpAnd32, X: x, Y: y} }
func opOr32(x, y Var) Operation  { return Operation{Kind: OpOr32, X: x, Y: y} }
func opShl32(x, y Var) Operation { return Operation{Kind: OpShl32, X: x, Y: y} }
func opShr32(x, y Var) Operation { return Operation{Kind: OpShr32, X: x, Y: y} }
func opLsl32(x, y Var) Operation { return Operation{Kind: OpLsl32, X: x, Y: y} }
func opIsZero(x Var) Operation     { return Operation{Kind: OpIsZero, X: x} }
func opIsNegative(x Var) Operation { return Operation{Kind: OpIsNegative, X: x} }

// isBinaryArith reports whether op is one of the two-operand Arith ops,
// used by Instruction.UsedVars to decide whether to collect X and Y or
// just X.
func (op OpKind) isBinaryArith() bool {
	switch op {
	case OpAdd32, OpSub32, OpAnd32, OpOr32, OpShl32, OpShr32, OpLsl32:
		return true
	default:
		return false
	}
}
