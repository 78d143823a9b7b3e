package ir

import "github.com/Urethramancer/armjit/guest"

// Instruction binds the result of an Operation to a destination variable
// (Lh, "left-hand side") and, optionally, to the carry/overflow flag
// variables an arithmetic op also produces (LhC, LhV). GuestOp records the
// raw guest opcode this instruction was lifted from, for diagnostics.
type Instruction struct {
	GuestOp uint32
	Lh      *Var
	LhC     *Var
	LhV     *Var
	Rh      Operation
}

// UsedVars returns every Var this instruction reads, for liveness analysis
// in package opt. The destination (Lh/LhC/LhV) is a def, never a use.
func (i *Instruction) UsedVars() []Var {
	var vars []Var
	switch i.Rh.Kind {
	case OpWriteGuestReg, OpWriteFlag:
		vars = append(vars, i.Rh.X)
	case OpLoad32:
		vars = append(vars, i.Rh.X)
	case OpStore32:
		vars = append(vars, i.Rh.X, i.Rh.Y)
	case OpIsZero, OpIsNegative:
		vars = append(vars, i.Rh.X)
	default:
		if i.Rh.Kind.isBinaryArith() {
			vars = append(vars, i.Rh.X, i.Rh.Y)
		}
	}
	return vars
}

func constInst(opcd uint32, v Var, c Constant) Instruction {
	return Instruction{GuestOp: opcd, Lh: &v, Rh: opConst(c)}
}

// NewConstInst lifts an immediate as Lh := Const(c).
func NewConstInst(opcd uint32, v Var, c Constant) Instruction { return constInst(opcd, v, c) }

// NewReadRegInst lifts Lh := guest register reg.
func NewReadRegInst(opcd uint32, v Var, reg guest.RegIdx) Instruction {
	return Instruction{GuestOp: opcd, Lh: &v, Rh: opReadGuestReg(reg)}
}

// NewWriteRegInst lifts guest register reg := val.
func NewWriteRegInst(opcd uint32, reg guest.RegIdx, val Var) Instruction {
	return Instruction{GuestOp: opcd, Rh: opWriteGuestReg(reg, val)}
}

// NewReadFlagInst lifts Lh := flag kind.
func NewReadFlagInst(opcd uint32, v Var, kind FlagKind) Instruction {
	return Instruction{GuestOp: opcd, Lh: &v, Rh: opReadFlag(kind)}
}

// NewWriteFlagInst lifts flag kind := val.
func NewWriteFlagInst(opcd uint32, kind FlagKind, val Var) Instruction {
	return Instruction{GuestOp: opcd, Rh: opWriteFlag(kind, val)}
}

// NewLoad32Inst lifts Lh := [addr].
func NewLoad32Inst(opcd uint32, v Var, addr Var) Instruction {
	return Instruction{GuestOp: opcd, Lh: &v, Rh: opLoad32(addr)}
}

// NewStore32Inst lifts [addr] := val.
func NewStore32Inst(opcd uint32, addr, val Var) Instruction {
	return Instruction{GuestOp: opcd, Rh: opStore32(addr, val)}
}

// NewAdd32Inst lifts dst := x + y, with no flag outputs.
func NewAdd32Inst(opcd uint32, dst, x, y Var) Instruction {
	return Instruction{GuestOp: opcd, Lh: &dst, Rh: opAdd32(x, y)}
}

// NewAdd32FInst lifts dst, c, v := x + y with carry/overflow bound to c/v.
func NewAdd32FInst(opcd uint32, dst, c, v, x, y Var) Instruction {
	return Instruction{GuestOp: opcd, Lh: &dst, LhC: &c, LhV: &v, Rh: opAdd32(x, y)}
}

// NewSub32Inst lifts dst := x - y, with no flag outputs.
func NewSub32Inst(opcd uint32, dst, x, y Var) Instruction {
	return Instruction{GuestOp: opcd, Lh: &dst, Rh: opSub32(x, y)}
}

// NewSub32FInst lifts dst, c, v := x - y with carry/overflow bound to c/v.
func NewSub32FInst(opcd uint32, dst, c, v, x, y Var) Instruction {
	return Instruction{GuestOp: opcd, Lh: &dst, LhC: &c, LhV: &v, Rh: opSub32(x, y)}
}

// NewAnd32Inst lifts dst := x & y.
func NewAnd32Inst(opcd uint32, dst, x, y Var) Instruction {
	return Instruction{GuestOp: opcd, Lh: &dst, Rh: opAnd32(x, y)}
}

// NewOr32Inst lifts dst := x | y.
func NewOr32Inst(opcd uint32, dst, x, y Var) Instruction {
	return Instruction{GuestOp: opcd, Lh: &dst, Rh: opOr32(x, y)}
}

// NewLsl32Inst lifts dst := x << y, with no flag outputs.
func NewLsl32Inst(opcd uint32, dst, x, y Var) Instruction {
	return Instruction{GuestOp: opcd, Lh: &dst, Rh: opLsl32(x, y)}
}

// NewLsl32FInst lifts dst, c, v := x << y with carry/overflow bound to c/v.
func NewLsl32FInst(opcd uint32, dst, c, v, x, y Var) Instruction {
	return Instruction{GuestOp: opcd, Lh: &dst, LhC: &c, LhV: &v, Rh: opLsl32(x, y)}
}

// NewIsZeroInst lifts dst := (x == 0).
func NewIsZeroInst(opcd uint32, dst, x Var) Instruction {
	return Instruction{GuestOp: opcd, Lh: &dst, Rh: opIsZero(x)}
}

// NewIsNegativeInst lifts dst := (x highest bit set).
func NewIsNegativeInst(opcd uint32, dst, x Var) Instruction {
	return Instruction{GuestOp: opcd, Lh: &dst, Rh: opIsNegative(x)}
}
