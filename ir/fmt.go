package ir

import "fmt"

// String renders a Var the way a disassembly dump would: constants as
// immediates, everything else (locals and guest-register aliases) as an
// SSA name.
func (v Var) String() string {
	if v.Kind == VarConstant {
		return fmt.Sprintf("#0x%x", v.Value)
	}
	return fmt.Sprintf("%%%d", v.ID)
}

func (c Constant) String() string {
	return fmt.Sprintf("#0x%x", c.Value)
}

func (op Operation) String() string {
	switch op.Kind {
	case OpConst:
		return op.C.String()
	case OpReadGuestReg:
		return fmt.Sprintf("r%d", op.Reg)
	case OpWriteGuestReg:
		return fmt.Sprintf("r%d = %s", op.Reg, op.X)
	case OpReadFlag:
		return fmt.Sprintf("ReadFlag(%s)", op.Flag)
	case OpWriteFlag:
		return fmt.Sprintf("WriteFlag(%s, %s)", op.Flag, op.X)
	case OpLoad32:
		return fmt.Sprintf("[%s]", op.X)
	case OpStore32:
		return fmt.Sprintf("Store32(%s, %s)", op.X, op.Y)
	case OpAdd32:
		return fmt.Sprintf("%s + %s", op.X, op.Y)
	case OpSub32:
		return fmt.Sprintf("%s - %s", op.X, op.Y)
	case OpAnd32:
		return fmt.Sprintf("%s & %s", op.X, op.Y)
	case OpOr32:
		return fmt.Sprintf("%s | %s", op.X, op.Y)
	case OpShl32, OpLsl32:
		return fmt.Sprintf("%s << %s", op.X, op.Y)
	case OpShr32:
		return fmt.Sprintf("%s >> %s", op.X, op.Y)
	case OpIsZero:
		return fmt.Sprintf("IsZero(%s)", op.X)
	case OpIsNegative:
		return fmt.Sprintf("IsNegative(%s)", op.X)
	default:
		return "Operation(?)"
	}
}

// String renders an instruction as "lh, lh_c, lh_v := rh", omitting
// whichever of lh/lh_c/lh_v are absent, in the teacher-ported
// disassembly-dump style.
func (i Instruction) String() string {
	if i.Lh == nil {
		return i.Rh.String()
	}
	switch {
	case i.LhC == nil && i.LhV == nil:
		return fmt.Sprintf("%%%d := %s", i.Lh.ID, i.Rh)
	case i.LhC != nil && i.LhV == nil:
		return fmt.Sprintf("%%%d, c%s, _ := %s", i.Lh.ID, i.LhC, i.Rh)
	case i.LhC == nil && i.LhV != nil:
		return fmt.Sprintf("%%%d, _, v%s := %s", i.Lh.ID, i.LhV, i.Rh)
	default:
		return fmt.Sprintf("%%%d, c%s, v%s := %s", i.Lh.ID, i.LhC, i.LhV, i.Rh)
	}
}
