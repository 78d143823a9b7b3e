package block

import (
	"github.com/Urethramancer/armjit/guest"
	"github.com/Urethramancer/armjit/ir"
)

// Constant materializes an immediate value, deduplicating repeated
// materializations of the same (width, value) pair within this block.
func (bb *BasicBlock) Constant(width int, value uint64) ir.Var {
	c := ir.NewConstant(width, value)
	if v, ok := bb.lb.getConstant(c); ok {
		return v
	}
	v := bb.lb.allocaConstant(c)
	bb.push(ir.NewConstInst(bb.curOp, v, c))
	return v
}

// ReadReg lifts a read of guest register reg.
func (bb *BasicBlock) ReadReg(reg guest.RegIdx) ir.Var {
	v := bb.lb.allocaGuestReg(reg)
	bb.push(ir.NewReadRegInst(bb.curOp, v, reg))
	return v
}

// WriteReg lifts a write of val into guest register reg.
func (bb *BasicBlock) WriteReg(reg guest.RegIdx, val ir.Var) {
	bb.push(ir.NewWriteRegInst(bb.curOp, reg, val))
}

// ReadFlag lifts a read of one CPSR condition flag.
func (bb *BasicBlock) ReadFlag(kind ir.FlagKind) ir.Var {
	v := bb.lb.allocaLocal(1)
	bb.push(ir.NewReadFlagInst(bb.curOp, v, kind))
	return v
}

// WriteFlag lifts a write of val into one CPSR condition flag.
func (bb *BasicBlock) WriteFlag(kind ir.FlagKind, val ir.Var) {
	bb.push(ir.NewWriteFlagInst(bb.curOp, kind, val))
}

// Load32 lifts a 32-bit guest memory read at addr.
func (bb *BasicBlock) Load32(addr ir.Var) ir.Var {
	v := bb.lb.allocaLocal(32)
	bb.push(ir.NewLoad32Inst(bb.curOp, v, addr))
	return v
}

// Store32 lifts a 32-bit guest memory write of val at addr.
func (bb *BasicBlock) Store32(addr, val ir.Var) {
	bb.push(ir.NewStore32Inst(bb.curOp, addr, val))
}

// Add32 lifts x + y with no flag outputs.
func (bb *BasicBlock) Add32(x, y ir.Var) ir.Var {
	res := bb.lb.allocaLocal(32)
	bb.push(ir.NewAdd32Inst(bb.curOp, res, x, y))
	return res
}

// Add32F lifts x + y, producing the result plus carry and overflow.
func (bb *BasicBlock) Add32F(x, y ir.Var) (res, c, v ir.Var) {
	res = bb.lb.allocaLocal(32)
	c = bb.lb.allocaLocal(1)
	v = bb.lb.allocaLocal(1)
	bb.push(ir.NewAdd32FInst(bb.curOp, res, c, v, x, y))
	return res, c, v
}

// Sub32 lifts x - y with no flag outputs.
func (bb *BasicBlock) Sub32(x, y ir.Var) ir.Var {
	res := bb.lb.allocaLocal(32)
	bb.push(ir.NewSub32Inst(bb.curOp, res, x, y))
	return res
}

// Sub32F lifts x - y, producing the result plus carry and overflow.
func (bb *BasicBlock) Sub32F(x, y ir.Var) (res, c, v ir.Var) {
	res = bb.lb.allocaLocal(32)
	c = bb.lb.allocaLocal(1)
	v = bb.lb.allocaLocal(1)
	bb.push(ir.NewSub32FInst(bb.curOp, res, c, v, x, y))
	return res, c, v
}

// And32 lifts x & y.
func (bb *BasicBlock) And32(x, y ir.Var) ir.Var {
	res := bb.lb.allocaLocal(32)
	bb.push(ir.NewAnd32Inst(bb.curOp, res, x, y))
	return res
}

// Or32 lifts x | y.
func (bb *BasicBlock) Or32(x, y ir.Var) ir.Var {
	res := bb.lb.allocaLocal(32)
	bb.push(ir.NewOr32Inst(bb.curOp, res, x, y))
	return res
}

// Lsl32F lifts x << y, producing the result plus the shifted-out carry.
// Overflow ("v") is computed but unused by any LSL-driving instruction;
// it exists only to share the flag-producing Instruction shape with
// Sub32F/Add32F.
func (bb *BasicBlock) Lsl32F(x, y ir.Var) (res, c, v ir.Var) {
	res = bb.lb.allocaLocal(32)
	c = bb.lb.allocaLocal(1)
	v = bb.lb.allocaLocal(1)
	bb.push(ir.NewLsl32FInst(bb.curOp, res, c, v, x, y))
	return res, c, v
}

// IsZero lifts a 1-bit result: x == 0.
func (bb *BasicBlock) IsZero(x ir.Var) ir.Var {
	res := bb.lb.allocaLocal(1)
	bb.push(ir.NewIsZeroInst(bb.curOp, res, x))
	return res
}

// IsNegative lifts a 1-bit result: x's sign bit.
func (bb *BasicBlock) IsNegative(x ir.Var) ir.Var {
	res := bb.lb.allocaLocal(1)
	bb.push(ir.NewIsNegativeInst(bb.curOp, res, x))
	return res
}
