package arm

import (
	"math/bits"

	"github.com/Urethramancer/armjit/block"
	"github.com/Urethramancer/armjit/ir"
)

// amodeLit computes a literal (PC-relative) addressing-mode target: only
// pre-indexed forms make sense against a constant base, since there is no
// register to write a post-indexed offset back into.
func amodeLit(pc, imm uint32, p, u bool) uint32 {
	switch {
	case p && u:
		return pc + imm
	case p && !u:
		return pc - imm
	default:
		return pc
	}
}

// amode computes the addressing-mode address and write-back value for a
// register-based load/store, given the base register rn and offset imm.
// Returns (address-used-for-the-access, value-to-write-back-into-rn).
func amode(bb *block.BasicBlock, rnVar, immVar ir.Var, u, p, w bool) (addr, wbAddr ir.Var) {
	var res ir.Var
	if u {
		res = bb.Add32(rnVar, immVar)
	} else {
		res = bb.Sub32(rnVar, immVar)
	}
	switch {
	case !p && !w:
		return rnVar, res
	case p && !w:
		return res, rnVar
	case p && w:
		return res, res
	default:
		panic("unsupported addressing mode: post-indexed with writeback")
	}
}

// LdrImm lifts LDR Rt, [Rn, #imm]{!} and its PC-relative literal form.
func LdrImm(bb *block.BasicBlock, opcd uint32) {
	requireAL(opcd)
	var res ir.Var
	if rn(opcd) == 15 {
		addrVal := amodeLit(bb.ReadExecPC(), imm12(opcd), pFlag(opcd), uFlag(opcd))
		addr := bb.Constant(32, uint64(addrVal))
		res = bb.Load32(addr)
	} else {
		rnVal := bb.ReadReg(rn(opcd))
		imm := bb.Constant(32, uint64(imm12(opcd)))
		addr, wbAddr := amode(bb, rnVal, imm, uFlag(opcd), pFlag(opcd), wFlag(opcd))
		bb.WriteReg(rn(opcd), wbAddr)
		res = bb.Load32(addr)
	}

	if rt(opcd) == 15 {
		panic("loading directly into PC is unimplemented")
	}
	bb.WriteReg(rt(opcd), res)
}

// StrImm lifts STR Rt, [Rn, #imm]{!}.
func StrImm(bb *block.BasicBlock, opcd uint32) {
	requireAL(opcd)
	rtVal := bb.ReadReg(rt(opcd))
	rnVal := bb.ReadReg(rn(opcd))
	imm := bb.Constant(32, uint64(imm12(opcd)))

	addr, wbAddr := amode(bb, rnVal, imm, uFlag(opcd), pFlag(opcd), wFlag(opcd))
	bb.WriteReg(rn(opcd), wbAddr)
	bb.Store32(addr, rtVal)
}

// Stmdb lifts STMDB Rn{!}, {reglist} (also known as "push", when Rn is SP).
func Stmdb(bb *block.BasicBlock, opcd uint32) {
	requireAL(opcd)
	if rn(opcd) == 15 {
		panic("STMDB with Rn == PC is not a valid encoding")
	}

	list := registerList(opcd)
	numRegs := bits.OnesCount32(list)
	addrOff := bb.Constant(32, uint64(numRegs*4))
	rnVal := bb.ReadReg(rn(opcd))
	baseAddr := bb.Sub32(rnVal, addrOff)

	stmCommon(bb, list, rn(opcd), baseAddr, baseAddr, wFlag(opcd))
}

// stmCommon stores each register named in list, in ascending register-
// number order, starting at baseAddr and incrementing by 4 per register;
// R15 in the list stores the exec-PC value instead of reading a register.
func stmCommon(bb *block.BasicBlock, list, rnIdx uint32, baseAddr, wbAddr ir.Var, w bool) {
	addr := baseAddr
	incVal := bb.Constant(32, 4)
	for regIdx := uint32(0); regIdx <= 14; regIdx++ {
		if list&(1<<regIdx) != 0 {
			regVal := bb.ReadReg(regIdx)
			bb.Store32(addr, regVal)
			addr = bb.Add32(addr, incVal)
		}
	}

	if w {
		bb.WriteReg(rnIdx, wbAddr)
	}

	if list&(1<<15) != 0 {
		pcVal := bb.Constant(32, uint64(bb.ReadExecPC()))
		bb.Store32(addr, pcVal)
	}
}
