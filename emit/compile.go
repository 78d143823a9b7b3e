package emit

import (
	"fmt"

	"github.com/Urethramancer/armjit/block"
	"github.com/Urethramancer/armjit/guest"
	"github.com/Urethramancer/armjit/ir"
	"github.com/Urethramancer/armjit/mem"
	"github.com/Urethramancer/armjit/regalloc"
)

// ctxReg, ctxFastmem and ctxCpsr are the host registers the dispatcher
// trampoline (package runtime) pins to the guest register file, the
// fastmem base, and the CPSR word before calling into generated code.
const (
	ctxReg     = regalloc.R15
	ctxFastmem = regalloc.R14
	ctxCpsr    = regalloc.R13
)

// flagScratch is a host register never handed out by regalloc's pool,
// used as a throwaway copy when compileWriteFlag needs to shift a
// register operand without mutating the allocator's own binding for it.
const flagScratch = regalloc.R12

// flagBit is the CPSR bit index for each condition flag.
func flagBit(k ir.FlagKind) uint8 {
	switch k {
	case ir.FlagOverflow:
		return 28
	case ir.FlagCarry:
		return 29
	case ir.FlagZero:
		return 30
	case ir.FlagNegative:
		return 31
	default:
		panic(fmt.Sprintf("unknown flag kind %v", k))
	}
}

// Compile allocates registers for bb and recompiles it to native code,
// the Go equivalent of BasicBlock::recompile: register allocation and
// instruction selection happen together, since the allocator's storage
// map is what instruction selection switches on.
func Compile(bb *block.BasicBlock) {
	intervals := regalloc.BuildIntervalMap(bb.Data, bb.TerminatorVars())
	storage := regalloc.AllocateRegisters(&intervals)

	a := NewAssembler()
	for i := range bb.Data {
		compileInst(a, &storage, &bb.Data[i])
	}
	compileTerminator(a, &storage, bb.Link)
	bb.Code = mem.NewExecutablePage(a.Bytes())
}

func loc(storage *regalloc.StorageMap, v ir.Var) regalloc.StorageLoc {
	l, ok := storage.Get(v)
	if !ok {
		panic(fmt.Sprintf("no storage location for %v", v))
	}
	return l
}

func compileInst(a *Assembler, storage *regalloc.StorageMap, inst *ir.Instruction) {
	switch inst.Rh.Kind {
	case ir.OpConst:
		// Constants never consume a register or emit code; their value is
		// substituted directly wherever they're used as an operand.

	case ir.OpReadGuestReg:
		dst := loc(storage, *inst.Lh)
		if dst.Kind != regalloc.StorageGpr {
			panic("read_reg result must be a register")
		}
		off := int8(inst.Rh.Reg * 4)
		a.MovRegMemDisp8(dst.Reg, ctxReg, off)

	case ir.OpWriteGuestReg:
		off := int8(inst.Rh.Reg * 4)
		val := loc(storage, inst.Rh.X)
		switch val.Kind {
		case regalloc.StorageGpr:
			a.MovMemDisp8Reg(ctxReg, val.Reg, off)
		case regalloc.StorageConst:
			a.MovMemDisp8Imm32(ctxReg, off, uint32(val.Const))
		}

	case ir.OpReadFlag:
		dst := loc(storage, *inst.Lh)
		if dst.Kind != regalloc.StorageGpr {
			panic("read_flag result must be a register")
		}
		a.BtMemDisp8Imm8(ctxCpsr, 0, flagBit(inst.Rh.Flag))
		a.SetccReg8(ccC, dst.Reg)
		a.MovzxReg32Reg8(dst.Reg, dst.Reg)

	case ir.OpWriteFlag:
		compileWriteFlag(a, storage, inst.Rh.Flag, inst.Rh.X)

	case ir.OpLoad32:
		dst := loc(storage, *inst.Lh)
		addr := loc(storage, inst.Rh.X)
		if dst.Kind != regalloc.StorageGpr || addr.Kind != regalloc.StorageGpr {
			panic(fmt.Sprintf("load32 unimplemented operand combination: dst=%v addr=%v", dst, addr))
		}
		a.MovRegSIB(dst.Reg, ctxFastmem, addr.Reg)

	case ir.OpStore32:
		addr := loc(storage, inst.Rh.X)
		val := loc(storage, inst.Rh.Y)
		if addr.Kind != regalloc.StorageGpr {
			panic(fmt.Sprintf("store32 unimplemented operand combination: addr=%v val=%v", addr, val))
		}
		switch val.Kind {
		case regalloc.StorageGpr:
			a.MovSIBReg(ctxFastmem, addr.Reg, val.Reg)
		case regalloc.StorageConst:
			a.MovSIBImm32(ctxFastmem, addr.Reg, uint32(val.Const))
		}

	case ir.OpAdd32:
		compileArith(a, storage, inst, arithAdd)
	case ir.OpSub32:
		compileArith(a, storage, inst, arithSub)
	case ir.OpAnd32:
		compileArith(a, storage, inst, arithAnd)
	case ir.OpOr32:
		compileArith(a, storage, inst, arithOr)

	case ir.OpLsl32:
		compileLsl(a, storage, inst)

	case ir.OpIsZero:
		compileIsZero(a, storage, inst)
	case ir.OpIsNegative:
		compileIsNegative(a, storage, inst)

	default:
		panic(fmt.Sprintf("emitter doesn't implement op kind %v", inst.Rh.Kind))
	}
}

// compileWriteFlag writes a single bit of val (0 or 1) into the CPSR word
// at the given bit position, preserving every other bit. The CPSR word is
// updated in place with memory-operand AND/OR so the only register this
// ever touches is the one-off scratch copy needed to shift a register
// operand left without mutating val's own assigned register, which the
// allocator may still consider live after this instruction.
func compileWriteFlag(a *Assembler, storage *regalloc.StorageMap, kind ir.FlagKind, val ir.Var) {
	bit := flagBit(kind)
	v := loc(storage, val)

	a.AndMemDisp8Imm32(ctxCpsr, 0, ^(uint32(1) << bit))
	switch v.Kind {
	case regalloc.StorageGpr:
		a.MovRegReg32(flagScratch, v.Reg)
		if bit > 0 {
			a.ShlRegImm8(flagScratch, bit)
		}
		a.OrMemDisp8Reg(ctxCpsr, flagScratch, 0)
	case regalloc.StorageConst:
		if v.Const != 0 {
			a.OrMemDisp8Imm32(ctxCpsr, 0, uint32(1)<<bit)
		}
	}
}

// compileArith lowers the two-operand arithmetic ops (Add32/Sub32/And32/
// Or32), reusing dst as the first source when they already coincide and
// copying otherwise — the same (Gpr, Gpr, Const) and (Gpr, Gpr, Gpr)
// shapes the register allocator is expected to produce.
func compileArith(a *Assembler, storage *regalloc.StorageMap, inst *ir.Instruction, op arithOp) {
	dst := loc(storage, *inst.Lh)
	x := loc(storage, inst.Rh.X)
	y := loc(storage, inst.Rh.Y)
	if dst.Kind != regalloc.StorageGpr || x.Kind != regalloc.StorageGpr {
		panic(fmt.Sprintf("arith unimplemented operand combination: dst=%v x=%v y=%v", dst, x, y))
	}
	if dst.Reg != x.Reg {
		a.MovRegReg64(dst.Reg, x.Reg)
	}
	switch y.Kind {
	case regalloc.StorageGpr:
		a.regRegOp32(op, dst.Reg, y.Reg)
	case regalloc.StorageConst:
		a.regImmOp32(op, dst.Reg, uint32(y.Const))
	}

	compileArithFlags(a, storage, inst, op)
}

// compileArithFlags materializes the carry/overflow flag outputs an
// Add32F/Sub32F instruction may carry, immediately after the arithmetic
// instruction above so the host condition flags it set are still current.
// ARM's carry-out for subtraction is the logical NOT of x86's borrow flag
// (ARM carry means "no borrow occurred"), so Sub32 inverts CF; every other
// case reads the host flag directly.
func compileArithFlags(a *Assembler, storage *regalloc.StorageMap, inst *ir.Instruction, op arithOp) {
	if inst.LhC != nil {
		if op.regOpcode == arithSub.regOpcode {
			setFlagVar(a, storage, *inst.LhC, ccNC)
		} else {
			setFlagVar(a, storage, *inst.LhC, ccC)
		}
	}
	if inst.LhV != nil {
		setFlagVar(a, storage, *inst.LhV, ccO)
	}
}

// setFlagVar writes the boolean result of condition c directly into v's
// own allocated register and zero-extends it there. v is never
// StorageConst: a flag-output var that survived dead-code pruning to
// reach the emitter was assigned a register by AllocateRegisters like any
// other live VarLocal. Setcc/movzx don't touch the flags register
// themselves, so this never disturbs a still-current host condition code
// another setFlagVar call right after it needs to read, and writing into
// v's own register rather than a fixed scratch register never risks
// clobbering the instruction's own arithmetic result, which is bound to a
// different register for as long as both are live.
func setFlagVar(a *Assembler, storage *regalloc.StorageMap, v ir.Var, c cc) {
	l := loc(storage, v)
	if l.Kind != regalloc.StorageGpr {
		panic("flag-output variable must be a register")
	}
	a.SetccReg8(c, l.Reg)
	a.MovzxReg32Reg8(l.Reg, l.Reg)
}

// compileLsl lowers Lsl32F (register shifted left by a compile-time-
// constant amount, the only shift-count shape the lifter ever produces —
// see lift/arm/alu.go's doLsl). SHL's own CF-after-shift is exactly ARM's
// barrel-shifter carry-out for a nonzero LSL amount, so no correction is
// needed the way there is for Sub32's borrow flag.
func compileLsl(a *Assembler, storage *regalloc.StorageMap, inst *ir.Instruction) {
	dst := loc(storage, *inst.Lh)
	x := loc(storage, inst.Rh.X)
	y := loc(storage, inst.Rh.Y)
	if dst.Kind != regalloc.StorageGpr || x.Kind != regalloc.StorageGpr || y.Kind != regalloc.StorageConst {
		panic(fmt.Sprintf("lsl32 unimplemented operand combination: dst=%v x=%v y=%v", dst, x, y))
	}
	if dst.Reg != x.Reg {
		a.MovRegReg64(dst.Reg, x.Reg)
	}
	a.ShlRegImm8(dst.Reg, uint8(y.Const))

	if inst.LhC != nil {
		setFlagVar(a, storage, *inst.LhC, ccC)
	}
}

func compileIsZero(a *Assembler, storage *regalloc.StorageMap, inst *ir.Instruction) {
	dst := loc(storage, *inst.Lh)
	x := loc(storage, inst.Rh.X)
	if dst.Kind != regalloc.StorageGpr {
		panic("is_zero result must be a register")
	}
	switch x.Kind {
	case regalloc.StorageGpr:
		a.TestRegReg32(x.Reg, x.Reg)
		a.SetccReg8(ccZ, dst.Reg)
		a.MovzxReg32Reg8(dst.Reg, dst.Reg)
	case regalloc.StorageConst:
		v := uint32(0)
		if x.Const == 0 {
			v = 1
		}
		a.MovRegImm32(dst.Reg, v)
	}
}

func compileIsNegative(a *Assembler, storage *regalloc.StorageMap, inst *ir.Instruction) {
	dst := loc(storage, *inst.Lh)
	x := loc(storage, inst.Rh.X)
	if dst.Kind != regalloc.StorageGpr {
		panic("is_negative result must be a register")
	}
	switch x.Kind {
	case regalloc.StorageGpr:
		if dst.Reg != x.Reg {
			a.MovRegReg64(dst.Reg, x.Reg)
		}
		a.ShrRegImm8(dst.Reg, 31)
	case regalloc.StorageConst:
		v := uint32(0)
		if x.Const&0x8000_0000 != 0 {
			v = 1
		}
		a.MovRegImm32(dst.Reg, v)
	}
}

// compileTerminator lowers a block's terminator: writing the next fetch
// PC (and, for BranchAndLink, the link register) into the guest register
// file before returning control to the dispatcher trampoline.
func compileTerminator(a *Assembler, storage *regalloc.StorageMap, link *block.BlockLink) {
	if link == nil {
		panic("block has no terminator")
	}
	switch link.Kind {
	case block.LinkBranch:
		writeGuestWord(a, storage, guest.PcOffset, link.Target)
		a.MovRegImm32(regalloc.RAX, 0)
		a.Ret()

	case block.LinkBranchAndLink:
		writeGuestWord(a, storage, guest.LrOffset, link.Link)
		writeGuestWord(a, storage, guest.PcOffset, link.Target)
		a.MovRegImm32(regalloc.RAX, 0)
		a.Ret()

	case block.LinkBranchCond:
		compileBranchCond(a, storage, link)

	default:
		panic(fmt.Sprintf("emitter terminal kind %v unimplemented", link.Kind))
	}
}

func writeGuestWord(a *Assembler, storage *regalloc.StorageMap, off int, v ir.Var) {
	l := loc(storage, v)
	switch l.Kind {
	case regalloc.StorageConst:
		a.MovMemDisp8Imm32(ctxReg, int8(off), uint32(l.Const))
	case regalloc.StorageGpr:
		a.MovMemDisp8Reg(ctxReg, l.Reg, int8(off))
	}
}

// compileBranchCond evaluates link.Cond against the live CPSR and writes
// whichever of Target/NotTaken applies. This terminates the block, so
// every host register is free to clobber here regardless of what the
// allocator had it bound to earlier in the block.
func compileBranchCond(a *Assembler, storage *regalloc.StorageMap, link *block.BlockLink) {
	target := loc(storage, link.Target)
	notTaken := loc(storage, link.NotTaken)
	if target.Kind != regalloc.StorageConst || notTaken.Kind != regalloc.StorageConst {
		panic("branch_cond to a non-constant target is unimplemented")
	}

	emitCondEval(a, link.Cond) // leaves the taken/not-taken boolean in CL

	a.MovRegImm32(regalloc.RDX, uint32(notTaken.Const))
	a.MovRegImm32(regalloc.RAX, uint32(target.Const))
	a.TestRegReg32(regalloc.RCX, regalloc.RCX)
	a.CmovccReg32(ccNZ, regalloc.RDX, regalloc.RAX)
	a.MovMemDisp8Reg(ctxReg, regalloc.RDX, int8(guest.PcOffset))
	a.MovRegImm32(regalloc.RAX, 0)
	a.Ret()
}

// emitCondEval evaluates one ARM condition code against the live CPSR
// word and leaves a 0/1 result in CL. AL and BL are used as scratch for
// the compound conditions (HI/LS/GE/LT/GT/LE); this runs only at a
// block's terminator, so clobbering them is safe. NV never reaches here:
// package lift never lowers a B with condition 0b1111 to BranchCond.
func emitCondEval(a *Assembler, cond guest.Cond) {
	const bitN, bitZ, bitC, bitV = 31, 30, 29, 28

	bt := func(bit uint8, c cc, dst regalloc.HostRegister) {
		a.BtMemDisp8Imm8(ctxCpsr, 0, bit)
		a.SetccReg8(c, dst)
	}

	switch cond {
	case guest.CondEQ:
		bt(bitZ, ccC, regalloc.RCX)
	case guest.CondNE:
		bt(bitZ, ccNC, regalloc.RCX)
	case guest.CondCS:
		bt(bitC, ccC, regalloc.RCX)
	case guest.CondCC:
		bt(bitC, ccNC, regalloc.RCX)
	case guest.CondMI:
		bt(bitN, ccC, regalloc.RCX)
	case guest.CondPL:
		bt(bitN, ccNC, regalloc.RCX)
	case guest.CondVS:
		bt(bitV, ccC, regalloc.RCX)
	case guest.CondVC:
		bt(bitV, ccNC, regalloc.RCX)
	case guest.CondHI:
		bt(bitC, ccC, regalloc.RCX)
		bt(bitZ, ccNC, regalloc.RBX)
		a.AndRegReg8(regalloc.RCX, regalloc.RBX)
	case guest.CondLS:
		bt(bitC, ccNC, regalloc.RCX)
		bt(bitZ, ccC, regalloc.RBX)
		a.OrRegReg8(regalloc.RCX, regalloc.RBX)
	case guest.CondGE:
		bt(bitN, ccC, regalloc.RCX)
		bt(bitV, ccC, regalloc.RBX)
		a.CmpRegReg8(regalloc.RCX, regalloc.RBX)
		a.SetccReg8(ccE, regalloc.RCX)
	case guest.CondLT:
		bt(bitN, ccC, regalloc.RCX)
		bt(bitV, ccC, regalloc.RBX)
		a.CmpRegReg8(regalloc.RCX, regalloc.RBX)
		a.SetccReg8(ccNE, regalloc.RCX)
	case guest.CondGT:
		bt(bitZ, ccNC, regalloc.RAX)
		bt(bitN, ccC, regalloc.RCX)
		bt(bitV, ccC, regalloc.RBX)
		a.CmpRegReg8(regalloc.RCX, regalloc.RBX)
		a.SetccReg8(ccE, regalloc.RCX)
		a.AndRegReg8(regalloc.RCX, regalloc.RAX)
	case guest.CondLE:
		bt(bitZ, ccC, regalloc.RAX)
		bt(bitN, ccC, regalloc.RCX)
		bt(bitV, ccC, regalloc.RBX)
		a.CmpRegReg8(regalloc.RCX, regalloc.RBX)
		a.SetccReg8(ccNE, regalloc.RCX)
		a.OrRegReg8(regalloc.RCX, regalloc.RAX)
	default:
		panic(fmt.Sprintf("invalid branch_cond condition %v", cond))
	}

	a.MovzxReg32Reg8(regalloc.RCX, regalloc.RCX)
}
