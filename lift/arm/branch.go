package arm

import (
	"github.com/Urethramancer/armjit/block"
	"github.com/Urethramancer/armjit/guest"
)

// signExtend sign-extends the low bits-wide bitfield of x.
func signExtend(x uint32, bitWidth int) int32 {
	if (int32(x)>>(bitWidth-1))&1 != 0 {
		return int32(x) | (^int32(0) << uint(bitWidth))
	}
	return int32(x)
}

// B lifts the unconditional and conditional forms of B. AL-conditioned
// branches terminate the block directly; any other condition terminates
// with BranchCond, which the emitter lowers via CPSR-flag materialization
// (see SPEC_FULL.md's conditional-branch-lowering addition).
func B(bb *block.BasicBlock, opcd uint32) {
	offset := signExtend(imm24(opcd), 24) * 4
	targetVal := uint32(int32(bb.ReadExecPC()) + offset)
	target := bb.Constant(32, uint64(targetVal))

	c := cond(opcd)
	if c == guest.CondAL {
		bb.Terminate(block.BlockLink{Kind: block.LinkBranch, Target: target})
		return
	}
	targetFalse := bb.Constant(32, uint64(bb.ReadFetchPC()+4))
	bb.Terminate(block.BlockLink{
		Kind:     block.LinkBranchCond,
		Cond:     c,
		Target:   target,
		NotTaken: targetFalse,
	})
}

// BlImm lifts BL, linking the return address into the terminator rather
// than writing LR directly, so package emit can choose where the link
// write happens relative to the jump.
func BlImm(bb *block.BasicBlock, opcd uint32) {
	requireAL(opcd)
	offset := signExtend(imm24(opcd), 24) * 4

	lrVal := bb.ReadFetchPC() + 4
	newLr := bb.Constant(32, uint64(lrVal))

	targetVal := uint32(int32(bb.ReadExecPC()) + offset)
	target := bb.Constant(32, uint64(targetVal))

	bb.Terminate(block.BlockLink{Kind: block.LinkBranchAndLink, Target: target, Link: newLr})
}
