// Package lift drives the fetch-decode-dispatch loop that turns a run of
// guest opcodes into a BasicBlock: it owns the dispatch table mapping a
// decoded instruction tag to its handler in package arm, and the loop that
// fetches, decodes, and dispatches until a handler terminates the block.
package lift

import (
	"fmt"

	"github.com/Urethramancer/armjit/block"
	"github.com/Urethramancer/armjit/decode"
	"github.com/Urethramancer/armjit/guest"
	"github.com/Urethramancer/armjit/lift/arm"
)

// MemReader is the guest-memory view the lifter fetches opcodes through.
// *mem.Region satisfies this.
type MemReader interface {
	Read32(off uint32) uint32
}

// armHandler implements one decoded ARM instruction tag by pushing IR
// instructions (and, for the last instruction in a block, a terminator)
// onto bb.
type armHandler func(bb *block.BasicBlock, opcd uint32)

// armUnimplInstr is the fallback for every ArmInst tag with no wired
// handler. Reaching it is fatal (spec.md §7 treats "unimplemented
// instruction" as a first-class fatal condition, not a bug).
func armUnimplInstr(bb *block.BasicBlock, opcd uint32) {
	panic(fmt.Sprintf("unimplemented ARM instruction %#08x (%v)", opcd, decode.DecodeArm(opcd)))
}

var armDispatch = map[decode.ArmInst]armHandler{
	decode.SubImm: arm.SubImm,
	decode.AddImm: arm.AddImm,
	decode.AddReg: arm.AddReg,
	decode.MovImm: arm.MovImm,
	decode.MovReg: arm.MovReg,
	decode.AndImm: arm.AndImm,
	decode.AndReg: arm.AndReg,
	decode.OrrImm: arm.OrrImm,
	decode.OrrReg: arm.OrrReg,
	decode.CmpImm: arm.CmpImm,
	decode.CmpReg: arm.CmpReg,

	decode.LdrImm: arm.LdrImm,
	decode.StrImm: arm.StrImm,
	decode.Stmdb:  arm.Stmdb,

	decode.B:     arm.B,
	decode.BlImm: arm.BlImm,
}

func dispatch(bb *block.BasicBlock, tag decode.ArmInst, opcd uint32) {
	if h, ok := armDispatch[tag]; ok {
		h(bb, opcd)
		return
	}
	armUnimplInstr(bb, opcd)
}

// Lift fetches and lifts guest instructions starting at pc until a handler
// terminates the block, returning the completed BasicBlock.
func Lift(pc guest.ProgramCounter, mem MemReader) *block.BasicBlock {
	bb := block.NewBasicBlock(pc)
	for {
		opcd := mem.Read32(bb.ReadFetchPC())
		bb.BeginInstruction(opcd)

		tag := decode.LookupArm(opcd)
		dispatch(bb, tag, opcd)

		if bb.Link != nil {
			break
		}
		bb.IncrementPC()
	}
	return bb
}
