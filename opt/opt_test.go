package opt

import (
	"testing"

	"github.com/Urethramancer/armjit/block"
	"github.com/Urethramancer/armjit/guest"
	"github.com/Urethramancer/armjit/ir"
)

// buildDeadConstantBlock lifts a single MOV that materializes a constant
// it never uses, by hand-assembling a block the way the lifter would:
// one dead Const instruction, one live Const instruction, terminated by a
// Branch to the live variable.
func buildDeadConstantBlock(t *testing.T) *block.BasicBlock {
	t.Helper()
	bb := block.NewBasicBlock(guest.ProgramCounter(0x1000))
	bb.BeginInstruction(0xe3a01005)
	_ = bb.Constant(32, 0xdead) // dead: never read again
	live := bb.Constant(32, 0x1000)
	bb.Terminate(block.BlockLink{Kind: block.LinkBranch, Target: live})
	return bb
}

func TestPruneDeadVarsRemovesUnusedConstant(t *testing.T) {
	bb := buildDeadConstantBlock(t)
	before := len(bb.Data)
	PruneDeadVars(bb)
	if len(bb.Data) >= before {
		t.Fatalf("expected pruning to remove the dead constant instruction, had %d, now %d", before, len(bb.Data))
	}
	if len(bb.Data) != 1 {
		t.Fatalf("expected exactly the live constant to remain, got %d instructions", len(bb.Data))
	}
}

func TestPruneDeadVarsIsIdempotent(t *testing.T) {
	bb := buildDeadConstantBlock(t)
	PruneDeadVars(bb)
	firstPass := len(bb.Data)
	PruneDeadVars(bb)
	if len(bb.Data) != firstPass {
		t.Fatalf("a second prune pass changed instruction count from %d to %d", firstPass, len(bb.Data))
	}
}

func TestPruneDeadVarsKeepsLiveFlagOutputs(t *testing.T) {
	bb := block.NewBasicBlock(guest.ProgramCounter(0x2000))
	bb.BeginInstruction(0xe2411001)
	rn := bb.ReadReg(1)
	imm := bb.Constant(32, 1)
	res, c, v := bb.Sub32F(rn, imm)
	bb.WriteFlag(ir.FlagOverflow, v)
	bb.WriteFlag(ir.FlagCarry, c)
	bb.WriteReg(1, res)
	target := bb.Constant(32, 0x2004)
	bb.Terminate(block.BlockLink{Kind: block.LinkBranch, Target: target})

	before := len(bb.Data)
	PruneDeadVars(bb)
	if len(bb.Data) != before {
		t.Fatalf("pruning dropped a live instruction: before=%d after=%d", before, len(bb.Data))
	}
}
