// Package opt prunes dead IR variables from a lifted basic block before
// register allocation, so the allocator never has to color a value that
// is computed and never used.
package opt

import (
	"github.com/Urethramancer/armjit/block"
	"github.com/Urethramancer/armjit/ir"
	"github.com/Urethramancer/armjit/regalloc"
)

// PruneDeadVars repeatedly removes instructions whose result is never
// used, to a fixpoint: removing one dead instruction can make one of its
// operands' producer dead in turn, so a single pass is not enough.
func PruneDeadVars(bb *block.BasicBlock) {
	for {
		intervals := regalloc.BuildIntervalMap(bb.Data, bb.TerminatorVars())
		deadList := intervals.DeadVars()
		if len(deadList) == 0 {
			return
		}

		dead := make(map[ir.Var]bool, len(deadList))
		for _, v := range deadList {
			dead[v] = true
			if v.Kind == ir.VarConstant {
				bb.RemoveConstant(ir.NewConstant(v.Width, v.Value))
			}
		}

		// A dead flag-output variable can be cleared from its producing
		// instruction without removing the instruction itself, since the
		// instruction's primary result may still be live.
		for i := range bb.Data {
			inst := &bb.Data[i]
			if inst.LhC != nil && dead[*inst.LhC] {
				inst.LhC = nil
			}
			if inst.LhV != nil && dead[*inst.LhV] {
				inst.LhV = nil
			}
		}

		kept := bb.Data[:0]
		for _, inst := range bb.Data {
			// Never drop an instruction that still binds a live flag
			// output, even if its primary result is dead.
			if inst.LhC != nil || inst.LhV != nil {
				kept = append(kept, inst)
				continue
			}
			if inst.Lh != nil && dead[*inst.Lh] {
				continue
			}
			kept = append(kept, inst)
		}
		bb.Data = kept
	}
}
