package block

import (
	"fmt"
	"strings"
)

// DisasIR renders the lifted instruction stream, one line per instruction
// plus the terminator, in the same index-prefixed layout a debugger for
// this translator would print.
func (bb *BasicBlock) DisasIR() string {
	var sb strings.Builder
	for idx, inst := range bb.Data {
		fmt.Fprintf(&sb, "  %08d %08x %s\n", idx, inst.GuestOp, inst)
	}
	if bb.Link != nil {
		fmt.Fprintf(&sb, "  %08x Terminal %s\n", len(bb.Data), bb.Link)
	}
	return sb.String()
}

func (l *BlockLink) String() string {
	switch l.Kind {
	case LinkBranch:
		return fmt.Sprintf("Branch(%s)", l.Target)
	case LinkBranchAndLink:
		return fmt.Sprintf("BranchAndLink(%s, %s)", l.Target, l.Link)
	case LinkBranchCond:
		return fmt.Sprintf("BranchCond(%v, %s, %s)", l.Cond, l.Target, l.NotTaken)
	default:
		return "BlockLink(?)"
	}
}
