// Package block implements the basic-block builder: the set of IR
// instructions lifted from one straight-line run of guest code, the local
// variable/constant bindings used while lifting it, and its terminator.
package block

import (
	"github.com/Urethramancer/armjit/guest"
	"github.com/Urethramancer/armjit/ir"
)

// LocalBindings tracks the SSA variables allocated while lifting a block,
// and deduplicates repeated constant materializations: the same (width,
// value) pair always resolves to the same Var within a block.
type LocalBindings struct {
	curVarID int
	varMap   map[int]ir.Var
	constMap map[ir.Constant]ir.Var
}

// NewLocalBindings returns an empty binding set.
func NewLocalBindings() LocalBindings {
	return LocalBindings{
		varMap:   make(map[int]ir.Var),
		constMap: make(map[ir.Constant]ir.Var),
	}
}

func (lb *LocalBindings) nextID() int {
	id := lb.curVarID
	lb.curVarID++
	return id
}

func (lb *LocalBindings) getConstant(c ir.Constant) (ir.Var, bool) {
	v, ok := lb.constMap[c]
	return v, ok
}

func (lb *LocalBindings) removeConstant(c ir.Constant) {
	delete(lb.constMap, c)
}

func (lb *LocalBindings) allocaLocal(width int) ir.Var {
	v := ir.NewLocalVar(lb.nextID(), width)
	lb.varMap[v.ID] = v
	return v
}

func (lb *LocalBindings) allocaConstant(c ir.Constant) ir.Var {
	v := ir.NewConstantVar(lb.nextID(), c.Width, c.Value)
	lb.constMap[c] = v
	lb.varMap[v.ID] = v
	return v
}

func (lb *LocalBindings) allocaGuestReg(reg guest.RegIdx) ir.Var {
	v := ir.NewGuestRegVar(lb.nextID(), reg)
	lb.varMap[v.ID] = v
	return v
}

// LinkKind distinguishes the three ways a block can terminate.
type LinkKind int

const (
	LinkBranch LinkKind = iota
	LinkBranchAndLink
	LinkBranchCond
)

// BlockLink is a basic block's terminator: where control flow goes next.
type BlockLink struct {
	Kind LinkKind
	// Target is the branch target for Branch, and the taken target for
	// BranchCond.
	Target ir.Var
	// Link is the return address for BranchAndLink.
	Link ir.Var
	// NotTaken is the fallthrough target for BranchCond.
	NotTaken ir.Var
	// Cond is the condition code for BranchCond.
	Cond guest.Cond
}

// BasicBlock is a single-entry, single-exit run of lifted guest code: a
// flat instruction list terminated by exactly one BlockLink.
type BasicBlock struct {
	BasePC guest.ProgramCounter

	Data []ir.Instruction
	Link *BlockLink

	lb LocalBindings

	// Code holds this block's recompiled machine code, populated by
	// package emit after register allocation.
	Code []byte

	GuestOps []uint32

	pc guest.ProgramCounter

	// curOp is the raw opcode of the instruction currently being lifted.
	// Tracked explicitly (rather than re-read from the tail of GuestOps)
	// so builder methods never need to reach into a slice another method
	// may be mutating concurrently within the same lift step.
	curOp uint32
}

// NewBasicBlock creates an empty block starting at pc.
func NewBasicBlock(pc guest.ProgramCounter) *BasicBlock {
	return &BasicBlock{
		BasePC: pc,
		lb:     NewLocalBindings(),
		pc:     pc,
	}
}

func (bb *BasicBlock) push(inst ir.Instruction) {
	if bb.Link != nil {
		panic("cannot append an instruction to an already-terminated block")
	}
	bb.Data = append(bb.Data, inst)
}

// ReadFetchPC returns the fetch address of the instruction being lifted.
func (bb *BasicBlock) ReadFetchPC() uint32 { return bb.pc.Fetch() }

// ReadExecPC returns the value guest code observes reading R15 right now.
func (bb *BasicBlock) ReadExecPC() uint32 { return bb.pc.Exec() }

// IncrementPC advances the fetch cursor by one instruction.
func (bb *BasicBlock) IncrementPC() { bb.pc.Increment() }

// BeginInstruction records the raw opcode about to be lifted; called once
// per iteration of the lift loop before dispatching to a handler.
func (bb *BasicBlock) BeginInstruction(opcd uint32) {
	bb.GuestOps = append(bb.GuestOps, opcd)
	bb.curOp = opcd
}

// Entrypoint returns a pointer to this block's recompiled code. Valid only
// after package emit has populated Code.
func (bb *BasicBlock) Entrypoint() *byte {
	if len(bb.Code) == 0 {
		panic("block has no recompiled code yet")
	}
	return &bb.Code[0]
}

// Terminate sets this block's terminator. A block may be terminated exactly
// once.
func (bb *BasicBlock) Terminate(link BlockLink) {
	if bb.Link != nil {
		panic("block already terminated")
	}
	bb.Link = &link
}

// RemoveConstant unbinds a constant from this block's dedup table, so a
// later Constant call with the same (width, value) allocates a fresh
// variable rather than reusing one that pruning just deleted.
func (bb *BasicBlock) RemoveConstant(c ir.Constant) {
	bb.lb.removeConstant(c)
}

// TerminatorVars returns every Var the terminator reads, so the liveness
// pass can treat them as used at the instruction-count position (one past
// the last real instruction).
func (bb *BasicBlock) TerminatorVars() []ir.Var {
	if bb.Link == nil {
		panic("block has no terminator yet")
	}
	switch bb.Link.Kind {
	case LinkBranch:
		return []ir.Var{bb.Link.Target}
	case LinkBranchAndLink:
		return []ir.Var{bb.Link.Target, bb.Link.Link}
	case LinkBranchCond:
		return []ir.Var{bb.Link.Target, bb.Link.NotTaken}
	default:
		panic("unknown terminator kind")
	}
}
