// Package jit ties the pipeline together: lift a guest basic block, prune
// its dead variables, recompile it to native code, and dispatch into that
// code through the runtime trampoline, repeating from wherever the block
// left the guest program counter.
package jit

import (
	"unsafe"

	"github.com/Urethramancer/armjit/block"
	"github.com/Urethramancer/armjit/emit"
	"github.com/Urethramancer/armjit/guest"
	"github.com/Urethramancer/armjit/lift"
	"github.com/Urethramancer/armjit/mem"
	"github.com/Urethramancer/armjit/opt"
	rt "github.com/Urethramancer/armjit/runtime"
)

// Jit owns one guest machine's architectural state, its physical memory,
// and the translation cache mapping a fetch address to the block already
// recompiled from it.
type Jit struct {
	State *guest.GuestState
	Mem   *mem.Region

	cache map[uint32]*block.BasicBlock
	ctx   *rt.RuntimeContext
}

// New builds a Jit over state and mem, assembling the dispatcher
// trampoline against state's register file and CPSR and mem's fastmem
// base. state and mem must outlive the returned Jit: the trampoline bakes
// their addresses in as immediates, not as a live pointer it dereferences
// again later.
func New(state *guest.GuestState, region *mem.Region) *Jit {
	registerPtr := uintptr(unsafe.Pointer(&state.Reg[0]))
	cpsrPtr := uintptr(unsafe.Pointer(&state.Cpsr))

	return &Jit{
		State: state,
		Mem:   region,
		cache: make(map[uint32]*block.BasicBlock),
		ctx:   rt.NewRuntimeContext(registerPtr, mem.ArenaBase, cpsrPtr),
	}
}

// translate returns the recompiled block starting at the fetch address
// pc, lifting and compiling it first if the cache has nothing for pc yet.
func (j *Jit) translate(pc uint32) *block.BasicBlock {
	if bb, ok := j.cache[pc]; ok {
		return bb
	}

	bb := lift.Lift(guest.ProgramCounter(pc), j.Mem)
	opt.PruneDeadVars(bb)
	emit.Compile(bb)
	j.cache[pc] = bb
	return bb
}

// Run dispatches blocks starting from the current guest PC until either a
// block's terminator returns ExitHalt or maxBlocks blocks have run.
// maxBlocks is a hard backstop rather than an optional tuning knob: no
// lifted instruction in this tree ever produces ExitHalt, so a caller that
// wants the loop to terminate on its own must arrange for the guest
// program to branch somewhere that panics on translation, or must bound
// the run explicitly.
func (j *Jit) Run(maxBlocks int) rt.RuntimeExitCode {
	for i := 0; i < maxBlocks; i++ {
		bb := j.translate(j.State.Pc.Fetch())
		code := j.ctx.Trampoline(uintptr(unsafe.Pointer(bb.Entrypoint())))
		if code == rt.ExitHalt {
			return code
		}
	}
	return rt.ExitNextBlock
}
