// Package runtime hosts the dispatcher trampoline: the one piece of native
// code that is not produced by lifting guest instructions. It pins the
// reserved context registers (guest register file, fastmem base, CPSR
// word) and calls into whichever recompiled block the JIT hands it,
// translating the block's raw return value into a RuntimeExitCode.
package runtime

import (
	"fmt"

	"github.com/Urethramancer/armjit/emit"
	"github.com/Urethramancer/armjit/mem"
	"github.com/Urethramancer/armjit/regalloc"
)

// RuntimeExitCode is the value a recompiled block's terminator leaves in
// rax when it returns to the dispatcher.
type RuntimeExitCode int

const (
	ExitNextBlock RuntimeExitCode = iota
	ExitHalt
)

// RuntimeExitCodeFromUint converts a raw block return value. An
// unrecognized code means generated code and the runtime have drifted out
// of sync, which is a fatal contract violation rather than a recoverable
// error.
func RuntimeExitCodeFromUint(x uint64) RuntimeExitCode {
	switch x {
	case 0:
		return ExitNextBlock
	case 1:
		return ExitHalt
	default:
		panic(fmt.Sprintf("unhandled block return code %d", x))
	}
}

// calleeSaveSize is the stack space the dispatcher reserves for itself
// beyond the six pushed callee-save registers, mirroring the original's
// own (somewhat generous) frame allowance.
const calleeSaveSize = 48

// RuntimeContext owns the assembled dispatcher trampoline and the three
// pointers it bakes in as immediates: the guest register file, the
// fastmem base, and the live CPSR word. One RuntimeContext is built per
// JIT instance, since the pointers are only known once the guest state
// and memory arena exist.
type RuntimeContext struct {
	dispatcher []byte

	RegisterPtr uintptr
	FastmemPtr  uintptr
	CpsrPtr     uintptr
	Cycles      uint64
}

// NewRuntimeContext assembles the dispatcher trampoline for the given
// context pointers and maps it into executable memory.
//
// The upstream trampoline this was ported from calls through rsi for the
// block entrypoint, which does not match its own declared extern "C"
// fn(usize) signature (the SysV ABI places a function's first integer
// argument in rdi, not rsi). That mismatch is not reproduced here: the
// dispatcher below calls through rdi, and the Go-side caller
// (RuntimeContext.Trampoline) passes the block entrypoint as rdi per the
// standard convention.
func NewRuntimeContext(registerPtr, fastmemPtr, cpsrPtr uintptr) *RuntimeContext {
	a := emit.NewAssembler()

	a.PushReg(regalloc.RBX)
	a.PushReg(regalloc.RBP)
	a.PushReg(regalloc.R12)
	a.PushReg(regalloc.R13)
	a.PushReg(regalloc.R14)
	a.PushReg(regalloc.R15)
	a.SubRspImm8(calleeSaveSize)

	a.MovRegImm64(regalloc.R15, uint64(registerPtr))
	a.MovRegImm64(regalloc.R14, uint64(fastmemPtr))
	a.MovRegImm64(regalloc.R13, uint64(cpsrPtr))

	a.CallReg(regalloc.RDI)

	a.AddRspImm8(calleeSaveSize)
	a.PopReg(regalloc.R15)
	a.PopReg(regalloc.R14)
	a.PopReg(regalloc.R13)
	a.PopReg(regalloc.R12)
	a.PopReg(regalloc.RBP)
	a.PopReg(regalloc.RBX)
	a.Ret()

	return &RuntimeContext{
		dispatcher:  mem.NewExecutablePage(a.Bytes()),
		RegisterPtr: registerPtr,
		FastmemPtr:  fastmemPtr,
		CpsrPtr:     cpsrPtr,
	}
}

// Trampoline enters the dispatcher with entrypoint as the block to run,
// and returns its exit code. entrypoint is the host address of a basic
// block's recompiled code (block.BasicBlock.Entrypoint).
func (ctx *RuntimeContext) Trampoline(entrypoint uintptr) RuntimeExitCode {
	dispatcherAddr := dispatcherEntry(ctx.dispatcher)
	code := callThroughPointer(dispatcherAddr, entrypoint)
	ctx.Cycles++
	return RuntimeExitCodeFromUint(code)
}
