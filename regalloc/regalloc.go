// Package regalloc implements linear-scan register allocation over the
// live intervals of a lifted basic block's SSA variables.
//
// # Liveness
//
// The IR is in static single assignment form: every variable is assigned
// exactly once, which makes its lifetime within a block easy to compute.
// A LiveInterval is the span from where a variable is defined (the
// left-hand side of an instruction) to the last point it is used (the
// right-hand side of some later instruction, or the block's terminator).
//
// # Allocator behavior
//
// A linear-scan allocator colors live intervals with registers using one
// rule: two variables whose intervals overlap can never share a register.
//
// # Calling convention
//
// The generated code's register usage reserves a fixed set of host
// registers for the runtime's own bookkeeping and gives the rest to the
// allocator:
//
//	rax, rbx, rcx, rdx, r8, r9, r10, r11   -- available to the allocator
//	rbp, rsp                                -- frame pointer / stack pointer
//	r12                                     -- emitter scratch (compileWriteFlag), never pooled
//	r13                                     -- reserved: CPSR pointer
//	r14                                     -- reserved: fastmem base
//	r15                                     -- reserved: guest register file pointer
//	rsi, rdi                                -- unused by generated blocks
//
// Flag-output variables (the carry/overflow results of Add32F/Sub32F/
// Lsl32F) are never materialized through a fixed scratch register drawn
// from this pool: compileArithFlags/compileLsl write setcc/movzx directly
// into the flag variable's own allocated register, so there is no
// register here an allocated variable could ever race a hardcoded
// emitter scratch for.
package regalloc

import "github.com/Urethramancer/armjit/ir"

// HostRegister names a physical x86-64 general-purpose register by its
// ModRM/REX encoding value.
type HostRegister int

const (
	RAX HostRegister = 0x0
	RCX HostRegister = 0x1
	RDX HostRegister = 0x2
	RBX HostRegister = 0x3
	RSP HostRegister = 0x4
	RBP HostRegister = 0x5
	RSI HostRegister = 0x6
	RDI HostRegister = 0x7
	R8  HostRegister = 0x8
	R9  HostRegister = 0x9
	R10 HostRegister = 0xA
	R11 HostRegister = 0xB
	R12 HostRegister = 0xC
	R13 HostRegister = 0xD
	R14 HostRegister = 0xE
	R15 HostRegister = 0xF
)

func (r HostRegister) String() string {
	names := [...]string{
		"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
		"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
	}
	if int(r) < len(names) {
		return names[r]
	}
	return "HostRegister(?)"
}

// StorageKind distinguishes where a variable's value lives once allocated.
type StorageKind int

const (
	StorageGpr StorageKind = iota
	StorageConst
)

// StorageLoc is the storage location assigned to a variable by the
// allocator: either a host register, or (for VarConstant variables, which
// are never assigned a register) the constant value itself.
type StorageLoc struct {
	Kind  StorageKind
	Reg   HostRegister
	Const uint64
}

func (s StorageLoc) String() string {
	if s.Kind == StorageGpr {
		return s.Reg.String()
	}
	return ""
}

// LiveInterval is the span, in instruction-position indices, between a
// variable's definition and its last use.
type LiveInterval struct {
	Def int
	Use int
}

// StorageMap binds variables to their allocated storage location.
type StorageMap struct {
	data map[ir.Var]StorageLoc
}

// NewStorageMap returns an empty StorageMap.
func NewStorageMap() StorageMap {
	return StorageMap{data: make(map[ir.Var]StorageLoc)}
}

// Bind assigns v to storage location s.
func (m *StorageMap) Bind(v ir.Var, s StorageLoc) { m.data[v] = s }

// Get returns the storage location bound to v, if any.
func (m *StorageMap) Get(v ir.Var) (StorageLoc, bool) {
	s, ok := m.data[v]
	return s, ok
}

// RegisterPool is a LIFO pool of host registers available to the
// allocator, drained in the order scratch registers are conventionally
// preferred.
type RegisterPool struct {
	data []HostRegister
}

// NewRegisterPool returns the pool as ordered by the calling convention
// above: the four caller-saved scratch registers first, then the
// remaining general-purpose registers.
func NewRegisterPool() RegisterPool {
	return RegisterPool{data: []HostRegister{R11, R10, R9, R8, RBX, RDX, RCX, RAX}}
}

// Take removes and returns the next available register.
func (p *RegisterPool) Take() HostRegister {
	last := len(p.data) - 1
	r := p.data[last]
	p.data = p.data[:last]
	return r
}

// PutBack returns a register to the pool once its value is no longer live.
func (p *RegisterPool) PutBack(r HostRegister) { p.data = append(p.data, r) }

// IsEmpty reports whether the pool has no registers left to allocate.
func (p *RegisterPool) IsEmpty() bool { return len(p.data) == 0 }
