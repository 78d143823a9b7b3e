// Package arm implements the per-encoding lift handlers: each function
// takes the basic block under construction and the raw 32-bit opcode, and
// pushes the IR instructions that implement it.
package arm

import "github.com/Urethramancer/armjit/guest"

func cond(opcd uint32) guest.Cond { return guest.CondFromBits((opcd >> 28) & 0xf) }
func sFlag(opcd uint32) bool      { return (opcd>>20)&1 != 0 }
func pFlag(opcd uint32) bool      { return (opcd>>24)&1 != 0 }
func uFlag(opcd uint32) bool      { return (opcd>>23)&1 != 0 }
func wFlag(opcd uint32) bool      { return (opcd>>21)&1 != 0 }
func rn(opcd uint32) guest.RegIdx { return (opcd >> 16) & 0xf }
func rd(opcd uint32) guest.RegIdx { return (opcd >> 12) & 0xf }
func rt(opcd uint32) guest.RegIdx { return (opcd >> 12) & 0xf } // load/store target, same field as Rd
func rm(opcd uint32) guest.RegIdx { return opcd & 0xf }
func imm12(opcd uint32) uint32    { return opcd & 0xfff }
func imm5(opcd uint32) uint32     { return (opcd >> 7) & 0x1f }
func stype(opcd uint32) uint32    { return (opcd >> 5) & 0x3 }
func registerList(opcd uint32) uint32 { return opcd & 0xffff }
func imm24(opcd uint32) uint32    { return opcd & 0xffffff }

func requireAL(opcd uint32) {
	if cond(opcd) != guest.CondAL {
		panic("non-AL condition is only supported on B (see BranchCond lowering)")
	}
}
