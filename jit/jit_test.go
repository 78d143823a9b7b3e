package jit

import (
	"encoding/binary"
	"testing"

	"github.com/Urethramancer/armjit/guest"
	"github.com/Urethramancer/armjit/mem"
)

// newTestJit maps a fresh region big enough to hold every scenario below at
// its own non-overlapping base address, and returns a Jit with the guest
// PC parked at pc. The arena lives at a fixed host address, so each call's
// mapping replaces the one made by the previous call.
func newTestJit(t *testing.T, pc uint32, cpsr uint32) (*Jit, *mem.Region) {
	t.Helper()
	region := mem.NewRegion("jit-test", 0, 0x10000)
	state := guest.NewGuestState(pc, cpsr)
	return New(state, region), region
}

func putBE32(region *mem.Region, off uint32, word uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], word)
	region.WriteBuf(off, buf[:])
}

func putLE32(region *mem.Region, off uint32, word uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], word)
	region.WriteBuf(off, buf[:])
}

// TestRunMovImmediate exercises MOV R0, #5 followed by an unconditional
// branch back to itself, stopped after one block by maxBlocks.
func TestRunMovImmediate(t *testing.T) {
	const base = 0x1000
	j, region := newTestJit(t, base, 0)
	putBE32(region, base+0, 0xE3A00005) // MOV R0, #5
	putBE32(region, base+4, 0xEAFFFFFD) // B base (imm24 = -3, branches to base)

	j.Run(1)

	if j.State.Reg[0] != 5 {
		t.Fatalf("R0 = %#x, want 5", j.State.Reg[0])
	}
}

// TestRunSubImmediateSetsFlags exercises SUBS R0, R0, #1 starting from
// R0 == 0, which must borrow: result 0xFFFFFFFF, N set, C clear (ARM
// carry-out means "no borrow", and a borrow did occur here).
func TestRunSubImmediateSetsFlags(t *testing.T) {
	const base = 0x1100
	j, region := newTestJit(t, base, 0)
	putBE32(region, base+0, 0xE2500001) // SUBS R0, R0, #1
	putBE32(region, base+4, 0xEAFFFFFD) // B base

	j.Run(1)

	if j.State.Reg[0] != 0xFFFFFFFF {
		t.Fatalf("R0 = %#x, want 0xFFFFFFFF", j.State.Reg[0])
	}
	if !j.State.Cpsr.N() {
		t.Fatalf("N flag clear, want set")
	}
	if j.State.Cpsr.C() {
		t.Fatalf("C flag set, want clear (a borrow occurred)")
	}
	if j.State.Cpsr.Z() {
		t.Fatalf("Z flag set, want clear")
	}
}

// TestRunLoadRegisterOffset exercises LDR R0, [R1, #8] against a data word
// planted in guest memory, with R1 preloaded through MOV.
func TestRunLoadRegisterOffset(t *testing.T) {
	const base = 0x1200
	const dataOff = 0x30
	j, region := newTestJit(t, base, 0)
	putLE32(region, dataOff+8, 0xCAFEBABE)

	putBE32(region, base+0, 0xE3A01000|dataOff) // MOV R1, #dataOff
	putBE32(region, base+4, 0xE5910008)         // LDR R0, [R1, #8]
	putBE32(region, base+8, 0xEAFFFFFD)         // B base

	j.Run(1)

	if j.State.Reg[0] != 0xCAFEBABE {
		t.Fatalf("R0 = %#x, want 0xcafebabe", j.State.Reg[0])
	}
}

// TestRunStoreWithWriteback exercises STR R0, [R1, #4]! and checks both
// the stored word and R1's pre-indexed-writeback value.
func TestRunStoreWithWriteback(t *testing.T) {
	const base = 0x1400
	const dataOff = 0x50
	j, region := newTestJit(t, base, 0)

	putBE32(region, base+0, 0xE3A0002A)         // MOV R0, #0x2a
	putBE32(region, base+4, 0xE3A01000|dataOff) // MOV R1, #dataOff
	putBE32(region, base+8, 0xE5A10004)         // STR R0, [R1, #4]!
	putBE32(region, base+12, 0xEAFFFFFD)        // B base

	j.Run(1)

	if j.State.Reg[1] != dataOff+4 {
		t.Fatalf("R1 = %#x, want %#x (writeback)", j.State.Reg[1], dataOff+4)
	}

	var buf [4]byte
	for i := range buf {
		buf[i] = region.Read8(dataOff + 4 + uint32(i))
	}
	if got := binary.LittleEndian.Uint32(buf[:]); got != 0x2a {
		t.Fatalf("stored word = %#x, want 0x2a", got)
	}
}

// TestRunUnconditionalBranch exercises a B with a nonzero forward offset:
// the block at base only ever runs the branch, so R0 is set by the block
// it jumps to rather than by falling through.
func TestRunUnconditionalBranch(t *testing.T) {
	const base = 0x1600
	const target = base + 0x20
	j, region := newTestJit(t, base, 0)

	offset := int32(target) - int32(base+8)
	imm24 := uint32(offset/4) & 0xffffff
	putBE32(region, base+0, 0xEA000000|imm24) // B target

	putBE32(region, target+0, 0xE3A00007) // MOV R0, #7
	putBE32(region, target+4, 0xEAFFFFFD) // B target

	j.Run(2)

	if j.State.Reg[0] != 7 {
		t.Fatalf("R0 = %#x, want 7", j.State.Reg[0])
	}
	if j.State.Pc.Fetch() != target {
		t.Fatalf("PC = %#x, want %#x", j.State.Pc.Fetch(), target)
	}
}

// TestRunBranchAndLink exercises BL: the link register must hold the
// return address (the instruction after the BL), and PC must land on the
// callee.
func TestRunBranchAndLink(t *testing.T) {
	const base = 0x1800
	const callee = base + 0x40
	j, region := newTestJit(t, base, 0)

	offset := int32(callee) - int32(base+8)
	imm24 := uint32(offset/4) & 0xffffff
	putBE32(region, base+0, 0xEB000000|imm24) // BL callee

	putBE32(region, callee+0, 0xE3A00009) // MOV R0, #9
	putBE32(region, callee+4, 0xEAFFFFFD) // B callee

	j.Run(2)

	if j.State.Reg[0] != 9 {
		t.Fatalf("R0 = %#x, want 9", j.State.Reg[0])
	}
	if j.State.Reg[guest.LrOffset/4] != base+4 {
		t.Fatalf("LR = %#x, want %#x", j.State.Reg[guest.LrOffset/4], base+4)
	}
}
