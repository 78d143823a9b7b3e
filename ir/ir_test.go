package ir

import (
	"testing"

	"github.com/Urethramancer/armjit/guest"
)

func TestConstantCanonicalization(t *testing.T) {
	cases := []struct {
		width int
		value uint64
		want  uint64
	}{
		{width: 8, value: 0xff, want: 0xff},
		{width: 8, value: 0x1ff, want: 0xff},
		{width: 32, value: 0xdead_beef, want: 0xdead_beef},
		{width: 32, value: 0x1_0000_0001, want: 1},
		{width: 1, value: 0x3, want: 1},
	}
	for _, c := range cases {
		got := NewConstant(c.width, c.value)
		if got.Value != c.want {
			t.Errorf("NewConstant(%d, %#x).Value = %#x, want %#x", c.width, c.value, got.Value, c.want)
		}
	}
}

func TestConstantCanonicalizationIsDeterministic(t *testing.T) {
	a := NewConstant(32, 0x1234_5678)
	b := NewConstant(32, 0x1234_5678)
	if a != b {
		t.Fatalf("two constants built from the same (width, value) must compare equal: %+v != %+v", a, b)
	}
}

func TestInstructionIsSingleAssignment(t *testing.T) {
	// Every constructor must bind exactly one destination variable (or
	// none, for void-result ops like WriteGuestReg/Store32), never more
	// than the lh/lh_c/lh_v triple the struct models.
	dst := NewLocalVar(1, 32)
	x := NewLocalVar(2, 32)
	y := NewLocalVar(3, 32)
	inst := NewAdd32Inst(0, dst, x, y)
	if inst.Lh == nil || inst.Lh.ID != dst.ID {
		t.Fatalf("NewAdd32Inst must bind Lh to dst, got %+v", inst.Lh)
	}
	if inst.LhC != nil || inst.LhV != nil {
		t.Fatalf("NewAdd32Inst without flags must leave LhC/LhV nil")
	}
}

func TestUsedVarsBinaryArith(t *testing.T) {
	dst := NewLocalVar(1, 32)
	x := NewLocalVar(2, 32)
	y := NewLocalVar(3, 32)
	inst := NewSub32Inst(0, dst, x, y)
	used := inst.UsedVars()
	if len(used) != 2 || used[0].ID != x.ID || used[1].ID != y.ID {
		t.Fatalf("UsedVars() = %+v, want [x, y]", used)
	}
}

func TestUsedVarsUnaryArith(t *testing.T) {
	dst := NewLocalVar(1, 32)
	x := NewLocalVar(2, 32)
	inst := NewIsZeroInst(0, dst, x)
	used := inst.UsedVars()
	if len(used) != 1 || used[0].ID != x.ID {
		t.Fatalf("UsedVars() = %+v, want [x]", used)
	}
}

func TestUsedVarsWriteGuestRegAndStore(t *testing.T) {
	val := NewLocalVar(1, 32)
	wr := NewWriteRegInst(0, guest.RegIdx(0), val)
	if used := wr.UsedVars(); len(used) != 1 || used[0].ID != val.ID {
		t.Fatalf("WriteGuestReg UsedVars() = %+v, want [val]", used)
	}

	addr := NewLocalVar(2, 32)
	st := NewStore32Inst(0, addr, val)
	used := st.UsedVars()
	if len(used) != 2 || used[0].ID != addr.ID || used[1].ID != val.ID {
		t.Fatalf("Store32 UsedVars() = %+v, want [addr, val]", used)
	}
}

func TestUsedVarsConstHasNoUses(t *testing.T) {
	dst := NewLocalVar(1, 32)
	inst := NewConstInst(0, dst, NewConstant(32, 5))
	if used := inst.UsedVars(); len(used) != 0 {
		t.Fatalf("Const UsedVars() = %+v, want none", used)
	}
}
