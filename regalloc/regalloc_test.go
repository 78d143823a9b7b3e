package regalloc

import (
	"testing"

	"github.com/Urethramancer/armjit/ir"
)

func v(id, width int) ir.Var { return ir.NewLocalVar(id, width) }

func TestAllocatorDisjointIntervalsNeverShareARegister(t *testing.T) {
	// Three variables: a lives [0,2], b lives [1,3] (outlives a), c
	// lives [2,3]. b overlaps both a and c; c starts exactly when a ends,
	// so c may reuse a's register but must not reuse b's while b is live.
	a, b, c := v(0, 32), v(1, 32), v(2, 32)
	m := NewIntervalMap()
	m.DefineVar(a, 0)
	m.DefineVar(b, 1)
	m.UseVar(a, 2)
	m.UseVar(b, 3)
	m.DefineVar(c, 2)
	m.UseVar(c, 3)

	storage := AllocateRegisters(&m)

	locA, _ := storage.Get(a)
	locB, _ := storage.Get(b)
	locC, _ := storage.Get(c)

	if locA.Reg == locB.Reg {
		t.Fatalf("overlapping intervals a and b were assigned the same register %v", locA.Reg)
	}
	// c may legally reuse a's register once a has expired, but must not
	// collide with any interval still active at its definition point.
	if locC.Reg == locB.Reg {
		t.Fatalf("c's register must not collide with still-live b")
	}
}

func TestConstantsNeverConsumeARegister(t *testing.T) {
	cVar := ir.NewConstantVar(0, 32, 5)
	m := NewIntervalMap()
	m.DefineVar(cVar, 0)
	m.UseVar(cVar, 3)

	storage := AllocateRegisters(&m)
	loc, ok := storage.Get(cVar)
	if !ok {
		t.Fatal("constant var must still be bound to a storage location")
	}
	if loc.Kind != StorageConst {
		t.Fatalf("constant var must bind to StorageConst, got %v", loc.Kind)
	}
}

func TestPoolExhaustionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic when the register pool is exhausted")
		}
	}()

	m := NewIntervalMap()
	// 9 simultaneously-live locals: one more than the 8-register pool.
	for i := 0; i < 9; i++ {
		m.DefineVar(v(i, 32), 0)
		m.UseVar(v(i, 32), 100)
	}
	AllocateRegisters(&m)
}
