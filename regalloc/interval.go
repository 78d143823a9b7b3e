package regalloc

import "github.com/Urethramancer/armjit/ir"

// IntervalMap maps each variable live within a basic block to its
// LiveInterval. order preserves the sequence variables were first
// defined in, since map iteration order is unspecified but the allocator
// (and dead-variable pruning) must process variables in definition order.
type IntervalMap struct {
	data  map[ir.Var]LiveInterval
	order []ir.Var
}

// NewIntervalMap returns an empty IntervalMap.
func NewIntervalMap() IntervalMap {
	return IntervalMap{data: make(map[ir.Var]LiveInterval)}
}

// DefineVar records v as defined at instruction position defIdx. Its use
// index starts at 0, updated as later instructions read it.
func (m *IntervalMap) DefineVar(v ir.Var, defIdx int) {
	if _, exists := m.data[v]; !exists {
		m.order = append(m.order, v)
	}
	m.data[v] = LiveInterval{Def: defIdx, Use: 0}
}

// UseVar extends v's interval to cover a use at instruction position useIdx.
func (m *IntervalMap) UseVar(v ir.Var, useIdx int) {
	interval := m.data[v]
	interval.Use = useIdx
	m.data[v] = interval
}

// Get returns the interval recorded for v, if any.
func (m *IntervalMap) Get(v ir.Var) (LiveInterval, bool) {
	iv, ok := m.data[v]
	return iv, ok
}

// DeadVars returns every variable whose interval was never extended past
// its definition: it was defined but never used, so it carries no live
// range worth keeping around.
func (m *IntervalMap) DeadVars() []ir.Var {
	var dead []ir.Var
	for _, v := range m.order {
		if m.data[v].Use == 0 {
			dead = append(dead, v)
		}
	}
	return dead
}

// Vars returns every variable in the map, in definition order.
func (m *IntervalMap) Vars() []ir.Var {
	return m.order
}

// BuildIntervalMap walks a lifted instruction stream and computes the live
// interval of every variable it defines or uses, including the variables
// the block's terminator reads (terminatorVars), which are treated as used
// one position past the last instruction.
func BuildIntervalMap(instructions []ir.Instruction, terminatorVars []ir.Var) IntervalMap {
	m := NewIntervalMap()
	for pos, inst := range instructions {
		if inst.Lh != nil {
			m.DefineVar(*inst.Lh, pos)
		}
		if inst.LhC != nil {
			m.DefineVar(*inst.LhC, pos)
		}
		if inst.LhV != nil {
			m.DefineVar(*inst.LhV, pos)
		}
		for _, used := range inst.UsedVars() {
			m.UseVar(used, pos)
		}
	}

	for _, v := range terminatorVars {
		m.UseVar(v, len(instructions))
	}
	return m
}

// AllocateRegisters colors every live variable in intervals with a host
// register, using linear scan: intervals are processed in definition
// order, expiring (and reclaiming the register of) any active interval
// that ended at or before the new interval's start. Spilling is
// unimplemented — exhausting the pool is fatal (spec.md §7).
func AllocateRegisters(intervals *IntervalMap) StorageMap {
	type activeEntry struct {
		interval LiveInterval
		reg      HostRegister
	}
	var active []activeEntry
	pool := NewRegisterPool()
	storage := NewStorageMap()

	for _, v := range intervals.order {
		interval := intervals.data[v]

		if v.Kind == ir.VarConstant {
			storage.Bind(v, StorageLoc{Kind: StorageConst, Const: v.Value})
			continue
		}

		kept := active[:0]
		for _, a := range active {
			if a.interval.Use <= interval.Def {
				pool.PutBack(a.reg)
			} else {
				kept = append(kept, a)
			}
		}
		active = kept

		if pool.IsEmpty() {
			panic("register allocation failed: no free host registers (spilling is unimplemented)")
		}
		reg := pool.Take()
		storage.Bind(v, StorageLoc{Kind: StorageGpr, Reg: reg})
		active = append(active, activeEntry{interval: interval, reg: reg})
	}

	return storage
}
