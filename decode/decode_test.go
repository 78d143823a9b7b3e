package decode

import "testing"

// TestLutAgreesWithCascade is the decoder/LUT agreement property from
// spec.md §8: for every compressed index, the precomputed table must equal
// whatever DecodeArm would compute directly from a representative opcode.
func TestLutAgreesWithCascade(t *testing.T) {
	for i := 0; i < ArmLutSize; i++ {
		opcd := armIdxToOpcd(i)
		want := DecodeArm(opcd)
		got := LookupArm(opcd)
		if got != want {
			t.Fatalf("index %#x (opcd %#08x): LookupArm = %v, DecodeArm = %v", i, opcd, got, want)
		}
	}
}

// TestLutAgreesOnIrrelevantBits checks that opcode bits outside [27:20]
// and [7:4] never change the decode, since the LUT compression discards
// them.
func TestLutAgreesOnIrrelevantBits(t *testing.T) {
	samples := []uint32{0x03a00000, 0x0a000000, 0x0b000000, 0xe3a01005, 0xe5891000}
	for _, base := range samples {
		want := DecodeArm(base)
		for _, noise := range []uint32{0x0000_000f, 0xf000_0000, 0x000f_0000} {
			mutated := base | (noise &^ 0x0ff000f0)
			got := DecodeArm(mutated)
			if got != want {
				t.Fatalf("opcode %#08x (base %#08x) decoded to %v, want %v (irrelevant bits must not affect decode)", mutated, base, got, want)
			}
		}
	}
}

func TestKnownEncodings(t *testing.T) {
	cases := []struct {
		name string
		opcd uint32
		want ArmInst
	}{
		{"mov r1, #5 (AL)", 0xe3a01005, MovImm},
		{"sub r1, r1, #1 (AL,S=0)", 0xe2411001, SubImm},
		{"subs r1, r1, #1 (AL,S=1)", 0xe2511001, SubImm},
		{"cmp r1, #0", 0xe3510000, CmpImm},
		{"ldr r0, [r1]", 0xe5910000, LdrImm},
		{"str r0, [r1]", 0xe5810000, StrImm},
		{"b +8", 0xea000002, B},
		{"bl +8", 0xeb000002, BlImm},
		{"stmdb sp!, {r4,lr}", 0xe92d4010, Stmdb},
		{"mov r0, r1", 0xe1a00001, MovReg},
		{"add r0, r0, r1", 0xe0800001, AddReg},
		{"and r0, r0, #1", 0xe2000001, AndImm},
		{"orr r0, r0, r1", 0xe1800001, OrrReg},
		{"cmp r0, r1", 0xe1500001, CmpReg},
	}
	for _, c := range cases {
		got := DecodeArm(c.opcd)
		if got != c.want {
			t.Errorf("%s: DecodeArm(%#08x) = %v, want %v", c.name, c.opcd, got, c.want)
		}
	}
}
