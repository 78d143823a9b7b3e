package decode

// ArmLutSize is the number of distinct entries the compressed ARM index
// space covers (spec.md §4.1): bits [27:20] and [7:4] of the opcode are the
// only bits that ever distinguish an ArmInst tag, so the table is indexed
// by a 12-bit compression of those two fields rather than the full 32-bit
// opcode.
const ArmLutSize = 0x1000

// armLut stores the ArmInst tag each compressed index decodes to,
// precomputed once at package init. This stores tags, not function
// pointers: dispatch from a tag to its lift handler goes through the typed
// armDispatch map in package lift, never an unsafe transmute of a stored
// pointer.
var armLut [ArmLutSize]ArmInst

func init() {
	for i := 0; i < ArmLutSize; i++ {
		armLut[i] = DecodeArm(armIdxToOpcd(i))
	}
}

// armOpcdToIdx compresses an opcode down to the 12 bits the cascade in
// DecodeArm actually branches on: opcode bits [27:20] and [7:4].
func armOpcdToIdx(opcd uint32) int {
	return int(((opcd >> 16) & 0x0ff0) | ((opcd >> 4) & 0x000f))
}

// armIdxToOpcd expands a compressed index back to a representative opcode
// with every other bit cleared; used only to build the table at init.
func armIdxToOpcd(idx int) uint32 {
	return uint32(((idx & 0x0ff0) << 16) | ((idx & 0x000f) << 4))
}

// LookupArm classifies an ARM opcode via the precomputed table rather than
// re-running the mask/match cascade on every decode.
func LookupArm(opcd uint32) ArmInst {
	return armLut[armOpcdToIdx(opcd)]
}

// ThumbLutSize is the number of entries the Thumb index space covers.
// Thumb decoding is a stub (spec.md §4.1 Non-goals): every entry resolves
// to ThumbUndefined.
const ThumbLutSize = 0x400

// ThumbInst tags a Thumb opcode. Only Undefined is populated; full Thumb
// decoding is out of scope.
type ThumbInst int

const ThumbUndefined ThumbInst = 0

var thumbLut [ThumbLutSize]ThumbInst

// LookupThumb always reports ThumbUndefined; Thumb decoding is unimplemented.
func LookupThumb(opcd uint16) ThumbInst {
	return thumbLut[(opcd&0xffc0)>>6]
}
