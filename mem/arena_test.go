package mem

import "testing"

func TestRegionRoundTripsBigEndianWords(t *testing.T) {
	r := NewRegion("round-trip", 0, 0x1000)
	r.WriteBuf(0x10, []byte{0x00, 0x11, 0x22, 0x33})

	if got := r.Read8(0x10); got != 0x00 {
		t.Fatalf("Read8(0x10) = %#x, want 0x00", got)
	}
	if got := r.Read16(0x12); got != 0x2233 {
		t.Fatalf("Read16(0x12) = %#x, want 0x2233", got)
	}
	if got := r.Read32(0x10); got != 0x00112233 {
		t.Fatalf("Read32(0x10) = %#x, want 0x00112233", got)
	}
}

func TestRegionLenReportsMappedLength(t *testing.T) {
	r := NewRegion("len-check", 0, 0x2000)
	if r.Len() != 0x2000 {
		t.Fatalf("Len() = %#x, want 0x2000", r.Len())
	}
}

func TestNewExecutablePageCopiesCode(t *testing.T) {
	code := []byte{0xC3} // ret
	page := NewExecutablePage(code)
	if len(page) != 1 || page[0] != 0xC3 {
		t.Fatalf("page = %v, want [0xc3]", page)
	}
}
