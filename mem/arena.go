// Package mem defines the host-mapped memory arena backing guest physical
// memory. The arena is a single contiguous host allocation, mapped at a
// fixed virtual base so that generated code can address guest memory as
// `[fastmem_base + guest_addr]` with no translation (spec.md §3, §6).
package mem

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ArenaBase is the fixed host virtual address the arena is mapped at.
// Recompiled blocks reach it indirectly via the reserved fastmem-base host
// register; it appears as an immediate only in the dispatcher trampoline,
// which loads it into that register.
const ArenaBase = 0x0000_1337_0000_0000

// Region is a host-mapped block of guest physical memory. The underlying
// mapping is backed by an anonymous shared-memory file (memfd_create) so
// that it can be placed at ArenaBase with MAP_FIXED, mirroring the
// shm_open+mmap(MAP_FIXED) scheme this was ported from.
type Region struct {
	name string
	addr uint32 // guest physical base address this region represents
	len  int
	buf  []byte // mmap'd bytes, length len, host address ArenaBase+addr
	fd   int
}

// NewRegion creates and maps a new memory region of length bytes,
// representing guest physical addresses [addr, addr+len).
//
// Host-allocation failure (memfd_create/ftruncate/mmap) is fatal at
// startup (spec.md §7); there is no recovery path, so this panics rather
// than returning an error — matching the original's own behavior of
// panicking out of MemRegion::new.
func NewRegion(name string, addr uint32, length int) *Region {
	fd, err := unix.MemfdCreate(name, 0)
	if err != nil {
		panic(fmt.Sprintf("memfd_create for region %q failed: %v", name, err))
	}
	if err := unix.Ftruncate(fd, int64(length)); err != nil {
		panic(fmt.Sprintf("ftruncate for region %q (%#x bytes) failed: %v", name, length, err))
	}

	hostAddr := uintptr(ArenaBase + uint64(addr))
	buf := mmapFixed(fd, hostAddr, length)

	return &Region{name: name, addr: addr, len: length, buf: buf, fd: fd}
}

// mmapFixed maps fd at the exact host virtual address want, using MAP_FIXED.
// unix.Mmap does not expose a caller-chosen address, so this goes straight
// through the raw syscall the way any Go program requiring a pinned mapping
// must (there is no pack dependency wrapping MAP_FIXED mmap).
func mmapFixed(fd int, want uintptr, length int) []byte {
	addr, _, errno := unix.Syscall6(unix.SYS_MMAP, want, uintptr(length),
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_SHARED|unix.MAP_FIXED, uintptr(fd), 0)
	if errno != 0 {
		panic(fmt.Sprintf("mmap(MAP_FIXED) at %#x failed: %v", want, errno))
	}
	if addr != want {
		panic(fmt.Sprintf("mmap(MAP_FIXED) returned %#x, wanted %#x", addr, want))
	}
	return unsafeBytes(addr, length)
}

// unsafeBytes reinterprets the length bytes at addr as a Go byte slice. The
// memory is owned by the kernel mapping made above, not the Go allocator, so
// this slice must never be appended to or allowed to outlive the mapping.
func unsafeBytes(addr uintptr, length int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), length)
}

// WriteBuf copies buf into the region starting at guest offset off.
func (r *Region) WriteBuf(off uint32, buf []byte) {
	copy(r.buf[off:int(off)+len(buf)], buf)
}

// Read8 reads a single byte at guest offset off.
func (r *Region) Read8(off uint32) uint8 { return r.buf[off] }

// Read16 reads a big-endian 16-bit value at guest offset off. Guest
// fetches are always big-endian (spec.md §6), independent of how
// generated fast-memory accesses are encoded.
func (r *Region) Read16(off uint32) uint16 {
	return binary.BigEndian.Uint16(r.buf[off : off+2])
}

// Read32 reads a big-endian 32-bit value at guest offset off.
func (r *Region) Read32(off uint32) uint32 {
	return binary.BigEndian.Uint32(r.buf[off : off+4])
}

// Len reports the region's length in bytes.
func (r *Region) Len() int { return r.len }

// NewExecutablePage copies code into a fresh anonymous RWX mapping and
// returns a slice over it. Each recompiled block gets its own mapping
// rather than a shared growable buffer, matching the one-mmap-per-block
// lifetime the original executable-memory crate this was ported from used;
// nothing in this codebase ever frees a block's code, since the
// translation cache keeps it reachable for the process lifetime.
func NewExecutablePage(code []byte) []byte {
	length := len(code)
	if length == 0 {
		panic("NewExecutablePage: empty code")
	}
	addr, _, errno := unix.Syscall6(unix.SYS_MMAP, 0, uintptr(length),
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS, ^uintptr(0), 0)
	if errno != 0 {
		panic(fmt.Sprintf("mmap(anonymous executable, %#x bytes) failed: %v", length, errno))
	}
	mapped := unsafeBytes(addr, length)
	copy(mapped, code)
	return mapped
}
