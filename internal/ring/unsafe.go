package ring

import "unsafe"

// ptrAt returns a pointer to mem[off], used to overlay the two cursor
// fields onto the tail of the mapped region. Callers are responsible for
// ensuring off+8 <= len(mem) and that mem is suitably aligned — true for
// memory returned by mmap/VirtualAlloc, which is always page-aligned.
func ptrAt(mem []byte, off uint64) unsafe.Pointer {
	return unsafe.Pointer(&mem[off])
}
