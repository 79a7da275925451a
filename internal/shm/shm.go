// Package shm derives the shared memory object name uberlog uses to join
// a producer process to its writer process, computes the mapped region
// size for a given ring capacity, and opens/creates/closes that region
// through platform-specific files (shm_unix.go, shm_windows.go).
package shm

import (
	"fmt"

	"github.com/IMQS/uberlog/internal/ring"
)

// key1 and key2 are the two fixed SipHash-2-4 keys used to derive a shared
// memory object name. Only key1's first four bytes are overwritten with
// the parent process ID before hashing; key2 is used unmodified. Two
// differently-keyed hashes of the same path are concatenated so the name
// has enough entropy to avoid collisions between log files that happen to
// share a parent PID.
var (
	key1 = [16]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	key2 = [16]byte{15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0}
)

// Name derives the shared memory object name for a producer with the
// given PID logging to absLogPath. Both ends of a session compute this
// independently from the same two inputs, so no name ever needs to be
// passed over the producer/writer argv beyond the PID and path that
// already travel there for other reasons.
func Name(parentPID uint32, absLogPath string) string {
	k1 := key1
	k1[0] = byte(parentPID)
	k1[1] = byte(parentPID >> 8)
	k1[2] = byte(parentPID >> 16)
	k1[3] = byte(parentPID >> 24)

	path := []byte(absLogPath)
	h1 := siphash24(k1, path)
	h2 := siphash24(key2, path)

	return fmt.Sprintf("uberlog-shm-%d-%08x%08x%08x%08x",
		parentPID,
		uint32(h1>>32), uint32(h1),
		uint32(h2>>32), uint32(h2))
}

// RegionSize returns the number of bytes a mapped region must hold for a
// ring of the given data-area capacity, rounded up to a 4KiB page.
func RegionSize(ringCapacity uint64) uint64 {
	return ring.SizeFromRingCapacity(ringCapacity)
}

// Region is a mapped shared memory object, plus the bookkeeping needed to
// unmap (and, for the creating side, unlink) it on Close.
type Region struct {
	Mem    []byte
	name   string
	closer func() error
}

// Create exclusively creates and maps a fresh region of size bytes. It is
// the producer's call: the producer owns the region's lifetime and is the
// side that unlinks it again on Close.
func Create(name string, size uint64) (*Region, error) {
	mem, closer, err := platformCreate(name, size)
	if err != nil {
		return nil, err
	}
	return &Region{Mem: mem, name: name, closer: closer}, nil
}

// Open attaches to an already-created region of at least size bytes. It
// is the writer's call: Open fails if the region does not exist yet, and
// the writer is expected to retry on every drain-loop iteration until the
// producer has created it.
func Open(name string, size uint64) (*Region, error) {
	mem, closer, err := platformOpen(name, size)
	if err != nil {
		return nil, err
	}
	return &Region{Mem: mem, name: name, closer: closer}, nil
}

// Close unmaps the region. The side that created it also unlinks the
// underlying shared memory object so it does not outlive either process;
// the attaching side only unmaps, leaving the object for its creator to
// remove.
func (r *Region) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer()
	r.closer = nil
	return err
}
