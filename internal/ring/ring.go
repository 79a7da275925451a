// Package ring implements the wait-free single-producer/single-consumer
// byte ring that uberlog uses to hand records from the producer process to
// the writer process across a shared memory mapping.
//
// The ring occupies a contiguous region of Size+HeadSize bytes: the first
// Size bytes are the data area, and the trailing HeadSize bytes hold two
// word-sized cursors, read and write, in that order. Size must be a power
// of two; one byte of the data area is permanently reserved so that the
// empty and full states never collide (AvailableForWrite is Size-1 at
// most).
//
// Exactly one goroutine (or process) may call the Write* methods, and
// exactly one may call the Read* methods. The cursors are the only shared
// state, and each has exactly one writer, so no lock is needed: the
// producer publishes payload bytes by storing the write cursor with
// atomic.StoreUint64 only after every byte has been copied, and the
// consumer loads it with atomic.LoadUint64 before touching payload bytes.
// Go's atomic package gives these the sequentially-consistent ordering the
// protocol needs (a superset of the acquire/release it requires).
package ring

import (
	"fmt"
	"sync/atomic"
)

// HeadSize is the number of trailing bytes reserved for the read and write
// cursors, each a uint64.
const HeadSize = 16

// Ring is a view over a mapped byte region. It holds no data of its own;
// Init binds it to memory that the caller owns (and, for cross-process use,
// that a second Ring in another process is bound to as well).
type Ring struct {
	mem  []byte // the full mapped region: data area followed by the two cursors
	rp   *uint64
	wp   *uint64
	size uint64
	mask uint64
}

// New binds a Ring to mem, which must be addressable for at least
// size+HeadSize bytes. size must be a power of two; New panics otherwise,
// since a non-power-of-two ring size is a programming error, not a runtime
// condition callers can recover from. If reset is true, both cursors are
// zeroed; pass false when attaching to a ring a peer process already
// initialized.
func New(mem []byte, size uint64, reset bool) *Ring {
	if size == 0 || size&(size-1) != 0 {
		panic(fmt.Sprintf("ring: size %d is not a power of two", size))
	}
	if uint64(len(mem)) < size+HeadSize {
		panic(fmt.Sprintf("ring: backing buffer too small: have %d, need %d", len(mem), size+HeadSize))
	}

	r := &Ring{
		mem:  mem,
		rp:   (*uint64)(ptrAt(mem, size)),
		wp:   (*uint64)(ptrAt(mem, size+8)),
		size: size,
		mask: size - 1,
	}
	if reset {
		atomic.StoreUint64(r.rp, 0)
		atomic.StoreUint64(r.wp, 0)
	}
	return r
}

// Size returns the ring's data-area capacity (excludes the cursor region).
func (r *Ring) Size() uint64 { return r.size }

// MaxAvailableForWrite is the most that can ever be enqueued atomically:
// one byte of the data area is permanently unusable, to keep the empty and
// full states distinguishable.
func (r *Ring) MaxAvailableForWrite() uint64 { return r.size - 1 }

func (r *Ring) readPos() uint64  { return atomic.LoadUint64(r.rp) }
func (r *Ring) writePos() uint64 { return atomic.LoadUint64(r.wp) }

// AvailableForRead returns the number of bytes currently queued.
func (r *Ring) AvailableForRead() uint64 {
	return (r.writePos() - r.readPos()) & r.mask
}

// AvailableForWrite returns the number of bytes that can be enqueued right
// now without blocking.
func (r *Ring) AvailableForWrite() uint64 {
	return r.size - 1 - r.AvailableForRead()
}

// Write copies data into the ring at the current write position and
// advances the write cursor by len bytes, publishing it with a single
// atomic store. If data is nil, no bytes are copied and the cursor is
// simply advanced by len — used to commit bytes already placed by one or
// more prior WriteNoCommit calls. Write panics if len exceeds
// AvailableForWrite, since callers must never be able to overrun the ring.
func (r *Ring) Write(data []byte, n int) {
	if uint64(n) > r.AvailableForWrite() {
		panic("ring: attempt to write more than available bytes")
	}
	if data != nil {
		r.writeNoCommitLocked(0, data, n)
	}
	atomic.StoreUint64(r.wp, (r.writePos()+uint64(n))&r.mask)
}

// WriteNoCommit copies data into the ring at writePos+offset without
// advancing the write cursor. It is used to lay down a frame in more than
// one piece — header, then payload — before a single Write(nil, total)
// publishes the whole frame atomically. WriteNoCommit panics if
// offset+len exceeds AvailableForWrite.
func (r *Ring) WriteNoCommit(offset int, data []byte, n int) {
	if uint64(offset+n) > r.AvailableForWrite() {
		panic("ring: attempt to write more than available bytes")
	}
	r.writeNoCommitLocked(offset, data, n)
}

func (r *Ring) writeNoCommitLocked(offset int, data []byte, n int) {
	pos := (r.writePos() + uint64(offset)) & r.mask
	if pos+uint64(n) > r.size {
		first := r.size - pos
		copy(r.mem[pos:r.size], data[:first])
		copy(r.mem[0:uint64(n)-first], data[first:n])
	} else {
		copy(r.mem[pos:pos+uint64(n)], data[:n])
	}
}

// Read copies up to min(len(dst), AvailableForRead()) bytes into dst,
// advances the read cursor by that amount, and returns the number of bytes
// copied. If dst is nil, no bytes are copied but the cursor still advances
// by that many bytes — used to commit a prior ReadNoCopy.
func (r *Ring) Read(dst []byte, maxLen int) int {
	avail := r.AvailableForRead()
	n := uint64(maxLen)
	if n > avail {
		n = avail
	}
	if dst != nil {
		pos := r.readPos() & r.mask
		if pos+n > r.size {
			first := r.size - pos
			copy(dst, r.mem[pos:r.size])
			copy(dst[first:], r.mem[0:n-first])
		} else {
			copy(dst, r.mem[pos:pos+n])
		}
	}
	atomic.StoreUint64(r.rp, (r.readPos()+n)&r.mask)
	return int(n)
}

// ReadNoCopy returns up to two contiguous slices into the mapped region
// that together hold the next n readable bytes. Unlike Read, it does not
// advance the read cursor: the caller must follow up with Read(nil, n) to
// commit once it is done with the spans. This lets a caller hand the
// mapped bytes straight to an io.Writer without an intermediate copy,
// while still being free to defer the commit until after that write
// succeeds. The spans alias the mapped memory and are invalidated by any
// subsequent write that wraps over them. ReadNoCopy panics if n exceeds
// AvailableForRead.
func (r *Ring) ReadNoCopy(n int) (p1, p2 []byte) {
	if uint64(n) > r.AvailableForRead() {
		panic("ring: attempt to read more than available bytes")
	}
	pos := r.readPos() & r.mask
	if pos+uint64(n) <= r.size {
		p1 = r.mem[pos : pos+uint64(n)]
	} else {
		firstLen := r.size - pos
		p1 = r.mem[pos:r.size]
		p2 = r.mem[0 : uint64(n)-firstLen]
	}
	return p1, p2
}

// SizeFromRingCapacity returns the byte length a backing allocation must
// have to hold a ring of the given data-area capacity, rounded up to a
// 4KiB page boundary as the spec's shared-memory region layout requires.
func SizeFromRingCapacity(capacity uint64) uint64 {
	total := capacity + HeadSize
	const page = 4096
	return (total + page - 1) &^ (page - 1)
}

// RoundUpToPowerOfTwo returns the smallest power of two >= v (minimum 1).
func RoundUpToPowerOfTwo(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	x := uint64(1)
	for x < v {
		x <<= 1
	}
	return x
}
