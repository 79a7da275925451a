package uberlog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/IMQS/uberlog/internal/ring"
	"github.com/IMQS/uberlog/internal/wire"
)

// roundTripRing drives capacity through a producer/consumer cycle without
// any shared memory or subprocess involved, writing each payload in sizes
// as a frame and draining it immediately, the same way the producer and
// writer halves of the real protocol exchange frames over the ring.
func roundTripRing(t *testing.T, capacity uint64, sizes []int, iterations int) {
	t.Helper()
	mem := make([]byte, capacity+ring.HeadSize)
	r := ring.New(mem, capacity, true)

	var headBuf [wire.HeadSize]byte
	for i := 0; i < iterations; i++ {
		for _, size := range sizes {
			payload := make([]byte, size)
			for j := range payload {
				payload[j] = byte((i + j) % 251)
			}

			head := wire.MessageHead{Cmd: uint32(wire.CmdLogMsg), PayloadLen: uint64(size)}
			head.Encode(headBuf[:])
			r.WriteNoCommit(0, headBuf[:], wire.HeadSize)
			r.WriteNoCommit(wire.HeadSize, payload, size)
			r.Write(nil, wire.HeadSize+size)

			var gotHead [wire.HeadSize]byte
			r.Read(gotHead[:], wire.HeadSize)
			decoded := wire.Decode(gotHead[:])
			if decoded.Command() != wire.CmdLogMsg || int(decoded.PayloadLen) != size {
				t.Fatalf("iteration %d size %d: decoded header %+v", i, size, decoded)
			}

			got := make([]byte, size)
			r.Read(got, size)
			if !bytes.Equal(got, payload) {
				t.Fatalf("iteration %d size %d: payload mismatch", i, size)
			}
		}
	}

	if got := r.AvailableForRead(); got != 0 {
		t.Fatalf("ring not fully drained: %d bytes remain", got)
	}
}

func TestRingRoundTripSmallCapacityManySizes(t *testing.T) {
	roundTripRing(t, 512, []int{1, 2, 3, 59, 113, 307}, 1000)
}

func TestRingRoundTripLargeCapacityManySizes(t *testing.T) {
	roundTripRing(t, 8192, []int{1, 2, 3, 59, 113, 307, 709, 5297}, 1000)
}

func TestRingExactMaxFrameFits(t *testing.T) {
	const capacity = 1024
	mem := make([]byte, capacity+ring.HeadSize)
	r := ring.New(mem, capacity, true)

	maxPayload := int(r.MaxAvailableForWrite()) - wire.HeadSize
	payload := bytes.Repeat([]byte{0xAB}, maxPayload)

	head := wire.MessageHead{Cmd: uint32(wire.CmdLogMsg), PayloadLen: uint64(maxPayload)}
	var headBuf [wire.HeadSize]byte
	head.Encode(headBuf[:])
	r.WriteNoCommit(0, headBuf[:], wire.HeadSize)
	r.WriteNoCommit(wire.HeadSize, payload, maxPayload)
	r.Write(nil, wire.HeadSize+maxPayload)

	if got := r.AvailableForRead(); got != uint64(wire.HeadSize+maxPayload) {
		t.Fatalf("AvailableForRead() = %d, want %d", got, wire.HeadSize+maxPayload)
	}
}

func TestRingOneByteOverMaxFramePanics(t *testing.T) {
	const capacity = 1024
	mem := make([]byte, capacity+ring.HeadSize)
	r := ring.New(mem, capacity, true)

	maxPayload := int(r.MaxAvailableForWrite()) - wire.HeadSize
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic writing one byte past the max single frame")
		}
	}()
	r.Write(make([]byte, wire.HeadSize+maxPayload+1), wire.HeadSize+maxPayload+1)
}

// TestLogRawTruncatesOversizedRecord exercises the producer-side truncation
// path in logRawLocked, which requires a real ring behind an open Logger
// rather than OpenStdOut's bypass.
func TestLogRawTruncatesOversizedRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "truncate.log")
	writerPath := buildWriterBinary(t)

	l := NewLogger()
	l.SetLoggerProgramPath(writerPath)
	l.SetRingBufferSize(4096)
	if err := l.Open(path); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer l.Close()

	maxFrame := l.buf.MaxAvailableForWrite() - wire.HeadSize
	oversized := bytes.Repeat([]byte{'z'}, int(maxFrame)+1)

	l.LogRaw(oversized)
	// This is the session's first message, so LogRaw has already waited for
	// the writer to drain the ring; the truncated record is checked in the
	// file the writer produced instead.
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if uint64(len(data)) != maxFrame {
		t.Fatalf("log file holds %d bytes, want the truncated record of %d bytes", len(data), maxFrame)
	}
}
