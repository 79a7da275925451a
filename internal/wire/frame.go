// Package wire defines the frame format carried over the ring between the
// producer and the writer process: a fixed 16-byte header followed by an
// opaque payload of PayloadLen bytes.
package wire

import "encoding/binary"

// Command identifies the kind of frame a MessageHead introduces.
type Command uint32

const (
	// CmdNull is never sent; a zero-valued header read off an uninitialized
	// region decodes to this, and is treated as "nothing here yet".
	CmdNull Command = 0
	// CmdClose tells the writer that the producer is shutting down. The
	// writer keeps draining after seeing it — Close only marks intent, it
	// does not truncate whatever is still queued behind it.
	CmdClose Command = 1
	// CmdLogMsg introduces a log record; PayloadLen bytes of raw record
	// bytes follow the header.
	CmdLogMsg Command = 2
)

// HeadSize is the encoded size of MessageHead on the wire.
const HeadSize = 16

// MessageHead is the fixed-size frame header. Padding exists purely to
// keep the struct's in-memory layout matching its 16-byte wire layout on
// 64-bit platforms; it carries no meaning and is always zero on the wire.
type MessageHead struct {
	Cmd        uint32
	Padding    uint32
	PayloadLen uint64
}

// Encode writes h into buf[:16] in little-endian form. buf must be at
// least HeadSize bytes.
func (h MessageHead) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Cmd)
	binary.LittleEndian.PutUint32(buf[4:8], h.Padding)
	binary.LittleEndian.PutUint64(buf[8:16], h.PayloadLen)
}

// Decode reads a MessageHead out of buf[:16].
func Decode(buf []byte) MessageHead {
	return MessageHead{
		Cmd:        binary.LittleEndian.Uint32(buf[0:4]),
		Padding:    binary.LittleEndian.Uint32(buf[4:8]),
		PayloadLen: binary.LittleEndian.Uint64(buf[8:16]),
	}
}

// Command returns h's command as the Command type.
func (h MessageHead) Command() Command { return Command(h.Cmd) }
