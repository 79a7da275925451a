// Package writer implements the writer (slave) process's drain engine:
// attaching to a producer's ring, consuming frames, coalescing them into
// log file writes, rotating the file, and exiting once the producer asks
// it to or is detected as dead.
package writer

import (
	"fmt"
	"time"

	"github.com/IMQS/uberlog/internal/diag"
	"github.com/IMQS/uberlog/internal/platform"
	"github.com/IMQS/uberlog/internal/prefix"
	"github.com/IMQS/uberlog/internal/ring"
	"github.com/IMQS/uberlog/internal/shm"
	"github.com/IMQS/uberlog/internal/wire"
)

const (
	writeBufSize       = 1024
	maxSleepMS         = 1024
	waitForOpenSleepMS = 1
	parentPollInterval = time.Millisecond
)

// Slave is the writer process's drain engine.
type Slave struct {
	ringName string
	ringCap  uint64
	logFile  *LogFile
	clock    *prefix.TimeKeeper
	debug    bool

	region   *shm.Region
	buf      *ring.Ring
	attached bool

	writeBuf    [writeBufSize]byte
	writeBufLen int
	sleepMS     int

	receivedClose bool
	parentDead    <-chan struct{}
}

// NewSlave builds a Slave for the ring identified by (parentPID, logPath)
// — the same two inputs the producer used to name its ring, so both ends
// derive the same shared memory object name independently.
func NewSlave(parentPID int, ringCapacity uint64, logPath string, maxFileBytes int64, maxArchives int) *Slave {
	clock := prefix.NewTimeKeeper()
	return &Slave{
		ringName:   shm.Name(uint32(parentPID), logPath),
		ringCap:    ringCapacity,
		logFile:    NewLogFile(logPath, maxFileBytes, maxArchives, clock),
		clock:      clock,
		parentDead: platform.WatchParentDeath(parentPID, parentPollInterval),
	}
}

// Run opens the log file, then drains the ring until it sees a Close
// frame or its parent process dies, running one final drain pass before
// returning so that anything committed right before either event is not
// lost.
func (s *Slave) Run() error {
	if err := s.logFile.Open(); err != nil {
		return err
	}
	defer s.logFile.Close()
	defer s.clock.Stop()
	defer s.detach()

	for {
		if !s.attached {
			s.tryAttach()
		}

		sawWork := false
		if s.attached {
			sawWork = s.readMessages() > 0
		}

		if s.receivedClose || s.parentIsDead() {
			break
		}

		s.sleep(sawWork)
	}

	if s.attached {
		s.readMessages()
	}
	return nil
}

func (s *Slave) tryAttach() {
	region, err := shm.Open(s.ringName, shm.RegionSize(s.ringCap))
	if err != nil {
		return
	}
	s.region = region
	s.buf = ring.New(region.Mem, s.ringCap, false)
	s.attached = true
	s.debugf("attached to ring %s", s.ringName)
}

func (s *Slave) detach() {
	if s.region != nil {
		s.region.Close()
	}
}

func (s *Slave) parentIsDead() bool {
	select {
	case <-s.parentDead:
		return true
	default:
		return false
	}
}

func (s *Slave) sleep(sawWork bool) {
	if !s.attached {
		time.Sleep(waitForOpenSleepMS * time.Millisecond)
		return
	}
	if sawWork {
		s.sleepMS = 0
		return
	}
	if s.sleepMS == 0 {
		s.sleepMS = 1
	} else {
		s.sleepMS *= 2
		if s.sleepMS > maxSleepMS {
			s.sleepMS = maxSleepMS
		}
	}
	time.Sleep(time.Duration(s.sleepMS) * time.Millisecond)
}

// readMessages is non-blocking: it drains every frame currently available
// without waiting for more, and returns the number of LogMsg frames
// consumed.
func (s *Slave) readMessages() int {
	count := 0
	var headBuf [wire.HeadSize]byte

	for s.buf.AvailableForRead() >= wire.HeadSize {
		s.buf.Read(headBuf[:], wire.HeadSize)
		head := wire.Decode(headBuf[:])

		switch head.Command() {
		case wire.CmdClose:
			s.receivedClose = true
		case wire.CmdLogMsg:
			s.consumePayload(int(head.PayloadLen))
			count++
		default:
			panic(fmt.Sprintf("writer: unknown command %d on ring", head.Cmd))
		}
	}

	s.flush()
	return count
}

// consumePayload routes one LogMsg's payload either through the
// coalescing write buffer, or — when it is larger than the buffer itself
// — straight from the mapped region via a zero-copy view.
func (s *Slave) consumePayload(n int) {
	if n <= writeBufSize {
		if s.writeBufLen+n > writeBufSize {
			s.flush()
		}
		s.buf.Read(s.writeBuf[s.writeBufLen:s.writeBufLen+n], n)
		s.writeBufLen += n
		return
	}

	s.flush()
	p1, p2 := s.buf.ReadNoCopy(n)
	if len(p1) > 0 {
		s.logFile.Write(p1)
	}
	if len(p2) > 0 {
		s.logFile.Write(p2)
	}
	s.buf.Read(nil, n)
}

func (s *Slave) flush() {
	if s.writeBufLen == 0 {
		return
	}
	s.logFile.Write(s.writeBuf[:s.writeBufLen])
	s.writeBufLen = 0
}

func (s *Slave) debugf(format string, args ...any) {
	if s.debug {
		diag.Warn("uberlog(writer): "+format+"\n", args...)
	}
}

// enableDebug turns on the writer's lifecycle tracing. It has no flag or
// argv hook of its own — the writer process is always quiet — this exists
// only for this package's own tests to exercise debugf.
func (s *Slave) enableDebug() {
	s.debug = true
}
