package uberlog

import (
	"bufio"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IMQS/uberlog/internal/diag"
	"github.com/IMQS/uberlog/internal/format"
	"github.com/IMQS/uberlog/internal/platform"
	"github.com/IMQS/uberlog/internal/prefix"
	"github.com/IMQS/uberlog/internal/ring"
	"github.com/IMQS/uberlog/internal/shm"
	"github.com/IMQS/uberlog/internal/wire"
)

// Level is a log record's severity. A Logger discards any call below its
// currently configured level.
type Level int32

const (
	Debug Level = iota
	Info
	Warn
	Error
	// Fatal panics, with the formatted record as the panic value, after
	// the record has been safely committed to the ring.
	Fatal
)

// LevelChar returns the single character a record's prefix carries for
// lev: one of D, I, W, E, F.
func LevelChar(lev Level) byte {
	switch lev {
	case Debug:
		return 'D'
	case Info:
		return 'I'
	case Warn:
		return 'W'
	case Error:
		return 'E'
	case Fatal:
		return 'F'
	}
	return 'N'
}

// ParseLevel parses a Level from the first character of s, the inverse of
// LevelChar. Unrecognized or empty input returns Info.
func ParseLevel(s string) Level {
	if len(s) == 0 {
		return Info
	}
	switch s[0] {
	case 'D', 'd':
		return Debug
	case 'I', 'i':
		return Info
	case 'W', 'w':
		return Warn
	case 'E', 'e':
		return Error
	case 'F', 'f':
		return Fatal
	}
	return Info
}

const (
	// DefaultRingBufferSize is the ring's data-area capacity until
	// SetRingBufferSize overrides it.
	DefaultRingBufferSize = 1 * 1024 * 1024
	// DefaultMaxFileSize is the active file size, in bytes, that triggers
	// a rollover.
	DefaultMaxFileSize = 30 * 1024 * 1024
	// DefaultMaxNumArchives is the number of rolled archives kept
	// alongside the active file.
	DefaultMaxNumArchives = 3
	// DefaultChildInitTimeout bounds the initial-flush barrier after the
	// first message of a session.
	DefaultChildInitTimeout = 10 * time.Second
	// DefaultCloseTimeout bounds how long Close waits for the writer
	// process to exit before giving up on it.
	DefaultCloseTimeout = 10 * time.Second

	writerBinaryName = "uberlogwriter"
)

// Logger is the producer-side handle applications log through. Construct
// with NewLogger, configure with the Set* methods, then Open. Open and
// Close are meant to run during single-threaded startup/shutdown, as in
// the original; the Log* methods are safe to call from multiple
// goroutines concurrently.
type Logger struct {
	// TeeStdOut, when true, additionally writes every formatted record to
	// this process's own stdout. It has no effect on a Logger opened with
	// OpenStdOut, which already writes to stdout by definition.
	TeeStdOut atomic.Bool

	mu sync.Mutex

	filename          string
	writerProgramPath string
	ringBufferSize    uint64
	maxFileBytes      int64
	maxArchives       int32
	level             atomic.Int32
	childInitTimeout  time.Duration
	closeTimeout      time.Duration

	isOpen             bool
	isStdOutMode       bool
	numLogMessagesSent uint64

	clock  *prefix.TimeKeeper
	region *shm.Region
	buf    *ring.Ring
	child  *exec.Cmd

	stdOutWriter *bufio.Writer
}

// NewLogger constructs an idle Logger with the library's defaults.
func NewLogger() *Logger {
	l := &Logger{
		ringBufferSize:   DefaultRingBufferSize,
		maxFileBytes:     DefaultMaxFileSize,
		maxArchives:      DefaultMaxNumArchives,
		childInitTimeout: DefaultChildInitTimeout,
		closeTimeout:     DefaultCloseTimeout,
	}
	l.level.Store(int32(Info))
	return l
}

// SetRingBufferSize sets the ring's data-area capacity, rounded up to the
// next power of two. Must be called before Open; otherwise it is a no-op
// that emits a warning.
func (l *Logger) SetRingBufferSize(n uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.isOpen {
		diag.Warn("Logger.SetRingBufferSize must be called before Open\n")
		return
	}
	l.ringBufferSize = ring.RoundUpToPowerOfTwo(n)
}

// SetArchiveSettings sets the rollover size and retained archive count.
// Must be called before Open; otherwise it is a no-op that emits a
// warning.
func (l *Logger) SetArchiveSettings(maxFileBytes int64, maxArchiveCount int32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.isOpen {
		diag.Warn("Logger.SetArchiveSettings must be called before Open\n")
		return
	}
	l.maxFileBytes = maxFileBytes
	l.maxArchives = maxArchiveCount
}

// SetLoggerProgramPath overrides the writer binary's path. The path is
// spawned as given: a bare name is looked up on PATH, and any other
// relative path is resolved against the current working directory. The
// default resolves a sibling of the producer's executable, falling back
// to a PATH lookup. Must be called before Open.
func (l *Logger) SetLoggerProgramPath(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.isOpen {
		diag.Warn("Logger.SetLoggerProgramPath must be called before Open\n")
		return
	}
	l.writerProgramPath = path
}

// SetLevel sets the minimum level Log admits. Safe to call at any time.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// SetLevelString sets the minimum level by parsing s with ParseLevel.
func (l *Logger) SetLevelString(s string) {
	l.SetLevel(ParseLevel(s))
}

// GetLevel returns the current minimum level.
func (l *Logger) GetLevel() Level {
	return Level(l.level.Load())
}

// GetFilename returns the absolute path Open resolved, or "" if the
// Logger has never been opened, or was opened with OpenStdOut.
func (l *Logger) GetFilename() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filename
}

// Open resolves path to an absolute path, creates the shared ring, and
// spawns the writer process attached to it. Open is idempotent: calling
// it again on an already-open Logger is a no-op returning nil.
func (l *Logger) Open(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.isOpen {
		return nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		diag.Warn("uberlog: cannot resolve %q to an absolute path: %v\n", path, err)
		return err
	}

	writerPath := l.writerProgramPath
	if writerPath == "" {
		writerPath, err = resolveWriterPath()
		if err != nil {
			diag.Warn("uberlog: cannot locate writer binary: %v\n", err)
			return err
		}
	}

	name := shm.Name(uint32(os.Getpid()), abs)
	region, err := shm.Create(name, shm.RegionSize(l.ringBufferSize))
	if err != nil {
		diag.Warn("uberlog: cannot create shared ring: %v\n", err)
		return err
	}
	buf := ring.New(region.Mem, l.ringBufferSize, true)

	argv := []string{
		writerPath,
		strconv.Itoa(os.Getpid()),
		strconv.FormatUint(l.ringBufferSize, 10),
		abs,
		strconv.FormatInt(l.maxFileBytes, 10),
		strconv.FormatInt(int64(l.maxArchives), 10),
	}
	cmd, err := platform.Spawn(writerPath, argv)
	if err != nil {
		region.Close()
		diag.Warn("uberlog: cannot spawn writer process: %v\n", err)
		return err
	}

	l.filename = abs
	l.region = region
	l.buf = buf
	l.child = cmd
	l.clock = prefix.NewTimeKeeper()
	l.numLogMessagesSent = 0
	l.isOpen = true
	l.isStdOutMode = false
	return nil
}

// OpenStdOut opens the Logger without a log file or writer process: every
// record goes straight to this process's own stdout. It exists for unit
// tests that want uberlog's record formatting without its IPC machinery.
func (l *Logger) OpenStdOut() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.isOpen {
		return nil
	}
	l.clock = prefix.NewTimeKeeper()
	l.stdOutWriter = bufio.NewWriter(os.Stdout)
	l.numLogMessagesSent = 0
	l.isOpen = true
	l.isStdOutMode = true
	return nil
}

// Close frames a Close command, waits (bounded by the close timeout) for
// the writer process to exit, and releases the ring. Close is idempotent.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.isOpen {
		return
	}

	if l.isStdOutMode {
		l.stdOutWriter.Flush()
		l.clock.Stop()
		l.isOpen = false
		return
	}

	l.sendMessage(wire.CmdClose, nil)

	done := make(chan struct{})
	go func() {
		l.child.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(l.closeTimeout):
		diag.Warn("uberlog: timed out waiting for writer process to exit\n")
	}

	l.region.Close()
	l.region = nil
	l.buf = nil
	l.child = nil
	l.clock.Stop()
	l.isOpen = false
}

// LogRaw enqueues data as a LogMsg frame verbatim; no prefix is applied.
func (l *Logger) LogRaw(data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logRawLocked(data)
}

func (l *Logger) logRawLocked(data []byte) {
	if !l.isOpen {
		diag.Warn("Logger.LogRaw called but log is not open\n")
		return
	}

	if l.isStdOutMode {
		l.stdOutWriter.Write(data)
		l.stdOutWriter.Flush()
		return
	}

	maxFrame := l.buf.MaxAvailableForWrite() - wire.HeadSize
	if uint64(len(data)) > maxFrame {
		diag.Warn("uberlog: record of %d bytes exceeds max single frame of %d bytes, truncating\n", len(data), maxFrame)
		data = data[:maxFrame]
	}

	l.sendMessage(wire.CmdLogMsg, data)

	l.numLogMessagesSent++
	if l.numLogMessagesSent == 1 {
		// At process startup it is likely that the writer has not yet
		// attached to the ring; if the producer dies during that window
		// the frame would never be delivered, because the shared region
		// dies with it. Block here until the writer has drained at least
		// once, closing that window for this and every later message.
		if !l.waitForRingToBeEmpty(l.childInitTimeout) {
			diag.Warn("uberlog: timed out waiting for uberlog writer to consume the first log message\n")
		}
	}
}

// sendMessage busy-waits for room, lays down the header and payload with
// two no-commit writes, then publishes both with a single commit. Caller
// must hold l.mu.
func (l *Logger) sendMessage(cmd wire.Command, payload []byte) {
	frameLen := wire.HeadSize + len(payload)
	head := wire.MessageHead{Cmd: uint32(cmd), PayloadLen: uint64(len(payload))}

	spins := 0
	warned := false
	for l.buf.AvailableForWrite() < uint64(frameLen) {
		spins++
		switch {
		case spins <= 1000:
			runtime.Gosched()
		case spins <= 2000:
			time.Sleep(time.Millisecond)
		default:
			time.Sleep(5 * time.Millisecond)
		}
		if spins == 2001 && !warned {
			diag.Warn("uberlog: ring has been full for about 2 seconds, still waiting for the writer to catch up\n")
			warned = true
		}
	}

	var headBuf [wire.HeadSize]byte
	head.Encode(headBuf[:])
	l.buf.WriteNoCommit(0, headBuf[:], wire.HeadSize)
	if len(payload) > 0 {
		l.buf.WriteNoCommit(wire.HeadSize, payload, len(payload))
	}
	l.buf.Write(nil, frameLen)
}

func (l *Logger) waitForRingToBeEmpty(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for l.buf.AvailableForRead() != 0 {
		time.Sleep(time.Millisecond)
		if time.Now().After(deadline) {
			return false
		}
	}
	return true
}

// Log formats spec/args in uberlog's default record layout — a 42-byte
// prefix of timestamp, level and thread id, followed by the user message
// and the platform end-of-line — and enqueues the result. Calls below the
// Logger's current level are dropped before any formatting work happens.
// A Fatal call panics, with the formatted record as the panic value,
// after the record has been committed.
func (l *Logger) Log(level Level, spec string, args ...any) {
	if level < l.GetLevel() {
		return
	}

	l.mu.Lock()
	if !l.isOpen {
		l.mu.Unlock()
		diag.Warn("Logger.Log called but log is not open\n")
		return
	}

	pfx := l.clock.Prefix(LevelChar(level), platform.ThreadID())
	var stack [format.StackBufSize]byte
	line := format.Into(stack[:0:len(stack)], pfx, spec, args...)
	line = append(line, eol...)

	l.logRawLocked(line)
	tee := l.TeeStdOut.Load()
	l.mu.Unlock()

	if tee {
		os.Stdout.Write(line)
	}

	if level == Fatal {
		panic(string(line))
	}
}

func (l *Logger) Debug(spec string, args ...any) { l.Log(Debug, spec, args...) }
func (l *Logger) Info(spec string, args ...any)  { l.Log(Info, spec, args...) }
func (l *Logger) Warn(spec string, args ...any)  { l.Log(Warn, spec, args...) }
func (l *Logger) Error(spec string, args ...any) { l.Log(Error, spec, args...) }
func (l *Logger) Fatal(spec string, args ...any) { l.Log(Fatal, spec, args...) }

// resolveWriterPath locates the uberlogwriter binary: first as a sibling
// of the producer's own executable, then on PATH.
func resolveWriterPath() (string, error) {
	name := writerBinaryName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), name)
		if _, statErr := os.Stat(sibling); statErr == nil {
			return sibling, nil
		}
	}
	return exec.LookPath(name)
}
