package uberlog

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevelAndLevelChar(t *testing.T) {
	cases := []struct {
		in   string
		want Level
		ch   byte
	}{
		{"debug", Debug, 'D'},
		{"Info", Info, 'I'},
		{"W", Warn, 'W'},
		{"error", Error, 'E'},
		{"fatal", Fatal, 'F'},
		{"", Info, 'N'}, // empty falls back to Info, but LevelChar(Info) is 'I'; checked separately below
	}
	for _, c := range cases[:len(cases)-1] {
		if got := ParseLevel(c.in); got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
		if got := LevelChar(c.want); got != c.ch {
			t.Errorf("LevelChar(%v) = %c, want %c", c.want, got, c.ch)
		}
	}
	if got := ParseLevel(""); got != Info {
		t.Errorf("ParseLevel(\"\") = %v, want Info", got)
	}
	if got := LevelChar(Level(99)); got != 'N' {
		t.Errorf("LevelChar(unknown) = %c, want N", got)
	}
}

func TestLoggerGetFilenameBeforeOpen(t *testing.T) {
	l := NewLogger()
	if got := l.GetFilename(); got != "" {
		t.Errorf("GetFilename() before Open = %q, want \"\"", got)
	}
}

func TestLoggerDefaultLevelIsInfo(t *testing.T) {
	l := NewLogger()
	if got := l.GetLevel(); got != Info {
		t.Errorf("GetLevel() = %v, want Info", got)
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	w.Close()
	var buf strings.Builder
	io.Copy(&buf, r)
	return buf.String()
}

func TestOpenStdOutFormatsLevelAndMessage(t *testing.T) {
	out := captureStdout(t, func() {
		l := NewLogger()
		if err := l.OpenStdOut(); err != nil {
			t.Fatalf("OpenStdOut() error: %v", err)
		}
		l.Info("hello %s", "world")
		l.Close()
	})

	if !strings.Contains(out, "[I]") {
		t.Errorf("output missing level marker: %q", out)
	}
	if !strings.Contains(out, "hello world") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.HasSuffix(out, eol) {
		t.Errorf("output does not end with the platform eol: %q", out)
	}
}

func TestOpenStdOutPrefixLength(t *testing.T) {
	out := captureStdout(t, func() {
		l := NewLogger()
		l.OpenStdOut()
		l.Info("x")
		l.Close()
	})
	line := strings.TrimSuffix(out, eol)
	// 28-byte timestamp + " [" + level + "] " + 8 hex digits + " " = 42.
	if len(line) < 42 {
		t.Fatalf("line %q shorter than the fixed 42-byte prefix", line)
	}
	prefix := line[:42]
	if prefix[10] != 'T' {
		t.Errorf("prefix[10] = %c, want 'T' separating date and time", prefix[10])
	}
	if prefix[29] != '[' || prefix[31] != ']' {
		t.Errorf("prefix does not carry [X] level bracket at the expected offset: %q", prefix)
	}
}

func TestLogBelowLevelIsDropped(t *testing.T) {
	out := captureStdout(t, func() {
		l := NewLogger()
		l.OpenStdOut()
		l.SetLevel(Warn)
		l.Info("should not appear")
		l.Warn("should appear")
		l.Close()
	})
	if strings.Contains(out, "should not appear") {
		t.Errorf("Info record was not filtered out: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("Warn record missing: %q", out)
	}
}

func TestLogRawBeforeOpenWarnsAndDoesNotPanic(t *testing.T) {
	l := NewLogger()
	l.LogRaw([]byte("dropped"))
}

func TestTeeStdOutDuplicatesToStdout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tee.log")

	writerPath := buildWriterBinary(t)

	out := captureStdout(t, func() {
		l := NewLogger()
		l.SetLoggerProgramPath(writerPath)
		l.TeeStdOut.Store(true)
		if err := l.Open(path); err != nil {
			t.Fatalf("Open() error: %v", err)
		}
		l.Info("teed message")
		l.Close()
	})

	if !strings.Contains(out, "teed message") {
		t.Errorf("TeeStdOut did not mirror the record to stdout: %q", out)
	}
}

func TestOpenWriteCloseProducesLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writerPath := buildWriterBinary(t)

	l := NewLogger()
	l.SetLoggerProgramPath(writerPath)
	if err := l.Open(path); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if got := l.GetFilename(); got != path {
		t.Errorf("GetFilename() = %q, want %q", got, path)
	}

	for i := 0; i < 50; i++ {
		l.Info("line %d", i)
	}
	l.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("log file was not created: %v", err)
	}
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if sc.Text() == "" {
			continue
		}
		lines++
	}
	if lines != 50 {
		t.Fatalf("log file has %d lines, want 50", lines)
	}
}

// buildWriterBinary compiles the real writer process binary into a temp
// directory and returns its path, so end-to-end tests exercise the actual
// cross-process path rather than a stand-in. Tests that need it skip
// themselves if the toolchain is unavailable in the environment running
// them.
func buildWriterBinary(t *testing.T) string {
	t.Helper()
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not available to build the writer binary")
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "uberlogwriter")
	cmd := exec.Command(goBin, "build", "-o", out, "./cmd/uberlogwriter")
	cmd.Dir = repoRoot(t)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not build uberlogwriter: %v\n%s", err, output)
	}
	return out
}

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	return wd
}
