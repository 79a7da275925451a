package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/IMQS/uberlog/internal/prefix"
)

func newTestLogFile(t *testing.T, maxSize int64, maxArchives int) (*LogFile, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	clock := prefix.NewTimeKeeper()
	t.Cleanup(clock.Stop)

	lf := NewLogFile(path, maxSize, maxArchives, clock)
	if err := lf.Open(); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { lf.Close() })
	return lf, path
}

func TestLogFileWriteAccumulatesSize(t *testing.T) {
	lf, path := newTestLogFile(t, 1<<20, 3)
	lf.Write([]byte("hello\n"))
	lf.Write([]byte("world\n"))

	if lf.Size() != 12 {
		t.Fatalf("Size() = %d, want 12", lf.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello\nworld\n" {
		t.Fatalf("file contents = %q", data)
	}
}

func TestLogFileOversizedFrameOnEmptyFileDoesNotRoll(t *testing.T) {
	lf, path := newTestLogFile(t, 4, 3)
	lf.Write([]byte("this is longer than maxSize"))

	dir := filepath.Dir(path)
	matches, _ := filepath.Glob(filepath.Join(dir, "test-*.log"))
	if len(matches) != 0 {
		t.Fatalf("expected no archive to be created, got %v", matches)
	}
	if lf.Size() == 0 {
		t.Fatal("expected the oversized frame to still be written")
	}
}

func TestLogFileRollsOverPastMaxSize(t *testing.T) {
	lf, path := newTestLogFile(t, 10, 3)
	lf.Write([]byte("0123456789")) // exactly fills the active file
	lf.Write([]byte("next"))       // pushes size+len over maxSize, must roll first

	if lf.Size() != 4 {
		t.Fatalf("Size() after rollover = %d, want 4", lf.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "next" {
		t.Fatalf("active file contents = %q, want %q", data, "next")
	}

	dir := filepath.Dir(path)
	matches, _ := filepath.Glob(filepath.Join(dir, "test-*.log"))
	if len(matches) != 1 {
		t.Fatalf("expected exactly one archive, got %v", matches)
	}
	archived, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("ReadFile(archive): %v", err)
	}
	if string(archived) != "0123456789" {
		t.Fatalf("archived contents = %q, want %q", archived, "0123456789")
	}
}

func TestLogFilePrunesOldestArchives(t *testing.T) {
	lf, path := newTestLogFile(t, 1, 2)
	for i := 0; i < 5; i++ {
		lf.Write([]byte("xx"))
	}

	dir := filepath.Dir(path)
	matches, _ := filepath.Glob(filepath.Join(dir, "test-*.log"))
	if len(matches) > 2 {
		t.Fatalf("expected at most 2 archives, got %d: %v", len(matches), matches)
	}
}
