package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/IMQS/uberlog/internal/diag"
	"github.com/IMQS/uberlog/internal/prefix"
)

// LogFile owns the on-disk file the writer process appends records to,
// including size tracking and rollover into timestamped archives.
type LogFile struct {
	path        string // absolute path to the active file
	base        string // path without its final extension
	ext         string // path's final extension, including the dot, or ""
	maxSize     int64
	maxArchives int
	clock       *prefix.TimeKeeper

	f    *os.File
	size int64
}

// NewLogFile builds a LogFile for path, rolling over into archives once
// size exceeds maxSize bytes and keeping at most maxArchives of them.
func NewLogFile(path string, maxSize int64, maxArchives int, clock *prefix.TimeKeeper) *LogFile {
	ext := filepath.Ext(path)
	return &LogFile{
		path:        path,
		base:        strings.TrimSuffix(path, ext),
		ext:         ext,
		maxSize:     maxSize,
		maxArchives: maxArchives,
		clock:       clock,
	}
}

// Open opens (creating if necessary) the active file for appending and
// records its current size.
func (l *LogFile) Open() error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("logfile: open %s: %w", l.path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("logfile: stat %s: %w", l.path, err)
	}
	l.f = f
	l.size = fi.Size()
	return nil
}

// Close closes the active file, if open.
func (l *LogFile) Close() error {
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// Size returns the active file's current on-disk size.
func (l *LogFile) Size() int64 { return l.size }

// Write appends data, rolling over first if it would take the active
// file's size past maxSize. A single frame larger than maxSize is still
// written in full when the active file is already empty — there is
// nothing to roll in that case, so the frame simply produces an
// over-sized active file.
func (l *LogFile) Write(data []byte) {
	if l.size > 0 && l.size+int64(len(data)) > l.maxSize {
		if err := l.rollover(); err != nil {
			diag.Warn("uberlog: rollover of %s failed: %v\n", l.path, err)
		}
	}
	l.writeRetry(data)
}

func (l *LogFile) writeRetry(data []byte) {
	if l.f == nil {
		diag.Warn("uberlog: no open file, dropping frame for %s\n", l.path)
		return
	}
	n, err := l.f.Write(data)
	if err == nil {
		l.size += int64(n)
		return
	}

	l.f.Close()
	f, openErr := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if openErr != nil {
		diag.Warn("uberlog: reopen %s after write failure failed: %v\n", l.path, openErr)
		l.f = nil
		return
	}
	l.f = f
	n, err = l.f.Write(data)
	if err != nil {
		diag.Warn("uberlog: write to %s failed twice, dropping frame: %v\n", l.path, err)
		return
	}
	l.size += int64(n)
}

// rollover closes the active file, renames it to a UTC-timestamped
// archive name, prunes old archives beyond maxArchives, and reopens the
// now-absent base path as a fresh empty file.
func (l *LogFile) rollover() error {
	if err := l.Close(); err != nil {
		return err
	}
	archive := l.base + l.clock.ArchiveStamp() + l.ext
	if err := os.Rename(l.path, archive); err != nil {
		if openErr := l.Open(); openErr != nil {
			return fmt.Errorf("rename failed (%v) and reopen failed (%w)", err, openErr)
		}
		return fmt.Errorf("rename %s to %s: %w", l.path, archive, err)
	}

	l.pruneArchives()
	l.size = 0
	return l.Open()
}

// pruneArchives globs for sibling archives of the active file and deletes
// the oldest ones beyond maxArchives. Archive names sort lexicographically
// in chronological order by construction, so a plain string sort suffices.
func (l *LogFile) pruneArchives() {
	matches, err := filepath.Glob(l.base + "-*" + l.ext)
	if err != nil {
		return
	}
	sort.Strings(matches)
	if len(matches) <= l.maxArchives {
		return
	}
	for _, old := range matches[:len(matches)-l.maxArchives] {
		// Deletion failure is non-fatal and silent: losing an archive we
		// were about to discard anyway is not worth surfacing.
		_ = os.Remove(old)
	}
}
