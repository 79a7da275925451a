// Package prefix builds the fixed-width timestamp/level/thread-id prefix
// that the producer prepends to every record written through Log/Debug/
// Info/Warn/Error/Fatal, and the UTC timestamp string used to name rolled
// archive log files.
package prefix

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

// TimeKeeper wraps a cached wall clock so that formatting a record's
// timestamp prefix never calls time.Now() directly — on a busy producer
// that call is made once per log line, and go-timecache amortizes it to a
// single atomic load between ticks instead of a syscall per line.
//
// It additionally caches the date and zone portion of the prefix, which
// changes only once a day, behind a small critical section: between any
// two Prefix calls that fall in the same local day, formatting costs one
// nanosecond-clock read and no further date/zone conversion.
type TimeKeeper struct {
	cache *timecache.TimeCache

	mu       sync.Mutex
	dayStart time.Time // local midnight the cached fields were computed for
	dayStr   string    // "YYYY-MM-DD" for dayStart
	zoneStr  string    // "+ZZZZ"/"-ZZZZ" for dayStart
}

// NewTimeKeeper starts a millisecond-resolution cached clock. The
// resolution matches the millisecond field uberlog's own prefix format
// carries, so the cache can never be staler than what the prefix could
// show anyway.
func NewTimeKeeper() *TimeKeeper {
	return &TimeKeeper{cache: timecache.NewWithResolution(time.Millisecond)}
}

// Stop releases the background ticker the cache runs. Call it when the
// owning Logger closes.
func (k *TimeKeeper) Stop() {
	k.cache.Stop()
}

// Prefix returns the fixed 42-byte
// "YYYY-MM-DDThh:mm:ss.mmm+ZZZZ [X] tttttttt " prefix for level at the
// current cached time, where X is level's single character and tid is
// rendered as 8 lowercase hex digits. Producers that want a different
// shape should use LogRaw instead of the leveled methods.
func (k *TimeKeeper) Prefix(levelChar byte, tid uint32) string {
	t := k.cache.CachedTime()
	dayStr, zoneStr := k.dayFields(t)
	return fmt.Sprintf("%sT%s%s [%c] %08x ", dayStr, t.Format("15:04:05.000"), zoneStr, levelChar, tid)
}

// dayFields returns the date and zone strings for t, recomputing them
// only when t has crossed local midnight since the last call.
func (k *TimeKeeper) dayFields(t time.Time) (string, string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.dayStr == "" || t.Before(k.dayStart) || !t.Before(k.dayStart.AddDate(0, 0, 1)) {
		y, m, d := t.Date()
		k.dayStart = time.Date(y, m, d, 0, 0, 0, 0, t.Location())
		k.dayStr = fmt.Sprintf("%04d-%02d-%02d", y, m, d)
		k.zoneStr = t.Format("-0700")
	}
	return k.dayStr, k.zoneStr
}

// ArchiveStamp returns the UTC timestamp uberlog splices into a rolled
// log file's name: "-YYYY-MM-DDThh-mm-ss-mmm-Z". It is always computed in
// UTC regardless of the process's local zone, because archive filenames
// must sort correctly regardless of where the writer process runs.
func (k *TimeKeeper) ArchiveStamp() string {
	t := k.cache.CachedTime().UTC()
	return fmt.Sprintf("-%04d-%02d-%02dT%02d-%02d-%02d-%03d-Z",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1e6)
}
