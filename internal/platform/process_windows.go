//go:build windows

package platform

import (
	"time"

	"golang.org/x/sys/windows"
)

// WatchParentDeath opens a wait handle on parentPID and blocks on it;
// Windows signals the handle the instant the process exits, so this
// resolves immediately rather than on the next poll tick. If the parent
// has already exited by the time OpenProcess runs, the open itself fails
// and death is reported right away. interval is unused here — it exists
// only so callers can share one signature with the unix poll-based
// implementation.
func WatchParentDeath(parentPID int, interval time.Duration) <-chan struct{} {
	died := make(chan struct{})
	go func() {
		h, err := windows.OpenProcess(windows.SYNCHRONIZE, false, uint32(parentPID))
		if err != nil {
			close(died)
			return
		}
		defer windows.CloseHandle(h)
		windows.WaitForSingleObject(h, windows.INFINITE)
		close(died)
	}()
	return died
}
