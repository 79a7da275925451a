//go:build windows

package platform

import "golang.org/x/sys/windows"

// ThreadID returns the calling OS thread's id, used verbatim in the
// record prefix.
func ThreadID() uint32 {
	return windows.GetCurrentThreadId()
}
