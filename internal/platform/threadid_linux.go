//go:build linux

package platform

import "syscall"

// ThreadID returns the calling OS thread's id, used verbatim in the
// record prefix. Because the producer serialises log_raw with a mutex,
// this is purely decorative correlation data, not a concurrency
// primitive — but the wire format still reserves 8 hex digits for it.
func ThreadID() uint32 {
	return uint32(syscall.Gettid())
}
