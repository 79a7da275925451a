//go:build linux || darwin

package platform

import (
	"syscall"
	"time"
)

// WatchParentDeath polls getppid() every interval and closes the returned
// channel the first time the caller finds itself reparented to PID 0 or
// 1 — unix's signal that the process which spawned it has exited. There
// is no portable unix notification for this, so polling is the only
// option; interval trades detection latency against wakeups.
func WatchParentDeath(parentPID int, interval time.Duration) <-chan struct{} {
	died := make(chan struct{})
	go func() {
		for {
			ppid := syscall.Getppid()
			if ppid == 0 || ppid == 1 {
				close(died)
				return
			}
			time.Sleep(interval)
		}
	}()
	return died
}
