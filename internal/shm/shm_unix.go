//go:build linux || darwin

package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// shmDir returns the tmpfs-backed directory to place shared memory files
// in. /dev/shm is what shm_open uses under the hood on Linux; when it is
// not available (some containers, non-Linux unix) we fall back to the
// regular temp directory, trading tmpfs guarantees for portability.
func shmDir() string {
	if fi, err := os.Stat("/dev/shm"); err == nil && fi.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

func platformCreate(name string, size uint64) (mem []byte, closer func() error, err error) {
	path := filepath.Join(shmDir(), name)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("shm: create %s: %w", path, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, nil, fmt.Errorf("shm: truncate %s: %w", path, err)
	}

	mem, err = syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	f.Close()
	if err != nil {
		os.Remove(path)
		return nil, nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	mapped := mem
	closer = func() error {
		uerr := syscall.Munmap(mapped)
		if rerr := os.Remove(path); rerr != nil && uerr == nil {
			uerr = rerr
		}
		return uerr
	}
	return mem, closer, nil
}

func platformOpen(name string, size uint64) (mem []byte, closer func() error, err error) {
	path := filepath.Join(shmDir(), name)

	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("shm: open %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("shm: stat %s: %w", path, err)
	}
	if uint64(fi.Size()) < size {
		f.Close()
		return nil, nil, fmt.Errorf("shm: existing region %s is smaller than requested (%d < %d)", path, fi.Size(), size)
	}

	mem, err = syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	f.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	mapped := mem
	closer = func() error {
		return syscall.Munmap(mapped)
	}
	return mem, closer, nil
}
