//go:build windows

package shm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

func platformCreate(name string, size uint64) (mem []byte, closer func() error, err error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, nil, fmt.Errorf("shm: invalid name %q: %w", name, err)
	}

	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, uint32(size>>32), uint32(size), namePtr)
	if err != nil {
		return nil, nil, fmt.Errorf("shm: CreateFileMapping %q: %w", name, err)
	}
	if windows.GetLastError() == windows.ERROR_ALREADY_EXISTS {
		windows.CloseHandle(h)
		return nil, nil, fmt.Errorf("shm: region %q already exists", name)
	}

	return mapView(h, size)
}

func platformOpen(name string, size uint64) (mem []byte, closer func() error, err error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, nil, fmt.Errorf("shm: invalid name %q: %w", name, err)
	}

	h, err := windows.OpenFileMapping(windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, false, namePtr)
	if err != nil {
		return nil, nil, fmt.Errorf("shm: OpenFileMapping %q: %w", name, err)
	}

	return mapView(h, size)
}

func mapView(h windows.Handle, size uint64) (mem []byte, closer func() error, err error) {
	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(h)
		return nil, nil, fmt.Errorf("shm: MapViewOfFile: %w", err)
	}

	mem = unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
	handle := h
	base := addr
	closer = func() error {
		uerr := windows.UnmapViewOfFile(base)
		if cerr := windows.CloseHandle(handle); cerr != nil && uerr == nil {
			uerr = cerr
		}
		return uerr
	}
	return mem, closer, nil
}
