//go:build windows
// +build windows

// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package blockdev

import (
	"fmt"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// isRawDevicePath reports whether path is a Windows device path such as
// \\.\PhysicalDrive0 or \\.\C:, which os.OpenFile cannot open directly.
func isRawDevicePath(path string) bool {
	return strings.HasPrefix(path, `\\.\`)
}

// rawDevice presents a CreateFile-opened physical drive or volume as a
// Device. Windows only allows unbuffered, sector-aligned I/O against raw
// devices, so ReadAt rounds the request out to sector boundaries and copies
// the requested slice back out of the aligned buffer.
type rawDevice struct {
	handle windows.Handle
	size   int64
}

func openRawDevice(path string, readOnly bool) (Device, error) {
	if !readOnly {
		return nil, fmt.Errorf("blockdev: raw device %q only supports read-only access", path)
	}

	handle, err := windows.CreateFile(
		windows.StringToUTF16Ptr(path),
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("opening raw device %q: %w", path, err)
	}

	size, err := diskSize(handle)
	if err != nil {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("statting raw device %q: %w", path, err)
	}
	return &rawDevice{handle: handle, size: size}, nil
}

const rawSectorSize = 512

func (d *rawDevice) ReadAt(p []byte, off int64) (int, error) {
	alignedOffset := off / rawSectorSize * rawSectorSize
	alignmentDiff := int(off - alignedOffset)
	alignedSize := ((len(p) + alignmentDiff + rawSectorSize - 1) / rawSectorSize) * rawSectorSize

	buf := make([]byte, alignedSize)

	var bytesRead uint32
	ov := new(windows.Overlapped)
	ov.Offset = uint32(alignedOffset)
	ov.OffsetHigh = uint32(alignedOffset >> 32)

	err := windows.ReadFile(d.handle, buf, &bytesRead, ov)
	if err != nil {
		if err == syscall.ERROR_IO_PENDING {
			err = windows.GetOverlappedResult(d.handle, ov, &bytesRead, true)
		}
		if err != nil {
			return 0, fmt.Errorf("aligned read failed: %w", err)
		}
	}
	return copy(p, buf[alignmentDiff:]), nil
}

func (d *rawDevice) WriteAt(p []byte, off int64) (int, error) {
	return 0, fmt.Errorf("blockdev: raw device is read-only")
}

func (d *rawDevice) Size() int64 { return d.size }

func (d *rawDevice) Sync() error { return nil }

func (d *rawDevice) Close() error { return windows.CloseHandle(d.handle) }

type diskGeometry struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
}

const ioctlDiskGetDriveGeometry = 0x70000

func diskSize(handle windows.Handle) (int64, error) {
	var geometry diskGeometry
	var bytesReturned uint32

	err := windows.DeviceIoControl(
		handle,
		ioctlDiskGetDriveGeometry,
		nil,
		0,
		(*byte)(unsafe.Pointer(&geometry)),
		uint32(unsafe.Sizeof(geometry)),
		&bytesReturned,
		nil,
	)
	if err != nil {
		return 0, fmt.Errorf("DeviceIoControl(IOCTL_DISK_GET_DRIVE_GEOMETRY): %w", err)
	}
	return geometry.Cylinders * int64(geometry.TracksPerCylinder) * int64(geometry.SectorsPerTrack) * int64(geometry.BytesPerSector), nil
}
