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

// Package blockdev abstracts the byte-addressable storage a volume sits on,
// whether that is a raw disk image, a partition carved out of one by its MBR,
// or (read-only) a memory-mapped file.
package blockdev

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Device is the minimal random-access byte store the fat and fattable
// packages build on. A Device never knows about sectors, clusters or FAT
// geometry; it is pure offset/length I/O against the backing medium.
type Device interface {
	io.ReaderAt
	io.WriterAt
	// Size returns the device's total addressable length in bytes.
	Size() int64
	// Sync flushes any buffered writes to the backing medium.
	Sync() error
	// Close releases the underlying resource.
	Close() error
}

// FileDevice is a Device backed by an *os.File (a disk image or, with
// appropriate permissions, a raw device node such as /dev/sdb).
type FileDevice struct {
	mu   sync.Mutex
	f    *os.File
	size int64
}

// OpenFileDevice opens path for reading; writes are additionally permitted
// unless readOnly is set. Platform-specific raw device paths (Windows
// \\.\PhysicalDriveN and drive letters) that *os.File cannot open directly
// go through openRawDevice instead; the returned Device is still just a
// Device, not necessarily a *FileDevice, so callers should type against the
// interface.
func OpenFileDevice(path string, readOnly bool) (Device, error) {
	if isRawDevicePath(path) {
		return openRawDevice(path, readOnly)
	}

	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("opening block device %q: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("statting block device %q: %w", path, err)
	}
	return &FileDevice{f: f, size: fi.Size()}, nil
}

// CreateFileDevice creates (or truncates) path to size and opens it
// read-write, for use by format operations that build a fresh image.
func CreateFileDevice(path string, size int64) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating block device %q: %w", path, err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("sizing block device %q to %d bytes: %w", path, size, err)
	}
	return &FileDevice{f: f, size: size}, nil
}

func (d *FileDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.f.ReadAt(p, off)
}

func (d *FileDevice) WriteAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.f.WriteAt(p, off)
	if end := off + int64(n); end > d.size {
		d.size = end
	}
	return n, err
}

func (d *FileDevice) Size() int64 { return d.size }

func (d *FileDevice) Sync() error { return d.f.Sync() }

func (d *FileDevice) Close() error { return d.f.Close() }

// SectionDevice restricts a Device to the byte range [offset, offset+size),
// translating every access by offset. It is how a partition carved out by
// the MBR, or the root-directory region of a FAT12/16 volume, is presented
// to the rest of the stack as an ordinary Device.
type SectionDevice struct {
	base   Device
	offset int64
	size   int64
}

// NewSection returns a view over base restricted to [offset, offset+size).
func NewSection(base Device, offset, size int64) *SectionDevice {
	return &SectionDevice{base: base, offset: offset, size: size}
}

func (s *SectionDevice) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > s.size {
		return 0, fmt.Errorf("blockdev: read offset %d out of section bounds [0,%d)", off, s.size)
	}
	if off+int64(len(p)) > s.size {
		p = p[:s.size-off]
	}
	return s.base.ReadAt(p, s.offset+off)
}

func (s *SectionDevice) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off > s.size {
		return 0, fmt.Errorf("blockdev: write offset %d out of section bounds [0,%d)", off, s.size)
	}
	if off+int64(len(p)) > s.size {
		return 0, fmt.Errorf("blockdev: write of %d bytes at %d overflows section of size %d", len(p), off, s.size)
	}
	return s.base.WriteAt(p, s.offset+off)
}

func (s *SectionDevice) Size() int64 { return s.size }

func (s *SectionDevice) Sync() error { return s.base.Sync() }

// Close is a no-op: the section does not own the underlying Device.
func (s *SectionDevice) Close() error { return nil }
