package blockdev

import (
	"fmt"
	"os"
	"syscall"
)

// MmapDevice is a read-only Device backed by a memory-mapped file, for the
// common case of mounting an image without intending to mutate it. Writes
// always fail; use FileDevice when the volume must be writable.
type MmapDevice struct {
	data []byte
	f    *os.File
}

// OpenMmapDevice maps path in full.
func OpenMmapDevice(path string) (*MmapDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q for mmap: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("statting %q: %w", path, err)
	}
	size := int(fi.Size())
	if size == 0 {
		f.Close()
		return nil, fmt.Errorf("%q is empty, cannot mmap", path)
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %q: %w", path, err)
	}
	return &MmapDevice{data: data, f: f}, nil
}

func (m *MmapDevice) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, fmt.Errorf("blockdev: mmap read offset %d out of bounds", off)
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, fmt.Errorf("blockdev: short mmap read at %d", off)
	}
	return n, nil
}

func (m *MmapDevice) WriteAt([]byte, int64) (int, error) {
	return 0, fmt.Errorf("blockdev: mmap device is read-only")
}

func (m *MmapDevice) Size() int64 { return int64(len(m.data)) }

func (m *MmapDevice) Sync() error { return nil }

func (m *MmapDevice) Close() error {
	var err error
	if m.data != nil {
		err = syscall.Munmap(m.data)
		m.data = nil
	}
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
