package fattable

import (
	"fmt"
	"io"

	"github.com/ostafen/gofatfs/internal/blockdev"
	"github.com/ostafen/gofatfs/pkg/fat"
)

// fixedRegionStream implements fat.ClusterStream over a fixed-capacity
// blockdev.Device section, for the FAT12/16 root directory, which lives
// outside the cluster-numbered data region and can neither grow nor shrink.
type fixedRegionStream struct {
	dev      blockdev.Device
	capacity uint32
	length   uint32
	pos      int64
}

func newFixedRegionStream(dev blockdev.Device, capacity uint32) *fixedRegionStream {
	return &fixedRegionStream{dev: dev, capacity: capacity, length: capacity}
}

func (s *fixedRegionStream) FirstCluster() fat.ClusterID { return 0 }

func (s *fixedRegionStream) Len() uint32 { return s.length }

func (s *fixedRegionStream) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = s.pos
	case io.SeekEnd:
		base = int64(s.length)
	default:
		return 0, fmt.Errorf("fattable: invalid whence %d", whence)
	}
	s.pos = base + offset
	return s.pos, nil
}

func (s *fixedRegionStream) Read(p []byte) (int, error) {
	if s.pos >= int64(s.length) {
		return 0, io.EOF
	}
	if remain := int64(s.length) - s.pos; int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := s.dev.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *fixedRegionStream) Write(p []byte) (int, error) {
	if s.pos+int64(len(p)) > int64(s.capacity) {
		return 0, fmt.Errorf("%w: root directory region is fixed at %d bytes", fat.ErrNoSpace, s.capacity)
	}
	n, err := s.dev.WriteAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

// Truncate is a no-op beyond validating size fits: the root directory
// region's capacity is fixed by the boot sector's RootDirEntries field.
func (s *fixedRegionStream) Truncate(size uint32) error {
	if size > s.capacity {
		return fmt.Errorf("%w: root directory region is fixed at %d bytes", fat.ErrNoSpace, s.capacity)
	}
	s.length = s.capacity
	return nil
}
