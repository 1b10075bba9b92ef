package fattable

import (
	"fmt"
	"io"

	"github.com/ostafen/gofatfs/pkg/fat"
)

// clusterStream is the concrete fat.ClusterStream: it presents a cluster
// chain on a blockdev.Device as a seekable byte stream, resolving offsets
// to (cluster, byte-within-cluster) pairs and extending the chain lazily
// when a write runs past the current end.
type clusterStream struct {
	t         *Table
	first     uint32
	clusters  []uint32 // resolved chain, extended lazily
	chainDone bool     // true once clusters holds the full chain to EOC
	length    uint32   // logical length in bytes
	pos       int64
	access    fat.AccessMode
}

func newClusterStream(t *Table, first fat.ClusterID, maxLength uint32, access fat.AccessMode) (*clusterStream, error) {
	s := &clusterStream{t: t, first: uint32(first), access: access}
	if s.first == 0 {
		s.chainDone = true
		return s, nil
	}
	s.clusters = []uint32{s.first}
	if err := s.extendResolvedChain(); err != nil {
		return nil, err
	}
	if maxLength != 0 && maxLength < s.length {
		s.length = maxLength
	}
	return s, nil
}

// extendResolvedChain walks forward from the last resolved cluster until it
// hits EOC, filling in s.clusters and s.length. A chain entry pointing
// outside the table (corruption, or a crafted image) surfaces as
// fat.ErrCorrupt instead of panicking on an out-of-range table index.
func (s *clusterStream) extendResolvedChain() error {
	if s.chainDone {
		return nil
	}
	cur := s.clusters[len(s.clusters)-1]
	for {
		next, ok, err := s.t.nextInChain(cur)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		s.clusters = append(s.clusters, next)
		cur = next
	}
	s.chainDone = true
	s.length = uint32(len(s.clusters)) * s.t.geom.BytesPerCluster()
	return nil
}

func (s *clusterStream) FirstCluster() fat.ClusterID { return fat.ClusterID(s.first) }

func (s *clusterStream) Len() uint32 { return s.length }

func (s *clusterStream) Seek(offset int64, whence int) (int64, error) {
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
	newPos := base + offset
	if newPos < 0 {
		return 0, fmt.Errorf("fattable: negative seek position")
	}
	s.pos = newPos
	return s.pos, nil
}

// resolve returns the byte offset on the device for logical position pos,
// allocating new clusters on the chain if write is true and pos lies past
// the currently allocated capacity.
func (s *clusterStream) resolve(pos int64, write bool) (int64, error) {
	bpc := int64(s.t.geom.BytesPerCluster())
	idx := int(pos / bpc)

	for idx >= len(s.clusters) {
		if !write {
			return 0, io.EOF
		}
		if err := s.growByOneCluster(); err != nil {
			return 0, err
		}
	}
	cluster := s.clusters[idx]
	within := pos % bpc
	return s.t.geom.ClusterOffset(cluster) + within, nil
}

func (s *clusterStream) growByOneCluster() error {
	next, ok := s.t.TryGetFreeCluster()
	if !ok {
		return fat.ErrNoSpace
	}
	if len(s.clusters) == 0 {
		s.first = uint32(next)
	} else {
		s.t.link(s.clusters[len(s.clusters)-1], uint32(next))
	}
	s.clusters = append(s.clusters, uint32(next))
	return nil
}

func (s *clusterStream) Read(p []byte) (int, error) {
	if s.access != fat.AccessRead && s.access != fat.AccessReadWrite {
		return 0, fat.ErrReadOnly
	}
	if s.pos >= int64(s.length) {
		return 0, io.EOF
	}
	bpc := int64(s.t.geom.BytesPerCluster())
	total := 0
	for total < len(p) && s.pos < int64(s.length) {
		off, err := s.resolve(s.pos, false)
		if err != nil {
			if err == io.EOF {
				break
			}
			return total, err
		}
		within := s.pos % bpc
		chunk := p[total:]
		if remain := bpc - within; int64(len(chunk)) > remain {
			chunk = chunk[:remain]
		}
		if remain := int64(s.length) - s.pos; int64(len(chunk)) > remain {
			chunk = chunk[:remain]
		}
		n, err := s.t.dev.ReadAt(chunk, off)
		total += n
		s.pos += int64(n)
		if err != nil && err != io.EOF {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	if total == 0 {
		return 0, io.EOF
	}
	return total, nil
}

func (s *clusterStream) Write(p []byte) (int, error) {
	if s.access != fat.AccessReadWrite {
		return 0, fat.ErrReadOnly
	}
	bpc := int64(s.t.geom.BytesPerCluster())
	total := 0
	for total < len(p) {
		off, err := s.resolve(s.pos, true)
		if err != nil {
			return total, err
		}
		within := s.pos % bpc
		chunk := p[total:]
		if remain := bpc - within; int64(len(chunk)) > remain {
			chunk = chunk[:remain]
		}
		n, err := s.t.dev.WriteAt(chunk, off)
		total += n
		s.pos += int64(n)
		if err != nil {
			return total, err
		}
	}
	if uint32(s.pos) > s.length {
		s.length = uint32(s.pos)
	}
	return total, nil
}

// Truncate sets the stream's logical length, freeing trailing clusters when
// shrinking or allocating new ones when growing.
func (s *clusterStream) Truncate(size uint32) error {
	bpc := s.t.geom.BytesPerCluster()
	wantClusters := int((size + bpc - 1) / bpc)
	if size == 0 {
		wantClusters = 0
	}

	for len(s.clusters) > wantClusters {
		freed := s.clusters[len(s.clusters)-1]
		s.clusters = s.clusters[:len(s.clusters)-1]
		if len(s.clusters) > 0 {
			s.t.SetEndOfChain(fat.ClusterID(s.clusters[len(s.clusters)-1]))
		}
		if err := s.t.FreeChain(fat.ClusterID(freed)); err != nil {
			return err
		}
	}
	if len(s.clusters) == 0 {
		s.first = 0
	}
	for len(s.clusters) < wantClusters {
		if err := s.growByOneCluster(); err != nil {
			return err
		}
	}
	s.length = size
	if s.pos > int64(size) {
		s.pos = int64(size)
	}
	return nil
}
