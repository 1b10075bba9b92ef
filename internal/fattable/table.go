package fattable

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ostafen/gofatfs/internal/blockdev"
	"github.com/ostafen/gofatfs/pkg/fat"
)

// The eoc* and badCluster* constants follow the conventional values used
// across the FAT family; any value at or above minEOC* (masked per width)
// terminates a chain, matching the tolerant reader behavior real
// implementations use.
const (
	eoc12 = 0x0FFF
	eoc16 = 0xFFFF
	eoc32 = 0x0FFFFFFF

	minEOC12 = 0x0FF8
	minEOC16 = 0xFFF8
	minEOC32 = 0x0FFFFFF8

	badCluster12 = 0x0FF7
	badCluster16 = 0xFFF7
	badCluster32 = 0x0FFFFFF7
)

// Table is a FAT12/16/32 allocation table held entirely in memory (as is
// conventional given its modest size even at FAT32's widest) and mirrored
// across NumFATs copies on Flush.
type Table struct {
	mu       sync.Mutex
	dev      blockdev.Device
	geom     Geometry
	entries  []uint32 // index 0 and 1 are the reserved media/EOC entries
	dirty    bool
	lastScan uint32
}

// OpenTable reads the first FAT copy from dev according to geom.
func OpenTable(dev blockdev.Device, geom Geometry) (*Table, error) {
	raw := make([]byte, geom.FATRegionSize())
	if _, err := dev.ReadAt(raw, geom.FATRegionOffset()); err != nil {
		return nil, fmt.Errorf("reading FAT table: %w", err)
	}
	t := &Table{dev: dev, geom: geom}
	t.decode(raw)
	if limit := int(geom.TotalClusters) + 2; len(t.entries) > limit {
		t.entries = t.entries[:limit]
	}
	return t, nil
}

// FormatTable builds a fresh, all-free table for a freshly formatted volume,
// writing the initial media descriptor and EOC reserved entries.
func FormatTable(dev blockdev.Device, geom Geometry, media byte) (*Table, error) {
	count := geom.TotalClusters + 2
	t := &Table{dev: dev, geom: geom, entries: make([]uint32, count), dirty: true}
	t.entries[0] = uint32(media) | t.reservedHighBits()
	t.entries[1] = t.eoc()
	if geom.Type == FAT32 {
		t.entries[geom.RootCluster] = t.eoc()
	}
	if err := t.Flush(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) reservedHighBits() uint32 {
	switch t.geom.Type {
	case FAT12:
		return 0x0F00
	case FAT16:
		return 0xFF00
	default:
		return 0x0FFFFF00
	}
}

func (t *Table) eoc() uint32 {
	switch t.geom.Type {
	case FAT12:
		return eoc12
	case FAT16:
		return eoc16
	default:
		return eoc32
	}
}

func (t *Table) isEOC(v uint32) bool {
	switch t.geom.Type {
	case FAT12:
		return v >= minEOC12
	case FAT16:
		return v >= minEOC16
	default:
		return (v & 0x0FFFFFFF) >= minEOC32
	}
}

func (t *Table) isBad(v uint32) bool {
	switch t.geom.Type {
	case FAT12:
		return v == badCluster12
	case FAT16:
		return v == badCluster16
	default:
		return v&0x0FFFFFFF == badCluster32
	}
}

// decode unpacks raw FAT bytes into t.entries, per geom.Type's bit width.
// FAT12 entries are 12 bits packed two-to-three-bytes (see get12/set12);
// FAT16/32 are plain little-endian words, grounded on the standard table
// layout used throughout the retrieved FAT implementations.
func (t *Table) decode(raw []byte) {
	switch t.geom.Type {
	case FAT12:
		n := len(raw) * 2 / 3
		t.entries = make([]uint32, n)
		for i := 0; i < n; i++ {
			t.entries[i] = uint32(get12(raw, uint32(i)))
		}
	case FAT16:
		n := len(raw) / 2
		t.entries = make([]uint32, n)
		for i := 0; i < n; i++ {
			t.entries[i] = uint32(binary.LittleEndian.Uint16(raw[i*2:]))
		}
	default:
		n := len(raw) / 4
		t.entries = make([]uint32, n)
		for i := 0; i < n; i++ {
			t.entries[i] = binary.LittleEndian.Uint32(raw[i*4:]) & 0x0FFFFFFF
		}
	}
}

func get12(b []byte, cluster uint32) uint16 {
	pos := cluster * 3 / 2
	if int(pos)+1 >= len(b) {
		return 0
	}
	if cluster%2 == 0 {
		return uint16(b[pos]) | (uint16(b[pos+1]&0x0F) << 8)
	}
	return uint16(b[pos]>>4) | (uint16(b[pos+1]) << 4)
}

func set12(b []byte, cluster uint32, v uint16) {
	pos := cluster * 3 / 2
	if int(pos)+1 >= len(b) {
		return
	}
	if cluster%2 == 0 {
		b[pos] = byte(v & 0xFF)
		b[pos+1] = (b[pos+1] & 0xF0) | byte((v>>8)&0x0F)
	} else {
		b[pos] = (b[pos] & 0x0F) | byte((v&0x0F)<<4)
		b[pos+1] = byte(v >> 4)
	}
}

func (t *Table) encode() []byte {
	raw := make([]byte, t.geom.FATRegionSize())
	switch t.geom.Type {
	case FAT12:
		for i, v := range t.entries {
			set12(raw, uint32(i), uint16(v))
		}
	case FAT16:
		for i, v := range t.entries {
			binary.LittleEndian.PutUint16(raw[i*2:], uint16(v))
		}
	default:
		for i, v := range t.entries {
			binary.LittleEndian.PutUint32(raw[i*4:], v&0x0FFFFFFF)
		}
	}
	return raw
}

// TryGetFreeCluster implements fat.ClusterAllocator. It scans forward from
// the last allocation (a simple clock hand, not a free-bitmap like the
// directory layer's allocator) and marks the found cluster as a
// self-terminating one-cluster chain; callers extend or retarget it via
// SetEndOfChain / the cluster stream's chain-growth path.
func (t *Table) TryGetFreeCluster() (fat.ClusterID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := uint32(len(t.entries))
	for i := uint32(0); i < n-2; i++ {
		c := 2 + (t.lastScan+i)%(n-2)
		if t.entries[c] == 0 {
			t.entries[c] = t.eoc()
			t.dirty = true
			t.lastScan = c + 1
			return fat.ClusterID(c), true
		}
	}
	return 0, false
}

// SetEndOfChain implements fat.ClusterAllocator.
func (t *Table) SetEndOfChain(cluster fat.ClusterID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkCluster(uint32(cluster)); err != nil {
		return err
	}
	t.entries[cluster] = t.eoc()
	t.dirty = true
	return nil
}

// FreeChain implements fat.ClusterAllocator.
func (t *Table) FreeChain(first fat.ClusterID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := uint32(first)
	for cur != 0 {
		if err := t.checkCluster(cur); err != nil {
			return err
		}
		next := t.entries[cur]
		t.entries[cur] = 0
		t.dirty = true
		if t.isEOC(next) || t.isBad(next) {
			break
		}
		cur = next
	}
	return nil
}

// Flush implements fat.ClusterAllocator, writing the in-memory table back
// to every mirrored FAT copy on the device.
func (t *Table) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty {
		return nil
	}
	raw := t.encode()
	for i := uint32(0); i < t.geom.NumFATs; i++ {
		off := t.geom.FATRegionOffset() + int64(i)*t.geom.FATRegionSize()
		if _, err := t.dev.WriteAt(raw, off); err != nil {
			return fmt.Errorf("flushing FAT copy %d: %w", i, err)
		}
	}
	if err := t.dev.Sync(); err != nil {
		return fmt.Errorf("syncing device after FAT flush: %w", err)
	}
	t.dirty = false
	return nil
}

func (t *Table) checkCluster(c uint32) error {
	if c < 2 || c >= uint32(len(t.entries)) {
		return fmt.Errorf("%w: cluster %d out of range", fat.ErrCorrupt, c)
	}
	return nil
}

// nextInChain returns the cluster following cur, or (0, false, nil) at EOC.
func (t *Table) nextInChain(cur uint32) (uint32, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkCluster(cur); err != nil {
		return 0, false, err
	}
	v := t.entries[cur]
	if t.isEOC(v) || t.isBad(v) || v == 0 {
		return 0, false, nil
	}
	return v, true, nil
}

// link sets entries[from] = to directly, used to append a freshly allocated
// cluster onto the end of an existing chain.
func (t *Table) link(from, to uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[from] = to
	t.dirty = true
}

// ClusterStream implements fat.ClusterAllocator.
func (t *Table) ClusterStream(first fat.ClusterID, maxLength uint32, access fat.AccessMode) (fat.ClusterStream, error) {
	return newClusterStream(t, first, maxLength, access)
}

// Stats reports the total number of data clusters and how many are free.
func (t *Table) Stats() (free, total uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	total = uint32(len(t.entries)) - 2
	for i := uint32(2); i < uint32(len(t.entries)); i++ {
		if t.entries[i] == 0 {
			free++
		}
	}
	return free, total
}

// BytesPerCluster reports the volume's cluster size, for capacity reporting.
func (t *Table) BytesPerCluster() uint32 {
	return t.geom.BytesPerCluster()
}
