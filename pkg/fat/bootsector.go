package fat

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// BootSectorSize is the fixed size of the FAT boot sector / BPB.
const BootSectorSize = 512

// FATType identifies which cluster-numbering width a volume uses.
type FATType int

const (
	FAT12 FATType = iota
	FAT16
	FAT32
)

func (t FATType) String() string {
	switch t {
	case FAT12:
		return "FAT12"
	case FAT16:
		return "FAT16"
	case FAT32:
		return "FAT32"
	default:
		return "unknown"
	}
}

// BootSector mirrors the on-disk BIOS Parameter Block, common fields plus
// the FAT32-only extension block. Field layout matches §6's "boot sector /
// BPB" external interface.
type BootSector struct {
	Ignored           [3]byte
	OEMName           [8]byte
	SectorSize        uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootDirEntries    uint16
	TotalSectors16    uint16
	Media             uint8
	SectorsPerFAT16   uint16
	SectorsPerTrack   uint16
	Heads             uint16
	HiddenSectors     uint32
	TotalSectors32    uint32

	// FAT32 extension.
	SectorsPerFAT32 uint32
	Flags           uint16
	Version         uint16
	RootCluster     uint32
	InfoSector      uint16
	BackupBoot      uint16
	Reserved32      [12]byte
	DriveNumber32   uint8
	Reserved1_32    uint8
	BootSig32       uint8
	VolumeID32      uint32
	VolumeLabel32   [11]byte
	FSType32        [8]byte

	Padding [420]byte
	Marker  uint16
}

// ReadBootSector parses a 512-byte boot sector, validating the 0xAA55
// signature.
func ReadBootSector(data []byte) (*BootSector, error) {
	if len(data) != BootSectorSize {
		return nil, fmt.Errorf("%w: boot sector must be %d bytes, got %d", ErrCorrupt, BootSectorSize, len(data))
	}
	var bs BootSector
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &bs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if bs.Marker != 0xAA55 {
		return nil, fmt.Errorf("%w: invalid boot sector marker 0x%04X", ErrCorrupt, bs.Marker)
	}
	return &bs, nil
}

// Bytes renders the boot sector back into a 512-byte record.
func (b *BootSector) Bytes() []byte {
	b.Marker = 0xAA55
	buf := &bytes.Buffer{}
	buf.Grow(BootSectorSize)
	_ = binary.Write(buf, binary.LittleEndian, b)
	out := buf.Bytes()
	if len(out) < BootSectorSize {
		out = append(out, make([]byte, BootSectorSize-len(out))...)
	}
	return out[:BootSectorSize]
}

// TotalSectors returns TotalSectors32 when TotalSectors16 is the FAT16+
// overflow sentinel (0), else TotalSectors16.
func (b *BootSector) TotalSectors() uint32 {
	if b.TotalSectors16 != 0 {
		return uint32(b.TotalSectors16)
	}
	return b.TotalSectors32
}

// SectorsPerFAT returns SectorsPerFAT32 when the FAT16 field is the FAT32
// sentinel (0), else SectorsPerFAT16.
func (b *BootSector) SectorsPerFAT() uint32 {
	if b.SectorsPerFAT16 != 0 {
		return uint32(b.SectorsPerFAT16)
	}
	return b.SectorsPerFAT32
}

// ClusterCount returns the number of addressable data clusters, which
// determines the FAT bitness per the standard FAT12/16/32 thresholds.
func (b *BootSector) ClusterCount() uint32 {
	rootDirSectors := (uint32(b.RootDirEntries)*32 + uint32(b.SectorSize) - 1) / uint32(b.SectorSize)
	dataSectors := b.TotalSectors() - (uint32(b.ReservedSectors) + uint32(b.NumFATs)*b.SectorsPerFAT() + rootDirSectors)
	if b.SectorsPerCluster == 0 {
		return 0
	}
	return dataSectors / uint32(b.SectorsPerCluster)
}

// Type classifies the volume by cluster count, per the standard FAT
// thresholds (4085 / 65525).
func (b *BootSector) Type() FATType {
	switch {
	case b.ClusterCount() < 4085:
		return FAT12
	case b.ClusterCount() < 65525:
		return FAT16
	default:
		return FAT32
	}
}
