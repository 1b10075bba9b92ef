package blockdev

import (
	"encoding/binary"
	"fmt"
)

// MBRPartitionType identifies a partition's filesystem by its legacy MBR
// type byte. Only the FAT family is given symbolic names; every other byte
// value is still reported faithfully by ReadPartitions.
type MBRPartitionType uint8

const (
	PartitionTypeEmpty            MBRPartitionType = 0x00
	PartitionTypeFAT12            MBRPartitionType = 0x01
	PartitionTypeFAT16Small       MBRPartitionType = 0x04
	PartitionTypeExtendedCHS      MBRPartitionType = 0x05
	PartitionTypeFAT16            MBRPartitionType = 0x06
	PartitionTypeFAT32CHS         MBRPartitionType = 0x0B
	PartitionTypeFAT32LBA         MBRPartitionType = 0x0C
	PartitionTypeFAT16LBA         MBRPartitionType = 0x0E
	PartitionTypeExtendedLBA      MBRPartitionType = 0x0F
	PartitionTypeGPTProtectiveMBR MBRPartitionType = 0xEE
)

// IsFAT reports whether t names one of the FAT12/16/32 MBR partition types.
func (t MBRPartitionType) IsFAT() bool {
	switch t {
	case PartitionTypeFAT12, PartitionTypeFAT16Small, PartitionTypeFAT16,
		PartitionTypeFAT32CHS, PartitionTypeFAT32LBA, PartitionTypeFAT16LBA:
		return true
	default:
		return false
	}
}

// Partition describes one entry of an MBR partition table, translated into
// byte offsets against a sector size.
type Partition struct {
	Type      MBRPartitionType
	Bootable  bool
	StartLBA  uint32
	Sectors   uint32
	SectorLen int64
}

// Offset is the partition's first byte on the device.
func (p Partition) Offset() int64 { return int64(p.StartLBA) * p.SectorLen }

// Size is the partition's length in bytes.
func (p Partition) Size() int64 { return int64(p.Sectors) * p.SectorLen }

const (
	mbrSize            = 512
	mbrSignatureOffset = 0x1FE
	mbrTableOffset     = 0x1BE
	mbrEntrySize       = 16
)

// ReadPartitions parses the MBR at the start of dev (sector 0) and returns
// its non-empty partition entries. sectorLen is normally 512; pass the
// device's logical sector size if it differs.
func ReadPartitions(dev Device, sectorLen int64) ([]Partition, error) {
	buf := make([]byte, mbrSize)
	if _, err := dev.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("reading MBR: %w", err)
	}
	if binary.LittleEndian.Uint16(buf[mbrSignatureOffset:]) != 0xAA55 {
		return nil, fmt.Errorf("invalid MBR signature")
	}

	var out []Partition
	for i := 0; i < 4; i++ {
		e := buf[mbrTableOffset+i*mbrEntrySize : mbrTableOffset+(i+1)*mbrEntrySize]
		typ := MBRPartitionType(e[4])
		if typ == PartitionTypeEmpty {
			continue
		}
		out = append(out, Partition{
			Type:      typ,
			Bootable:  e[0] == 0x80,
			StartLBA:  binary.LittleEndian.Uint32(e[8:12]),
			Sectors:   binary.LittleEndian.Uint32(e[12:16]),
			SectorLen: sectorLen,
		})
	}
	return out, nil
}

// Section carves out p's byte range from dev as a Device of its own.
func (p Partition) Section(dev Device) *SectionDevice {
	return NewSection(dev, p.Offset(), p.Size())
}
