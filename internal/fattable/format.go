package fattable

import (
	"fmt"
	"time"

	"github.com/ostafen/gofatfs/internal/blockdev"
	"github.com/ostafen/gofatfs/pkg/fat"
)

// FormatOptions controls the geometry of a freshly written volume.
type FormatOptions struct {
	Type              FATType
	BytesPerSector    uint32
	SectorsPerCluster uint32
	ReservedSectors   uint32
	NumFATs           uint32
	RootDirEntries    uint16 // FAT12/16 only; ignored for FAT32
	Media             byte
	VolumeLabel       string
	Params            fat.Params
}

func (o FormatOptions) normalized() FormatOptions {
	if o.BytesPerSector == 0 {
		o.BytesPerSector = 512
	}
	if o.SectorsPerCluster == 0 {
		o.SectorsPerCluster = 1
	}
	if o.ReservedSectors == 0 {
		if o.Type == FAT32 {
			o.ReservedSectors = 32
		} else {
			o.ReservedSectors = 1
		}
	}
	if o.NumFATs == 0 {
		o.NumFATs = 2
	}
	if o.RootDirEntries == 0 {
		o.RootDirEntries = 512
	}
	if o.Media == 0 {
		o.Media = 0xF8
	}
	return o
}

// Format writes a fresh boot sector, FAT table(s) and root directory onto
// dev, sized to fill it, then opens it as a fat.Volume.
func Format(dev blockdev.Device, opts FormatOptions) (*fat.Volume, error) {
	opts = opts.normalized()

	totalSectors := uint32(dev.Size() / int64(opts.BytesPerSector))
	rootDirSectors := uint32(0)
	if opts.Type != FAT32 {
		rootDirSectors = (uint32(opts.RootDirEntries)*32 + opts.BytesPerSector - 1) / opts.BytesPerSector
	}

	sectorsPerFAT := estimateSectorsPerFAT(opts, totalSectors, rootDirSectors)

	boot := &fat.BootSector{
		SectorSize:        uint16(opts.BytesPerSector),
		SectorsPerCluster: uint8(opts.SectorsPerCluster),
		ReservedSectors:   uint16(opts.ReservedSectors),
		NumFATs:           uint8(opts.NumFATs),
		Media:             opts.Media,
	}
	copy(boot.OEMName[:], "GOFATFS ")

	if opts.Type == FAT32 {
		boot.SectorsPerFAT32 = sectorsPerFAT
		boot.RootCluster = 2
		boot.BootSig32 = 0x29
		copy(boot.FSType32[:], "FAT32   ")
		copy(boot.VolumeLabel32[:], padLabel(opts.VolumeLabel))
	} else {
		boot.RootDirEntries = opts.RootDirEntries
		boot.SectorsPerFAT16 = uint16(sectorsPerFAT)
	}
	if totalSectors > 0xFFFF {
		boot.TotalSectors32 = totalSectors
	} else {
		boot.TotalSectors16 = uint16(totalSectors)
	}

	if _, err := dev.WriteAt(boot.Bytes(), 0); err != nil {
		return nil, fmt.Errorf("writing boot sector: %w", err)
	}

	if actual := boot.Type(); actual != opts.Type {
		return nil, fmt.Errorf(
			"%w: requested %s but %d data clusters make this a %s volume; "+
				"pick a smaller SectorsPerCluster for more clusters, or a larger one for fewer",
			fat.ErrInvalidName, opts.Type, boot.ClusterCount(), actual)
	}

	geom := GeometryFromBootSector(boot)
	geom.Type = opts.Type
	if opts.Type != FAT32 {
		geom.RootDirSectors = rootDirSectors
	}

	table, err := FormatTable(dev, geom, opts.Media)
	if err != nil {
		return nil, fmt.Errorf("writing FAT table: %w", err)
	}

	rootStream, err := rootDirectoryStream(dev, table, geom)
	if err != nil {
		return nil, err
	}

	params := opts.Params
	params.ReadOnly = false

	cp := params.CodePage
	if cp == nil {
		cp = fat.DefaultCodePage()
	}
	loc := params.Location
	if loc == nil {
		loc = time.Local
	}
	if err := writeEmptyRootMarker(rootStream); err != nil {
		return nil, err
	}

	return fat.OpenVolume(boot, table, rootStream, params)
}

// rootDirectoryStream returns a ClusterStream over the root directory
// region: a fixed-size section for FAT12/16, or an ordinary cluster chain
// (already EOC-terminated by FormatTable) for FAT32.
func rootDirectoryStream(dev blockdev.Device, table *Table, geom Geometry) (fat.ClusterStream, error) {
	if geom.Type == FAT32 {
		return table.ClusterStream(fat.ClusterID(geom.RootCluster), 0, fat.AccessReadWrite)
	}
	section := blockdev.NewSection(dev, geom.RootDirOffset(), geom.RootDirSize())
	return newFixedRegionStream(section, uint32(geom.RootDirSize())), nil
}

func writeEmptyRootMarker(s fat.ClusterStream) error {
	buf := make([]byte, 32)
	_, err := s.Write(buf)
	return err
}

func padLabel(label string) []byte {
	b := []byte("NO NAME    ")
	if label != "" {
		copy(b, label)
	}
	return b
}

// estimateSectorsPerFAT sizes the FAT region by successive approximation:
// the FAT's own size affects how many sectors remain for data, which in
// turn determines how many entries (one per cluster plus the two reserved
// ones) the FAT must hold. It stops at the first size that holds them.
func estimateSectorsPerFAT(opts FormatOptions, totalSectors, rootDirSectors uint32) uint32 {
	entrySize := uint32(4)
	if opts.Type == FAT16 {
		entrySize = 2
	} else if opts.Type == FAT12 {
		entrySize = 2 // over-estimate slightly; FAT12 is 1.5 bytes/entry
	}

	sectorsPerFAT := uint32(1)
	for i := 0; i < 8; i++ {
		dataSectors := totalSectors - opts.ReservedSectors - rootDirSectors - sectorsPerFAT*opts.NumFATs
		clusters := dataSectors / opts.SectorsPerCluster
		needed := ((clusters+2)*entrySize + opts.BytesPerSector - 1) / opts.BytesPerSector
		if needed <= sectorsPerFAT {
			break
		}
		sectorsPerFAT = needed
	}
	if sectorsPerFAT == 0 {
		sectorsPerFAT = 1
	}
	return sectorsPerFAT
}
