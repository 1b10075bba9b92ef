// Package fattable implements the concrete FAT12/16/32 cluster allocator
// and on-disk cluster stream that pkg/fat's Directory and Volume consume
// through the narrow fat.ClusterAllocator / fat.ClusterStream contracts.
package fattable

import (
	"github.com/ostafen/gofatfs/pkg/fat"
)

// Geometry is the subset of the boot sector's BPB that the FAT table and
// cluster stream need to translate cluster numbers into device offsets.
type Geometry struct {
	Type FATType

	BytesPerSector    uint32
	SectorsPerCluster uint32
	ReservedSectors   uint32
	NumFATs           uint32
	SectorsPerFAT     uint32
	RootDirSectors    uint32 // 0 for FAT32, where the root is an ordinary cluster chain
	RootCluster       uint32 // FAT32 only
	TotalClusters     uint32
}

// FATType mirrors fat.FATType without importing it for every call site that
// only needs geometry.
type FATType = fat.FATType

const (
	FAT12 = fat.FAT12
	FAT16 = fat.FAT16
	FAT32 = fat.FAT32
)

// BytesPerCluster is SectorsPerCluster * BytesPerSector.
func (g Geometry) BytesPerCluster() uint32 {
	return g.SectorsPerCluster * g.BytesPerSector
}

// FATRegionOffset is the byte offset of the first FAT copy.
func (g Geometry) FATRegionOffset() int64 {
	return int64(g.ReservedSectors) * int64(g.BytesPerSector)
}

// FATRegionSize is the byte length of a single FAT copy.
func (g Geometry) FATRegionSize() int64 {
	return int64(g.SectorsPerFAT) * int64(g.BytesPerSector)
}

// RootDirOffset is the byte offset of the fixed-size FAT12/16 root
// directory region. Meaningless for FAT32, whose root is cluster RootCluster.
func (g Geometry) RootDirOffset() int64 {
	return g.FATRegionOffset() + int64(g.NumFATs)*g.FATRegionSize()
}

// RootDirSize is the byte length of the fixed-size FAT12/16 root directory.
func (g Geometry) RootDirSize() int64 {
	return int64(g.RootDirSectors) * int64(g.BytesPerSector)
}

// DataRegionOffset is the byte offset of cluster 2, the first data cluster.
func (g Geometry) DataRegionOffset() int64 {
	return g.RootDirOffset() + g.RootDirSize()
}

// ClusterOffset returns the byte offset of cluster (must be >= 2).
func (g Geometry) ClusterOffset(cluster uint32) int64 {
	return g.DataRegionOffset() + int64(cluster-2)*int64(g.BytesPerCluster())
}

// GeometryFromBootSector derives a Geometry from a parsed boot sector.
func GeometryFromBootSector(b *fat.BootSector) Geometry {
	typ := b.Type()
	g := Geometry{
		Type:              typ,
		BytesPerSector:    uint32(b.SectorSize),
		SectorsPerCluster: uint32(b.SectorsPerCluster),
		ReservedSectors:   uint32(b.ReservedSectors),
		NumFATs:           uint32(b.NumFATs),
		SectorsPerFAT:     b.SectorsPerFAT(),
		TotalClusters:     b.ClusterCount(),
	}
	if typ == FAT32 {
		g.RootCluster = b.RootCluster
	} else {
		g.RootDirSectors = (uint32(b.RootDirEntries)*32 + g.BytesPerSector - 1) / g.BytesPerSector
	}
	return g
}
