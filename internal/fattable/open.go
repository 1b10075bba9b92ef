package fattable

import (
	"fmt"

	"github.com/ostafen/gofatfs/internal/blockdev"
	"github.com/ostafen/gofatfs/pkg/fat"
)

// Open reads an existing FAT12/16/32 volume off dev and returns it wired
// through a Table cluster allocator.
func Open(dev blockdev.Device, params fat.Params) (*fat.Volume, *Table, error) {
	raw := make([]byte, fat.BootSectorSize)
	if _, err := dev.ReadAt(raw, 0); err != nil {
		return nil, nil, fmt.Errorf("reading boot sector: %w", err)
	}
	boot, err := fat.ReadBootSector(raw)
	if err != nil {
		return nil, nil, err
	}

	geom := GeometryFromBootSector(boot)
	table, err := OpenTable(dev, geom)
	if err != nil {
		return nil, nil, err
	}

	rootStream, err := rootDirectoryStream(dev, table, geom)
	if err != nil {
		return nil, nil, err
	}

	vol, err := fat.OpenVolume(boot, table, rootStream, params)
	if err != nil {
		return nil, nil, err
	}
	return vol, table, nil
}
