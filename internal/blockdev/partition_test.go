package blockdev_test

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/gofatfs/internal/blockdev"
)

func writeSyntheticMBR(t *testing.T, dev *blockdev.FileDevice) {
	t.Helper()

	mbr := make([]byte, 512)
	entry := mbr[0x1BE : 0x1BE+16]
	entry[0] = 0x80 // bootable
	entry[4] = byte(blockdev.PartitionTypeFAT32LBA)
	binary.LittleEndian.PutUint32(entry[8:12], 2048)  // start LBA
	binary.LittleEndian.PutUint32(entry[12:16], 8192) // sector count
	binary.LittleEndian.PutUint16(mbr[0x1FE:], 0xAA55)

	_, err := dev.WriteAt(mbr, 0)
	require.NoError(t, err)
}

func TestReadPartitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	dev, err := blockdev.CreateFileDevice(path, 8*1024*1024)
	require.NoError(t, err)
	defer dev.Close()

	writeSyntheticMBR(t, dev)

	parts, err := blockdev.ReadPartitions(dev, 512)
	require.NoError(t, err)
	require.Len(t, parts, 1)

	p := parts[0]
	require.True(t, p.Bootable)
	require.True(t, p.Type.IsFAT())
	require.Equal(t, int64(2048*512), p.Offset())
	require.Equal(t, int64(8192*512), p.Size())

	section := p.Section(dev)
	require.Equal(t, p.Size(), section.Size())
}

func TestReadPartitionsRejectsBadSignature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	dev, err := blockdev.CreateFileDevice(path, 512)
	require.NoError(t, err)
	defer dev.Close()

	_, err = blockdev.ReadPartitions(dev, 512)
	require.Error(t, err)
}
