package fattable_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/gofatfs/internal/blockdev"
	"github.com/ostafen/gofatfs/internal/fattable"
	"github.com/ostafen/gofatfs/pkg/fat"
)

func TestTableAllocFreeCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.img")
	dev, err := blockdev.CreateFileDevice(path, 4*1024*1024)
	require.NoError(t, err)
	defer dev.Close()

	vol, err := fattable.Format(dev, fattable.FormatOptions{Type: fattable.FAT16})
	require.NoError(t, err)
	require.NotNil(t, vol)

	geom := fattable.GeometryFromBootSector(mustBootSector(t, dev))
	table, err := fattable.OpenTable(dev, geom)
	require.NoError(t, err)

	free, total := table.Stats()
	require.Greater(t, total, uint32(0))
	require.Equal(t, total, free)

	c1, ok := table.TryGetFreeCluster()
	require.True(t, ok)

	freeAfter, _ := table.Stats()
	require.Equal(t, free-1, freeAfter)

	require.NoError(t, table.FreeChain(c1))
	freeRestored, _ := table.Stats()
	require.Equal(t, free, freeRestored)
}

func mustBootSector(t *testing.T, dev blockdev.Device) *fat.BootSector {
	t.Helper()
	raw := make([]byte, 512)
	_, err := dev.ReadAt(raw, 0)
	require.NoError(t, err)
	boot, err := fat.ReadBootSector(raw)
	require.NoError(t, err)
	return boot
}
