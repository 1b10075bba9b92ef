package blockdev_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/gofatfs/internal/blockdev"
)

func TestFileDeviceReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.img")
	dev, err := blockdev.CreateFileDevice(path, 4096)
	require.NoError(t, err)
	defer dev.Close()

	payload := []byte("the quick brown fox")
	_, err = dev.WriteAt(payload, 100)
	require.NoError(t, err)

	got := make([]byte, len(payload))
	_, err = dev.ReadAt(got, 100)
	require.NoError(t, err)
	require.Equal(t, payload, got)
	require.Equal(t, int64(4096), dev.Size())
}

func TestFileDeviceGrowsOnWritePastEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.img")
	dev, err := blockdev.CreateFileDevice(path, 10)
	require.NoError(t, err)
	defer dev.Close()

	_, err = dev.WriteAt([]byte("0123456789ABCDEF"), 5)
	require.NoError(t, err)
	require.Equal(t, int64(21), dev.Size())
}

func TestSectionDeviceBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.img")
	dev, err := blockdev.CreateFileDevice(path, 4096)
	require.NoError(t, err)
	defer dev.Close()

	section := blockdev.NewSection(dev, 512, 256)
	require.Equal(t, int64(256), section.Size())

	_, err = section.WriteAt(make([]byte, 257), 0)
	require.Error(t, err)

	n, err := section.WriteAt([]byte("hello"), 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	got := make([]byte, 5)
	_, err = dev.ReadAt(got, 512)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestOpenFileDeviceReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.img")
	dev, err := blockdev.CreateFileDevice(path, 4096)
	require.NoError(t, err)
	require.NoError(t, dev.Close())

	ro, err := blockdev.OpenFileDevice(path, true)
	require.NoError(t, err)
	defer ro.Close()

	_, err = ro.WriteAt([]byte("x"), 0)
	require.Error(t, err)
}
