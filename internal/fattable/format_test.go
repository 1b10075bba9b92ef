package fattable_test

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/gofatfs/internal/blockdev"
	"github.com/ostafen/gofatfs/internal/fattable"
	"github.com/ostafen/gofatfs/pkg/fat"
)

func formatTemp(t *testing.T, typ fattable.FATType, size int64) (*fat.Volume, *blockdev.FileDevice) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "image.img")
	dev, err := blockdev.CreateFileDevice(path, size)
	require.NoError(t, err)

	vol, err := fattable.Format(dev, fattable.FormatOptions{
		Type:        typ,
		VolumeLabel: "TESTVOL",
	})
	require.NoError(t, err)
	return vol, dev
}

func TestFormatFAT16CreateAndReadBack(t *testing.T) {
	vol, dev := formatTemp(t, fattable.FAT16, 4*1024*1024)
	defer dev.Close()

	require.NoError(t, vol.Mkdir("/docs"))
	_, stream, err := vol.OpenFile("/docs/hello.txt", fat.ModeCreate)
	require.NoError(t, err)

	_, err = stream.Write([]byte("hello, world"))
	require.NoError(t, err)
	require.NoError(t, vol.Flush())

	names, err := vol.Readdirnames("/")
	require.NoError(t, err)
	require.Contains(t, names, "docs")

	names, err = vol.Readdirnames("/docs")
	require.NoError(t, err)
	require.Contains(t, names, "hello.txt")

	entry, err := vol.Stat("/docs/hello.txt")
	require.NoError(t, err)
	require.Equal(t, uint32(len("hello, world")), entry.Size)
}

func TestFormatFAT32WriteReadRoundTrip(t *testing.T) {
	vol, dev := formatTemp(t, fattable.FAT32, 64*1024*1024)
	defer dev.Close()

	_, stream, err := vol.OpenFile("/big.bin", fat.ModeCreate)
	require.NoError(t, err)

	payload := make([]byte, 200*1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	_, err = stream.Write(payload)
	require.NoError(t, err)
	require.NoError(t, vol.Flush())

	_, readStream, err := vol.OpenFile("/big.bin", fat.ModeOpen)
	require.NoError(t, err)

	got, err := io.ReadAll(readStream)
	require.NoError(t, err)
	require.Equal(t, payload, got[:len(payload)])
}

func TestFormatFAT12RootDirFixed(t *testing.T) {
	vol, dev := formatTemp(t, fattable.FAT12, 1440*1024)
	defer dev.Close()

	require.NoError(t, vol.Mkdir("/a"))
	require.NoError(t, vol.Mkdir("/b"))

	names, err := vol.Readdirnames("/")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestRemoveAndRename(t *testing.T) {
	vol, dev := formatTemp(t, fattable.FAT16, 4*1024*1024)
	defer dev.Close()

	_, stream, err := vol.OpenFile("/file.txt", fat.ModeCreate)
	require.NoError(t, err)
	_, err = stream.Write([]byte("data"))
	require.NoError(t, err)

	require.NoError(t, vol.Rename("/file.txt", "/renamed.txt"))

	_, err = vol.Stat("/file.txt")
	require.ErrorIs(t, err, fat.ErrNotFound)

	_, err = vol.Stat("/renamed.txt")
	require.NoError(t, err)

	require.NoError(t, vol.Remove("/renamed.txt"))
	_, err = vol.Stat("/renamed.txt")
	require.ErrorIs(t, err, fat.ErrNotFound)
}
