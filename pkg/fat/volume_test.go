package fat_test

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/gofatfs/internal/blockdev"
	"github.com/ostafen/gofatfs/internal/fattable"
	"github.com/ostafen/gofatfs/pkg/fat"
)

// TestVolumeNestedDirectoriesAndNamesRoundTrip formats a small FAT16 image in
// memory, builds a nested directory tree mixing 8.3-only and long file
// names, and verifies every path resolves back to the right entry and file
// contents after a Flush.
func TestVolumeNestedDirectoriesAndNamesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.img")
	dev, err := blockdev.CreateFileDevice(path, 4*1024*1024)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	vol, err := fattable.Format(dev, fattable.FormatOptions{
		Type:              fattable.FAT16,
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		ReservedSectors:   1,
		NumFATs:           2,
		RootDirEntries:    512,
	})
	require.NoError(t, err)
	require.Equal(t, fat.FAT16, vol.FATType())

	require.NoError(t, vol.Mkdir("/docs"))
	require.NoError(t, vol.Mkdir("/docs/a long subdirectory name"))

	writeFile := func(p string, contents []byte) {
		_, stream, err := vol.OpenFile(p, fat.ModeCreate)
		require.NoError(t, err)
		_, err = stream.Write(contents)
		require.NoError(t, err)
	}

	writeFile("/README.TXT", []byte("short name at root"))
	writeFile("/docs/a long subdirectory name/notes for the team.md", []byte("nested long name"))
	writeFile("/docs/SUMMARY.TXT", []byte("nested short name"))

	require.NoError(t, vol.Flush())

	names, err := vol.Readdirnames("/")
	require.NoError(t, err)
	require.Contains(t, names, "README.TXT")
	require.Contains(t, names, "docs")

	names, err = vol.Readdirnames("/docs")
	require.NoError(t, err)
	require.Contains(t, names, "a long subdirectory name")
	require.Contains(t, names, "SUMMARY.TXT")

	_, entry, _, err := vol.ResolvePath("/docs/a long subdirectory name/notes for the team.md")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, "notes for the team.md", entry.Name.Display())

	_, stream, err := vol.OpenFile("/docs/a long subdirectory name/notes for the team.md", fat.ModeOpen)
	require.NoError(t, err)
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, "nested long name", string(data))

	_, stream, err = vol.OpenFile("/docs/SUMMARY.TXT", fat.ModeOpen)
	require.NoError(t, err)
	data, err = io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, "nested short name", string(data))

	root, rootEntry, pos, err := vol.ResolvePath("/")
	require.NoError(t, err)
	require.Nil(t, rootEntry)
	require.Zero(t, pos)
	require.NotNil(t, root)
}

// TestVolumeRenameAndRemove checks that a rename updates the resolvable path
// and that remove makes the old path disappear while leaving its siblings
// intact.
func TestVolumeRenameAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.img")
	dev, err := blockdev.CreateFileDevice(path, 4*1024*1024)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	vol, err := fattable.Format(dev, fattable.FormatOptions{
		Type:              fattable.FAT16,
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		ReservedSectors:   1,
		NumFATs:           2,
		RootDirEntries:    512,
	})
	require.NoError(t, err)

	_, stream, err := vol.OpenFile("/old name for a file.txt", fat.ModeCreate)
	require.NoError(t, err)
	_, err = stream.Write([]byte("payload"))
	require.NoError(t, err)

	_, stream, err = vol.OpenFile("/KEEP.TXT", fat.ModeCreate)
	require.NoError(t, err)
	_, err = stream.Write([]byte("keep me"))
	require.NoError(t, err)

	require.NoError(t, vol.Rename("/old name for a file.txt", "/new name for a file.txt"))

	_, _, _, err = vol.ResolvePath("/old name for a file.txt")
	require.Error(t, err)

	_, entry, _, err := vol.ResolvePath("/new name for a file.txt")
	require.NoError(t, err)
	require.Equal(t, "new name for a file.txt", entry.Name.Display())

	require.NoError(t, vol.Remove("/new name for a file.txt"))
	_, _, _, err = vol.ResolvePath("/new name for a file.txt")
	require.Error(t, err)

	_, entry, _, err = vol.ResolvePath("/KEEP.TXT")
	require.NoError(t, err)
	require.Equal(t, "KEEP.TXT", entry.Name.Display())
}
