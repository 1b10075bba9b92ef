package fat_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/gofatfs/internal/blockdev"
	"github.com/ostafen/gofatfs/internal/fattable"
	"github.com/ostafen/gofatfs/pkg/fat"
)

func rootDirOf(t *testing.T) *fat.Directory {
	t.Helper()

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

	root, _, _, err := vol.ResolvePath("/")
	require.NoError(t, err)
	return root
}

func addNamed(t *testing.T, dir *fat.Directory, raw string) uint32 {
	t.Helper()
	cp := fat.DefaultCodePage()
	name, err := fat.GenerateName(raw, cp, func(s string) bool {
		_, ok := dir.FindShort(s)
		return ok
	})
	require.NoError(t, err)
	pos, err := dir.AddEntry(fat.DirEntry{Name: name})
	require.NoError(t, err)
	return pos
}

// TestDirectoryFindVsFindShort reproduces the collision a LFN-bearing entry
// used to hide from short-name collision checks: Find only indexes by full
// (display) name, so an entry that has a long name is only reachable by its
// short name through FindShort.
func TestDirectoryFindVsFindShort(t *testing.T) {
	dir := rootDirOf(t)

	pos := addNamed(t, dir, "a long file name.txt")
	entry, ok := dir.GetEntry(pos)
	require.True(t, ok)
	require.NotEmpty(t, entry.Name.Long)

	_, ok = dir.Find(fat.Name{Short: entry.Name.Short})
	require.False(t, ok, "Find must not match a long-named entry by its short name alone")

	foundPos, ok := dir.FindShort(entry.Name.Short)
	require.True(t, ok)
	require.Equal(t, pos, foundPos)

	_, ok = dir.Find(entry.Name)
	require.True(t, ok, "Find still matches the entry by its full display name")
}

// TestDirectoryAddEntryRejectsShortNameCollision exercises the uniqueness
// invariant AddEntry itself enforces: two entries cannot share a short name
// even when their long names differ.
func TestDirectoryAddEntryRejectsShortNameCollision(t *testing.T) {
	dir := rootDirOf(t)

	_, err := dir.AddEntry(fat.DirEntry{Name: fat.Name{Short: "FOO.TXT"}})
	require.NoError(t, err)

	_, err = dir.AddEntry(fat.DirEntry{Name: fat.Name{Short: "FOO.TXT", Long: "foo.txt (copy)"}})
	require.ErrorIs(t, err, fat.ErrAlreadyExists)
}

// TestDirectoryDeleteEntryFreesSlotsForReuse mirrors the deletion/reuse
// scenario: two long-named entries are created, the first is deleted, and
// its freed 3-slot run is handed back out to three single-slot short names
// one slot at a time, in increasing offset order.
func TestDirectoryDeleteEntryFreesSlotsForReuse(t *testing.T) {
	dir := rootDirOf(t)

	pos1 := addNamed(t, dir, "FOO_long_entry_1")
	entry1, ok := dir.GetEntry(pos1)
	require.True(t, ok)
	require.Equal(t, 3, entry1.SlotCount(), "16-char basename needs 2 LFN slots plus the SFN slot")

	pos2 := addNamed(t, dir, "FOO_long_entry_2")
	require.Equal(t, pos1+3*32, pos2)

	require.NoError(t, dir.DeleteEntry(pos1, false))

	posTA := addNamed(t, dir, "TA")
	posTB := addNamed(t, dir, "TB")
	posTC := addNamed(t, dir, "TC")

	require.Equal(t, pos1, posTA)
	require.Equal(t, pos1+32, posTB)
	require.Equal(t, pos1+64, posTC)
}

func TestDirectoryRemoveNonexistentEntry(t *testing.T) {
	dir := rootDirOf(t)
	err := dir.DeleteEntry(12345, false)
	require.ErrorIs(t, err, fat.ErrNotFound)
}
