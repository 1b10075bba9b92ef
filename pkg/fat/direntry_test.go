package fat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/gofatfs/pkg/fat"
)

func TestDirEntryEncodeDecodeRoundTrip(t *testing.T) {
	cp := fat.DefaultCodePage()
	loc := time.UTC

	entry := fat.DirEntry{
		Name:           fat.Name{Short: "DATA.BIN", Long: "some data.bin"},
		Attributes:     fat.AttrArchive,
		FirstCluster:   0x00030002,
		Size:           123456,
		CreationTime:   time.Date(2023, time.June, 15, 10, 30, 42, 0, loc),
		CreationTenths: 50,
		LastAccessDate: time.Date(2023, time.June, 16, 0, 0, 0, 0, loc),
		LastWriteTime:  time.Date(2023, time.June, 17, 18, 2, 4, 0, loc),
	}

	buf, err := entry.Encode(cp, loc)
	require.NoError(t, err)
	require.Len(t, buf, entry.SlotCount()*32)

	decoded, consumed, kind, err := fat.DecodeDirEntry(buf, cp, loc)
	require.NoError(t, err)
	require.Equal(t, fat.KindName, kind)
	require.Equal(t, len(buf), consumed)

	require.Equal(t, entry.Name.Short, decoded.Name.Short)
	require.Equal(t, entry.Name.Long, decoded.Name.Long)
	require.Equal(t, entry.Attributes, decoded.Attributes)
	require.Equal(t, entry.FirstCluster, decoded.FirstCluster)
	require.Equal(t, entry.Size, decoded.Size)
	require.Equal(t, entry.CreationTenths, decoded.CreationTenths)
	require.True(t, entry.CreationTime.Equal(decoded.CreationTime))
	require.True(t, entry.LastAccessDate.Equal(decoded.LastAccessDate))
	require.True(t, entry.LastWriteTime.Equal(decoded.LastWriteTime))
}

// TestDirEntryEncodeZeroTimeFallsBackToEpoch checks that an entry built
// without explicit timestamps packs to the all-zero date/time fields and
// decodes back to the FAT epoch, 1980-01-01, rather than a negative or
// wrapped year.
func TestDirEntryEncodeZeroTimeFallsBackToEpoch(t *testing.T) {
	cp := fat.DefaultCodePage()
	loc := time.UTC

	entry := fat.DirEntry{Name: fat.Name{Short: "EMPTY.TXT"}}

	buf, err := entry.Encode(cp, loc)
	require.NoError(t, err)

	decoded, _, kind, err := fat.DecodeDirEntry(buf, cp, loc)
	require.NoError(t, err)
	require.Equal(t, fat.KindName, kind)

	require.Equal(t, 1980, decoded.CreationTime.Year())
	require.Equal(t, time.January, decoded.CreationTime.Month())
	require.Equal(t, 1, decoded.CreationTime.Day())
	require.Equal(t, 1980, decoded.LastAccessDate.Year())
}

// TestDirEntryEncodePreEpochTimeFallsBackToEpoch mirrors the same guard for
// a timestamp that predates the FAT epoch rather than being the zero value.
func TestDirEntryEncodePreEpochTimeFallsBackToEpoch(t *testing.T) {
	cp := fat.DefaultCodePage()
	loc := time.UTC

	entry := fat.DirEntry{
		Name:         fat.Name{Short: "OLD.TXT"},
		CreationTime: time.Date(1975, time.March, 3, 9, 0, 0, 0, loc),
	}

	buf, err := entry.Encode(cp, loc)
	require.NoError(t, err)

	decoded, _, _, err := fat.DecodeDirEntry(buf, cp, loc)
	require.NoError(t, err)
	require.Equal(t, 1980, decoded.CreationTime.Year())
}

// TestDirEntryFirstClusterSplitsAcrossHiLoFields checks the FAT32 hi/lo
// 16-bit cluster split survives a round trip, since FAT12/16 entries only
// ever populate the low half.
func TestDirEntryFirstClusterSplitsAcrossHiLoFields(t *testing.T) {
	cp := fat.DefaultCodePage()
	loc := time.UTC

	entry := fat.DirEntry{
		Name:         fat.Name{Short: "BIG.DAT"},
		FirstCluster: 0x000A0005,
	}

	buf, err := entry.Encode(cp, loc)
	require.NoError(t, err)

	decoded, _, _, err := fat.DecodeDirEntry(buf, cp, loc)
	require.NoError(t, err)
	require.Equal(t, entry.FirstCluster, decoded.FirstCluster)
}

func TestDirEntrySlotCountMatchesNameSlotCount(t *testing.T) {
	entry := fat.DirEntry{Name: fat.Name{Short: "FOO.TXT", Long: "a reasonably long name.txt"}}
	require.Equal(t, entry.Name.SlotCount(), entry.SlotCount())
}
