package fat_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/gofatfs/pkg/fat"
)

func TestDefaultCodePageIsIBM437(t *testing.T) {
	cp := fat.DefaultCodePage()
	require.Equal(t, fat.IBM437, cp.ID())
}

// TestNewCodePageIsCachedByID checks that repeated lookups for the same id
// return the identical *CodePage instance rather than rebuilding its tables.
func TestNewCodePageIsCachedByID(t *testing.T) {
	var table [256]rune
	for b := range table {
		table[b] = rune(b)
	}

	cp1 := fat.NewCodePage(900, table)
	cp2 := fat.NewCodePage(900, table)
	require.Same(t, cp1, cp2)
}

func TestCodePageByIDFallsBackToDefaultForUnknownID(t *testing.T) {
	cp := fat.CodePageByID(999999)
	require.Equal(t, fat.IBM437, cp.ID())
}

// TestCodePageASCIIRoundTrip checks that every printable ASCII byte decodes
// to its own code point and re-encodes back to the same byte, since IBM437
// is ASCII-transparent in that range.
func TestCodePageASCIIRoundTrip(t *testing.T) {
	cp := fat.DefaultCodePage()
	for b := byte(0x20); b < 0x7F; b++ {
		r := cp.Decode(b)
		require.Equal(t, rune(b), r)

		back, ok := cp.Encode(r)
		require.True(t, ok)
		require.Equal(t, b, back)
	}
}

// TestCodePageToUpperASCII checks case-folding through the code page for the
// plain ASCII letters every short name is built from.
func TestCodePageToUpperASCII(t *testing.T) {
	cp := fat.DefaultCodePage()
	for b := byte('a'); b <= 'z'; b++ {
		upper, ok := cp.ToUpper(b)
		require.True(t, ok)
		require.Equal(t, b-('a'-'A'), upper)
	}
	for b := byte('A'); b <= 'Z'; b++ {
		upper, ok := cp.ToUpper(b)
		require.True(t, ok)
		require.Equal(t, b, upper)
	}
}

func TestCodePageToUpperNulByte(t *testing.T) {
	cp := fat.DefaultCodePage()
	upper, ok := cp.ToUpper(0)
	require.True(t, ok)
	require.Equal(t, byte(0), upper)
}
