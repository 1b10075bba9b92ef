package fat_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/gofatfs/pkg/fat"
)

func noExists(string) bool { return false }

func TestGenerateNameShort(t *testing.T) {
	cp := fat.DefaultCodePage()

	n, err := fat.GenerateName("README.TXT", cp, noExists)
	require.NoError(t, err)
	require.Equal(t, "README.TXT", n.Short)
	require.Empty(t, n.Long)
}

func TestGenerateNameLossyGetsLongName(t *testing.T) {
	cp := fat.DefaultCodePage()

	n, err := fat.GenerateName("a long file name.txt", cp, noExists)
	require.NoError(t, err)
	require.Equal(t, "a long file name.txt", n.Long)
	require.NotEmpty(t, n.Short)
	require.LessOrEqual(t, len(n.Short), 12)
}

func TestGenerateNameRejectsControlChars(t *testing.T) {
	cp := fat.DefaultCodePage()

	_, err := fat.GenerateName("bad\x01name.txt", cp, noExists)
	require.ErrorIs(t, err, fat.ErrInvalidName)
}

func TestGenerateNameRejectsEmpty(t *testing.T) {
	cp := fat.DefaultCodePage()

	_, err := fat.GenerateName("", cp, noExists)
	require.ErrorIs(t, err, fat.ErrInvalidName)
}

func TestNameEncodeDecodeRoundTripShort(t *testing.T) {
	cp := fat.DefaultCodePage()

	n, err := fat.GenerateName("FOO.TXT", cp, noExists)
	require.NoError(t, err)

	data, err := n.Encode(cp)
	require.NoError(t, err)
	require.Len(t, data, 32)

	decoded, consumed, kind, err := fat.DecodeName(data, cp)
	require.NoError(t, err)
	require.Equal(t, fat.KindName, kind)
	require.Equal(t, 32, consumed)
	require.Equal(t, "FOO.TXT", decoded.Short)
}

func TestNameEncodeDecodeRoundTripLong(t *testing.T) {
	cp := fat.DefaultCodePage()

	n, err := fat.GenerateName("a rather long file name.txt", cp, noExists)
	require.NoError(t, err)

	data, err := n.Encode(cp)
	require.NoError(t, err)
	require.Equal(t, n.SlotCount()*32, len(data))

	decoded, consumed, kind, err := fat.DecodeName(data, cp)
	require.NoError(t, err)
	require.Equal(t, fat.KindName, kind)
	require.Equal(t, n.SlotCount()*32, consumed)
	require.Equal(t, "a rather long file name.txt", decoded.Long)
	require.Equal(t, n.Short, decoded.Short)
}

func TestSelfAndParentNames(t *testing.T) {
	require.True(t, fat.SelfName().IsSelf())
	require.True(t, fat.ParentName().IsParent())
	require.False(t, fat.SelfName().IsParent())
}
