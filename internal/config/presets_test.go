package config_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/gofatfs/internal/config"
	"github.com/ostafen/gofatfs/internal/fattable"
)

func TestFindDefaultPreset(t *testing.T) {
	p, ok := config.Presets{}.Find("floppy1440")
	require.True(t, ok)
	require.Equal(t, "fat12", p.Type)

	opts, err := p.FormatOptions()
	require.NoError(t, err)
	require.Equal(t, fattable.FAT12, opts.Type)
}

func TestFindUnknownPreset(t *testing.T) {
	_, ok := config.Presets{}.Find("does-not-exist")
	require.False(t, ok)
}

func TestLoadOverridesDefaults(t *testing.T) {
	doc := `
presets:
  - name: custom
    type: fat16
    bytesPerSector: 512
    sectorsPerCluster: 2
    reservedSectors: 1
    numFATs: 2
    rootDirEntries: 256
    volumeLabel: CUSTOM
`
	loaded, err := config.Load(strings.NewReader(doc))
	require.NoError(t, err)

	p, ok := loaded.Find("custom")
	require.True(t, ok)
	require.Equal(t, uint32(2), p.SectorsPerCluster)

	// Defaults remain reachable through the same Find call.
	_, ok = loaded.Find("fat32-generic")
	require.True(t, ok)
}

func TestPresetFormatOptionsRejectsUnknownType(t *testing.T) {
	p := config.Preset{Name: "bad", Type: "fat64"}
	_, err := p.FormatOptions()
	require.Error(t, err)
}
