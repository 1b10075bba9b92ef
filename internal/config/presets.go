// Package config loads named FAT geometry presets (the sizes cobra's format
// command offers by name, e.g. "floppy1440" or "fat32-generic") from a YAML
// document, so new presets can be added without touching the binary.
package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ostafen/gofatfs/internal/fattable"
)

// Preset names a reusable FormatOptions template.
type Preset struct {
	Name              string `yaml:"name"`
	Type              string `yaml:"type"` // "fat12", "fat16", "fat32"
	BytesPerSector    uint32 `yaml:"bytesPerSector"`
	SectorsPerCluster uint32 `yaml:"sectorsPerCluster"`
	ReservedSectors   uint32 `yaml:"reservedSectors"`
	NumFATs           uint32 `yaml:"numFATs"`
	RootDirEntries    uint16 `yaml:"rootDirEntries"`
	VolumeLabel       string `yaml:"volumeLabel"`
}

// Presets is a named collection, as loaded from a presets.yaml document.
type Presets struct {
	Presets []Preset `yaml:"presets"`
}

// DefaultPresets mirrors the common real-world FAT geometries: the 1.44MB
// floppy (FAT12), a small FAT16 volume, and a generic FAT32 layout.
var DefaultPresets = Presets{
	Presets: []Preset{
		{Name: "floppy1440", Type: "fat12", BytesPerSector: 512, SectorsPerCluster: 1, ReservedSectors: 1, NumFATs: 2, RootDirEntries: 224, VolumeLabel: "FLOPPY"},
		{Name: "fat16-generic", Type: "fat16", BytesPerSector: 512, SectorsPerCluster: 4, ReservedSectors: 1, NumFATs: 2, RootDirEntries: 512, VolumeLabel: "NO NAME"},
		{Name: "fat32-generic", Type: "fat32", BytesPerSector: 512, SectorsPerCluster: 8, ReservedSectors: 32, NumFATs: 2, VolumeLabel: "NO NAME"},
	},
}

// Load parses a presets document from r. The format command does not call
// it; it looks presets up in DefaultPresets.
func Load(r io.Reader) (Presets, error) {
	var p Presets
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&p); err != nil {
		return Presets{}, fmt.Errorf("decoding presets: %w", err)
	}
	return p, nil
}

// Find returns the named preset from p, falling back to DefaultPresets.
func (p Presets) Find(name string) (Preset, bool) {
	for _, preset := range p.Presets {
		if preset.Name == name {
			return preset, true
		}
	}
	for _, preset := range DefaultPresets.Presets {
		if preset.Name == name {
			return preset, true
		}
	}
	return Preset{}, false
}

// FormatOptions translates the preset into fattable.FormatOptions.
func (p Preset) FormatOptions() (fattable.FormatOptions, error) {
	var typ fattable.FATType
	switch p.Type {
	case "fat12":
		typ = fattable.FAT12
	case "fat16":
		typ = fattable.FAT16
	case "fat32":
		typ = fattable.FAT32
	default:
		return fattable.FormatOptions{}, fmt.Errorf("config: unknown FAT type %q in preset %q", p.Type, p.Name)
	}
	return fattable.FormatOptions{
		Type:              typ,
		BytesPerSector:    p.BytesPerSector,
		SectorsPerCluster: p.SectorsPerCluster,
		ReservedSectors:   p.ReservedSectors,
		NumFATs:           p.NumFATs,
		RootDirEntries:    p.RootDirEntries,
		VolumeLabel:       p.VolumeLabel,
	}, nil
}
