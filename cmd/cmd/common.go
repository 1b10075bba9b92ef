package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/ostafen/gofatfs/internal/blockdev"
	"github.com/ostafen/gofatfs/internal/fattable"
	"github.com/ostafen/gofatfs/internal/logger"
	"github.com/ostafen/gofatfs/pkg/fat"
)

// cliLogger builds the logger passed into fat.Params: quiet by default, or
// debug-level to stderr when -v/--verbose was given on the command line.
func cliLogger() *logger.Logger {
	if verbose {
		return logger.New(os.Stderr, logger.DebugLevel)
	}
	return logger.New(io.Discard, logger.WarnLevel)
}

// openVolume opens imagePath as a block device and mounts the FAT volume it
// contains.
func openVolume(imagePath string, readOnly bool) (*fat.Volume, io.Closer, error) {
	dev, err := blockdev.OpenFileDevice(imagePath, readOnly)
	if err != nil {
		return nil, nil, err
	}

	vol, _, err := fattable.Open(dev, fat.Params{
		ReadOnly: readOnly,
		Logger:   cliLogger(),
	})
	if err != nil {
		dev.Close()
		return nil, nil, fmt.Errorf("opening %s: %w", imagePath, err)
	}
	return vol, dev, nil
}

// openVolumeWithTable is like openVolume but also returns the underlying FAT
// table, for commands that need allocation-level statistics (e.g. df).
func openVolumeWithTable(imagePath string, readOnly bool) (*fat.Volume, *fattable.Table, io.Closer, error) {
	dev, err := blockdev.OpenFileDevice(imagePath, readOnly)
	if err != nil {
		return nil, nil, nil, err
	}

	vol, table, err := fattable.Open(dev, fat.Params{
		ReadOnly: readOnly,
		Logger:   cliLogger(),
	})
	if err != nil {
		dev.Close()
		return nil, nil, nil, fmt.Errorf("opening %s: %w", imagePath, err)
	}
	return vol, table, dev, nil
}

func formatDevice(dev blockdev.Device, opts fattable.FormatOptions) (*fat.Volume, error) {
	opts.Params = fat.Params{
		Logger: cliLogger(),
	}
	return fattable.Format(dev, opts)
}
