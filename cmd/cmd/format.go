package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ostafen/gofatfs/internal/blockdev"
	"github.com/ostafen/gofatfs/internal/config"
)

func DefineFormatCommand() *cobra.Command {
	var preset string
	var sizeMB int64
	var label string

	cmd := &cobra.Command{
		Use:          "format <image_path>",
		Short:        "Create a fresh FAT12/16/32 image",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := config.DefaultPresets.Find(preset)
			if !ok {
				return fmt.Errorf("unknown preset %q", preset)
			}
			opts, err := p.FormatOptions()
			if err != nil {
				return err
			}
			if label != "" {
				opts.VolumeLabel = label
			}

			dev, err := blockdev.CreateFileDevice(args[0], sizeMB*1024*1024)
			if err != nil {
				return err
			}
			defer dev.Close()

			vol, err := formatDevice(dev, opts)
			if err != nil {
				return err
			}
			return vol.Flush()
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "fat32-generic", "geometry preset (floppy1440, fat16-generic, fat32-generic)")
	cmd.Flags().Int64Var(&sizeMB, "size-mb", 64, "image size in megabytes")
	cmd.Flags().StringVar(&label, "label", "", "volume label")
	return cmd
}
