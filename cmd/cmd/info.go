package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ostafen/gofatfs/pkg/sysinfo"
	"github.com/ostafen/gofatfs/pkg/util/format"
)

func DefineInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "info <image_path>",
		Short:        "Print FAT type, code page and usage for an image",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, table, closer, err := openVolumeWithTable(args[0], true)
			if err != nil {
				return err
			}
			defer closer.Close()

			free, total := table.Stats()
			bpc := table.BytesPerCluster()

			fmt.Printf("type:      %s\n", vol.FATType())
			fmt.Printf("read-only: %v\n", !vol.CanWrite())
			fmt.Printf("code page: %d\n", vol.CodePage().ID())
			fmt.Printf("capacity:  %s\n", format.FormatClusters(total, bpc))
			fmt.Printf("free:      %s\n", format.FormatClusters(free, bpc))

			if host, err := sysinfo.Stat(); err == nil {
				fmt.Printf("host:      %s %s (%s)\n", host.Name, host.Release, host.Version)
				if host.CaseSensitiveHostFS() {
					fmt.Println("note:      FAT names are case-insensitive; files differing only in case on this host will collide on the volume")
				}
			}
			return nil
		},
	}
}
