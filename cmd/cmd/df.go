package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ostafen/gofatfs/pkg/util/format"
)

func DefineDfCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "df <image_path>",
		Short:        "Report free and used cluster space for an image",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, table, closer, err := openVolumeWithTable(args[0], true)
			if err != nil {
				return err
			}
			defer closer.Close()

			free, total := table.Stats()
			used := total - free
			bpc := table.BytesPerCluster()

			fmt.Printf("total: %s\n", format.FormatClusters(total, bpc))
			fmt.Printf("used:  %s\n", format.FormatClusters(used, bpc))
			fmt.Printf("free:  %s\n", format.FormatClusters(free, bpc))
			return nil
		},
	}
}
