package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func DefineLsCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "ls <image_path> [path]",
		Short:        "List a directory's entries",
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 2 {
				path = args[1]
			}

			vol, closer, err := openVolume(args[0], true)
			if err != nil {
				return err
			}
			defer closer.Close()

			names, err := vol.Readdirnames(path)
			if err != nil {
				return err
			}
			sort.Strings(names)
			for _, name := range names {
				entry, err := vol.Stat(joinPath(path, name))
				if err != nil {
					fmt.Println(name)
					continue
				}
				if entry.Attributes.IsDir() {
					fmt.Printf("%10s  %s/\n", "<DIR>", name)
				} else {
					fmt.Printf("%10d  %s\n", entry.Size, name)
				}
			}
			return nil
		},
	}
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
