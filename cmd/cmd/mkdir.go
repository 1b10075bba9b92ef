package cmd

import "github.com/spf13/cobra"

func DefineMkdirCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "mkdir <image_path> <path>",
		Short:        "Create a directory",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, closer, err := openVolume(args[0], false)
			if err != nil {
				return err
			}
			defer closer.Close()

			if err := vol.Mkdir(args[1]); err != nil {
				return err
			}
			return vol.Flush()
		},
	}
}
