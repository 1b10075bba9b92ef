package cmd

import "github.com/spf13/cobra"

func DefineRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "rm <image_path> <path>",
		Short:        "Remove a file or empty directory",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, closer, err := openVolume(args[0], false)
			if err != nil {
				return err
			}
			defer closer.Close()

			if err := vol.Remove(args[1]); err != nil {
				return err
			}
			return vol.Flush()
		},
	}
}
