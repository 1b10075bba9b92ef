// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ostafen/gofatfs/internal/vfatfuse"
)

func DefineMountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mount <image_path> [mountpoint]",
		Short:        "Mount a FAT image as a FUSE filesystem",
		Long:         `The 'mount' command serves a FAT image as a FUSE filesystem until a termination signal unmounts it.`,
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE:         RunMount,
	}

	cmd.Flags().BoolP("read-only", "r", false, "Mount the image read-only")
	return cmd
}

func RunMount(cmd *cobra.Command, args []string) error {
	readOnly, _ := cmd.Flags().GetBool("read-only")

	mountpoint := ""
	if len(args) == 2 {
		mountpoint = args[1]
	} else {
		mountpoint = defaultMountpoint(args[0])
	}

	vol, closer, err := openVolume(args[0], readOnly)
	if err != nil {
		return err
	}
	defer closer.Close()

	return vfatfuse.Mount(mountpoint, vol)
}

// defaultMountpoint derives a mountpoint name from the image path by
// stripping its extension and appending "_mnt".
func defaultMountpoint(imagePath string) string {
	baseName := filepath.Base(imagePath)
	ext := filepath.Ext(baseName)
	baseName = strings.TrimSuffix(baseName, ext)
	if baseName == "" {
		return "image_mnt"
	}
	return baseName + "_mnt"
}
