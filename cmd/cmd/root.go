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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ostafen/gofatfs/internal/env"
)

const AppName = "gofatfs"

// verbose is set by the root command's persistent flag and read by
// openVolume/openVolumeWithTable/formatDevice to pick the logger's level.
var verbose bool

func Execute() error {
	rootCmd := &cobra.Command{
		Use:     AppName,
		Short:   AppName + " - read/write FAT12/16/32 filesystem tool",
		Version: fmt.Sprintf("%s (commit %s, built %s)", env.Version, env.CommitHash, env.BuildTime),
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log volume operations to stderr")

	rootCmd.AddCommand(
		DefineFormatCommand(),
		DefineInfoCommand(),
		DefineLsCommand(),
		DefineMkdirCommand(),
		DefineCopyCommand(),
		DefineRemoveCommand(),
		DefineDfCommand(),
		DefineMountCommand(),
	)

	return rootCmd.Execute()
}
