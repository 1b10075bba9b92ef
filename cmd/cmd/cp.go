package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ostafen/gofatfs/pkg/fat"
	"github.com/ostafen/gofatfs/pkg/pbar"
	"github.com/ostafen/gofatfs/pkg/reader"
	utilos "github.com/ostafen/gofatfs/pkg/util/os"
)

func DefineCopyCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "cp <image_path> <src> <dst>",
		Short:        "Copy a file into or out of the image (prefix either side with fat:)",
		Long: "Copy a file into or out of the image (prefix either side with fat:).\n" +
			"When src is a host directory, every regular file directly inside it is\n" +
			"copied into the fat: destination directory.",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[1], args[2]
			fatSrc, srcInFAT := strings.CutPrefix(src, "fat:")
			fatDst, dstInFAT := strings.CutPrefix(dst, "fat:")
			if srcInFAT == dstInFAT {
				return fmt.Errorf("exactly one of src/dst must be prefixed with fat:")
			}

			vol, closer, err := openVolume(args[0], !dstInFAT)
			if err != nil {
				return err
			}
			defer closer.Close()

			if dstInFAT {
				return copyInto(vol, src, fatDst)
			}
			return copyOut(vol, fatSrc, dst)
		},
	}
}

// copyInto writes localPath into the volume at fatPath. If localPath names a
// directory, every regular file directly under it is imported into fatPath,
// which must then already be a directory.
func copyInto(vol *fat.Volume, localPath, fatPath string) error {
	files, err := utilos.ListFiles(localPath)
	if err != nil {
		return err
	}

	singleFile := len(files) == 1 && files[0] == localPath
	for _, file := range files {
		dst := fatPath
		if !singleFile {
			dst = path.Join(fatPath, filepath.Base(file))
		}
		if err := copyFileInto(vol, file, dst); err != nil {
			return fmt.Errorf("copying %q: %w", file, err)
		}
	}
	return vol.Flush()
}

func copyFileInto(vol *fat.Volume, localPath, fatPath string) error {
	_, stream, err := vol.OpenFile(fatPath, fat.ModeCreate)
	if err != nil {
		return err
	}

	fi, err := os.Stat(localPath)
	if err != nil {
		return err
	}

	bar := pbar.NewProgressBarState(fi.Size())
	bar.Label = fatPath
	defer bar.Finish()

	n, err := utilos.CopyFile(progressWriter{w: stream, bar: bar}, localPath)
	if err != nil {
		return err
	}
	bar.ProcessedBytes = n
	bar.Render(true)
	return nil
}

// progressWriter drives a pbar.ProgressBarState as bytes flow through w,
// letting utilos.CopyFile's single io.Copy call still report progress.
type progressWriter struct {
	w   io.Writer
	bar *pbar.ProgressBarState
}

func (p progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.bar.ProcessedBytes += int64(n)
	p.bar.Render(false)
	return n, err
}

// copyOut extracts the file at fatPath through a buffered cluster reader,
// reporting progress against the entry's known on-disk length.
func copyOut(vol *fat.Volume, fatPath, localPath string) error {
	_, stream, err := vol.OpenFile(fatPath, fat.ModeOpen)
	if err != nil {
		return err
	}

	cr := reader.NewClusterReader(stream, 32*1024)

	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create file %q: %w", localPath, err)
	}
	defer out.Close()

	bar := pbar.NewProgressBarState(int64(cr.Len()))
	bar.Label = fatPath
	defer bar.Finish()

	w := bufio.NewWriterSize(out, 32*1024)
	buf := make([]byte, 32*1024)
	for {
		n, rerr := cr.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			bar.ProcessedBytes += int64(n)
			bar.Render(false)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	bar.Render(true)
	return w.Flush()
}
