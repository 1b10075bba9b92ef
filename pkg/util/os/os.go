// Package os collects the small host-filesystem helpers the CLI needs
// outside the FAT volume itself: preparing a FUSE mountpoint and walking a
// host directory for `cp`'s directory-import mode.
package os

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// EnsureDir checks that dir exists and, if empty is true, that it has no
// entries yet — the precondition a FUSE mountpoint must satisfy before
// mount_linux.go hands it to the driver. If the directory does not exist, it
// attempts to create it with 0755 permissions.
func EnsureDir(dir string, empty bool) (bool, error) {
	finfo, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		err := os.Mkdir(dir, 0755)
		if err != nil {
			return false, fmt.Errorf("failed to create mountpoint %s: %w", dir, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat mountpoint %s: %w", dir, err)
	}

	if !finfo.IsDir() {
		return false, fmt.Errorf("mountpoint %s is not a directory", dir)
	}

	if !empty {
		return false, nil
	}

	isEmpty, err := IsDirEmpty(dir)
	if err != nil {
		return false, fmt.Errorf("failed to check if directory %s is empty: %w", dir, err)
	}

	if !isEmpty {
		return false, fmt.Errorf("directory %s is not empty", dir)
	}
	return false, nil
}

// IsDirEmpty returns true if the directory at path is empty, false otherwise.
// Returns an error if the path does not exist or is not a directory.
func IsDirEmpty(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	entries, err := f.Readdir(1)
	if err != nil {
		if err == io.EOF {
			return true, nil
		}
		return false, err
	}

	if len(entries) > 0 {
		return false, nil
	}
	return true, nil
}

// ListFiles resolves the host-side source of a `cp` directory import.
// If path is a regular file, it returns []string{path} so the caller can
// treat single-file and directory imports uniformly. If it's a directory,
// it returns every regular file directly inside it (non-recursive — nested
// subdirectories are not imported).
func ListFiles(path string) ([]string, error) {
	finfo, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %s: %w", path, err)
	}

	if finfo.Mode().IsRegular() {
		return []string{path}, nil
	}

	if !finfo.IsDir() {
		return nil, fmt.Errorf("path %s is neither a regular file nor a directory", path)
	}

	files := []string{}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		filePath := filepath.Join(path, entry.Name())
		files = append(files, filePath)
	}
	return files, nil
}

// CopyFile streams filePath's contents into dst, returning the number of
// bytes written. Used by `cp`'s import path, where dst wraps a FAT
// ClusterStream behind a progress-reporting io.Writer.
func CopyFile(dst io.Writer, filePath string) (int64, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return io.Copy(dst, f)
}
