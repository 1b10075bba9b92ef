//go:build !linux
// +build !linux

package vfatfuse

import (
	"fmt"

	"github.com/ostafen/gofatfs/pkg/fat"
)

// Mount is only implemented on Linux; other platforms get a clear error
// rather than a silent no-op.
func Mount(mountpoint string, vol *fat.Volume) error {
	return fmt.Errorf("FUSE mount is only supported on Linux")
}
