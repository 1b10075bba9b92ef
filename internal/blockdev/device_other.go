//go:build !windows
// +build !windows

package blockdev

// isRawDevicePath reports whether path names a raw device requiring
// platform-specific opening rather than a plain os.File. Outside Windows,
// device nodes (e.g. /dev/sdb) are ordinary files as far as open(2) is
// concerned, so there is nothing special to detect here.
func isRawDevicePath(path string) bool { return false }

func openRawDevice(path string, readOnly bool) (Device, error) {
	panic("blockdev: openRawDevice called on a non-raw path")
}
