//go:build !linux
// +build !linux

package mount

import "fmt"

// MountOverlay is unsupported outside Linux: overlayfs is a Linux
// kernel filesystem.
func MountOverlay(lowerDirs []string, upperDir, workDir, mountPoint string) error {
	return fmt.Errorf("mount overlay: unsupported on this platform")
}

// Unmount is unsupported outside Linux.
func Unmount(mountPoint string) error {
	return fmt.Errorf("unmount: unsupported on this platform")
}
