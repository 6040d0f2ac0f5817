//go:build linux
// +build linux

// Package mount performs the actual overlay mount/unmount syscalls
// backing a Runtime's merged view. pkg/resolve only builds the
// lowerdir/upperdir/workdir option string; mounting itself is a CLI
// concern the resolver and solver never touch, so this package is
// invoked solely from the CLI's "runtime mount"/"runtime unmount"
// commands, as a standalone pair of functions over the paths a Runtime
// already carries (LowerDir entries, UpperDir, WorkDir, RootDir).
package mount

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// MountOverlay mounts an overlay filesystem at mountPoint, using
// lowerDirs (bottom to top) as the read-only stack and upperDir/workDir
// as the writable layer and overlay scratch space.
func MountOverlay(lowerDirs []string, upperDir, workDir, mountPoint string) error {
	if len(lowerDirs) == 0 {
		return fmt.Errorf("mount overlay: at least one lower directory is required")
	}
	for _, dir := range lowerDirs {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("mount overlay: lower directory not accessible: %s: %w", dir, err)
		}
	}
	for _, dir := range []string{upperDir, workDir, mountPoint} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mount overlay: create %s: %w", dir, err)
		}
	}

	// overlayfs's lowerdir option is topmost-first; our stack is
	// recorded bottom-to-top, so reverse it.
	reversed := make([]string, len(lowerDirs))
	for i, dir := range lowerDirs {
		reversed[len(lowerDirs)-1-i] = dir
	}

	options := fmt.Sprintf("lowerdir=%s,upperdir=%s,workdir=%s",
		strings.Join(reversed, ":"), upperDir, workDir)

	if err := unix.Mount("overlay", mountPoint, "overlay", 0, options); err != nil {
		return fmt.Errorf("mount overlay at %s: %w (options: %s)", mountPoint, err, options)
	}
	return nil
}

// Unmount unmounts mountPoint, falling back to a lazy (MNT_DETACH)
// unmount if the mount point is busy.
func Unmount(mountPoint string) error {
	if !isMounted(mountPoint) {
		return nil
	}
	if err := unix.Unmount(mountPoint, 0); err != nil {
		if err == unix.EBUSY {
			return unix.Unmount(mountPoint, unix.MNT_DETACH)
		}
		return fmt.Errorf("unmount %s: %w", mountPoint, err)
	}
	return nil
}

// isMounted reports whether path is a mount point, by comparing its
// device number against its parent's.
func isMounted(path string) bool {
	pathStat, err := os.Stat(path)
	if err != nil {
		return false
	}
	parentStat, err := os.Stat(filepath.Dir(path))
	if err != nil {
		return false
	}
	pathSys, ok := pathStat.Sys().(*unix.Stat_t)
	if !ok {
		return false
	}
	parentSys, ok := parentStat.Sys().(*unix.Stat_t)
	if !ok {
		return false
	}
	return pathSys.Dev != parentSys.Dev
}
