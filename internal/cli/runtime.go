package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata/pkg/cas"
	"strata/pkg/mount"
	"strata/pkg/repo"
	"strata/pkg/resolve"
)

var runtimeCmd = &cobra.Command{
	Use:   "runtime",
	Short: "Manage runtime working directories",
}

var runtimeNewCmd = &cobra.Command{
	Use:   "new REPO [LAYER_REF...]",
	Short: "Allocate a fresh runtime configured with the given layer/platform refs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := repo.Open(args[0])
		if err != nil {
			return err
		}
		rt, err := r.NewRuntime()
		if err != nil {
			return err
		}
		if len(args) > 1 {
			rt, err = r.MutateRuntime(rt.ID, func(rt *cas.Runtime) error {
				rt.Config.Layers = append(rt.Config.Layers, args[1:]...)
				return nil
			})
			if err != nil {
				return err
			}
		}
		fmt.Println(rt.ID)
		return nil
	},
}

// runtimeLowerDirs resolves rt's configured layers/platforms and
// renders each one, returning the overlay lowerdir stack (runtime's
// own lowerdir first, per resolve.OverlayOptions's ordering).
func runtimeLowerDirs(r *repo.Repository, rt *cas.Runtime) ([]string, error) {
	layers, err := resolve.LayersToPackages(r, rt.Config.Layers)
	if err != nil {
		return nil, err
	}
	dirs := []string{rt.LowerDir}
	for _, l := range layers {
		dir, err := r.Renderer.RenderLayer(l)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

var runtimeMountCmd = &cobra.Command{
	Use:   "mount REPO RUNTIME_ID",
	Short: "Mount a runtime's overlay filesystem at its root directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := repo.Open(args[0])
		if err != nil {
			return err
		}
		rt, err := r.GetRuntime(args[1])
		if err != nil {
			return err
		}
		lock, err := r.TryLockRuntime(rt.ID)
		if err != nil {
			return err
		}
		defer lock.Release()
		lowerDirs, err := runtimeLowerDirs(r, rt)
		if err != nil {
			return err
		}
		return mount.MountOverlay(lowerDirs, rt.UpperDir, rt.WorkDir, rt.RootDir)
	},
}

var runtimeUnmountCmd = &cobra.Command{
	Use:   "unmount REPO RUNTIME_ID",
	Short: "Unmount a runtime's root directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := repo.Open(args[0])
		if err != nil {
			return err
		}
		rt, err := r.GetRuntime(args[1])
		if err != nil {
			return err
		}
		lock, err := r.TryLockRuntime(rt.ID)
		if err != nil {
			return err
		}
		defer lock.Release()
		return mount.Unmount(rt.RootDir)
	},
}

var runtimeCommitCmd = &cobra.Command{
	Use:   "commit REPO RUNTIME_ID",
	Short: "Commit a runtime's writable layer as a new package and platform",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := repo.Open(args[0])
		if err != nil {
			return err
		}
		rt, err := r.GetRuntime(args[1])
		if err != nil {
			return err
		}
		lock, err := r.TryLockRuntime(rt.ID)
		if err != nil {
			return err
		}
		defer lock.Release()
		platform, err := r.CommitPlatform(rt, nil)
		if err != nil {
			return err
		}
		fmt.Println(platform.Digest)
		return nil
	},
}

func init() {
	runtimeCmd.AddCommand(runtimeNewCmd)
	runtimeCmd.AddCommand(runtimeMountCmd)
	runtimeCmd.AddCommand(runtimeUnmountCmd)
	runtimeCmd.AddCommand(runtimeCommitCmd)
}
