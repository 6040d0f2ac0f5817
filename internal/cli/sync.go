package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata/pkg/repo"
	"strata/pkg/repo/registry"
	"strata/pkg/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync SRC_REPO DEST_REPO REF",
	Short: "Copy REF and everything it depends on from SRC_REPO to DEST_REPO",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := repo.Open(args[0])
		if err != nil {
			return err
		}
		dest, err := repo.EnsureRepository(args[1])
		if err != nil {
			return err
		}

		result, err := sync.Ref(src, dest, args[2], func(ev sync.ProgressEvent) {
			if ev.Total > 0 {
				fmt.Printf("%s: %d/%d\n", ev.LayerDigest, ev.Processed, ev.Total)
			}
		})
		if err != nil {
			return err
		}
		fmt.Println(result.Ref.Digest)
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull REPO IMAGE_REF",
	Short: "Pull an OCI image from a registry into REPO as a Platform",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, err := repo.EnsureRepository(args[0])
		if err != nil {
			return err
		}
		platform, err := registry.Pull(args[1], dest, nil)
		if err != nil {
			return err
		}
		fmt.Println(platform.Digest)
		return nil
	},
}
