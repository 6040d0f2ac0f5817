package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"strata/pkg/digest"
	"strata/pkg/repo"
)

var blobCmd = &cobra.Command{
	Use:   "blob",
	Short: "Inspect and write individual blobs",
}

var blobPutCmd = &cobra.Command{
	Use:   "put REPO [FILE]",
	Short: "Write a blob from FILE (or stdin) and print its digest",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := repo.Open(args[0])
		if err != nil {
			return err
		}

		var in io.Reader = os.Stdin
		if len(args) == 2 {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		d, _, err := r.Blobs.Write(in)
		if err != nil {
			return err
		}
		fmt.Println(d)
		return nil
	},
}

var blobGetCmd = &cobra.Command{
	Use:   "get REPO DIGEST",
	Short: "Write a blob's content to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := repo.Open(args[0])
		if err != nil {
			return err
		}
		d, err := digest.Parse(args[1])
		if err != nil {
			return err
		}
		rc, err := r.Blobs.Open(d)
		if err != nil {
			return err
		}
		defer rc.Close()
		_, err = io.Copy(os.Stdout, rc)
		return err
	},
}

func init() {
	blobCmd.AddCommand(blobPutCmd)
	blobCmd.AddCommand(blobGetCmd)
}
