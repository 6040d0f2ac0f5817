package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata/pkg/repo"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage repositories",
}

var repoInitCmd = &cobra.Command{
	Use:   "init PATH",
	Short: "Create (or open) a repository at PATH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := repo.EnsureRepository(args[0])
		if err != nil {
			return err
		}
		fmt.Println(r.Root())
		return nil
	},
}

func init() {
	repoCmd.AddCommand(repoInitCmd)
}
