package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata/pkg/repo"
)

var tagCmd = &cobra.Command{
	Use:   "tag REPO REF TAG",
	Short: "Point TAG at the object REF resolves to",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := repo.Open(args[0])
		if err != nil {
			return err
		}
		return r.Tag(args[1], args[2])
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls REPO",
	Short: "List every tag in a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := repo.Open(args[0])
		if err != nil {
			return err
		}
		tags, err := r.IterTags()
		if err != nil {
			return err
		}
		for _, t := range tags {
			fmt.Printf("%s\t%s\n", t.Tag, t.Target)
		}
		return nil
	},
}
