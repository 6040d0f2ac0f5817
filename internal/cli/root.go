// Package cli implements strata's command-line surface: cobra commands
// wired directly onto pkg/repo, pkg/solve, pkg/sync, pkg/resolve,
// pkg/render and pkg/mount. rootCmd follows the usual cobra pattern of
// a bare root plus init()-time AddCommand wiring; the command set
// itself manages package repositories and dependency solves rather
// than containers.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"strata/internal/obslog"
)

var (
	// Version is the CLI's reported version string.
	Version = "0.1.0"

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Content-addressed package manager",
	Long: `strata stores directory trees as hash-identified blobs composed
into stacked runtime filesystems, and resolves package dependency
graphs with a backtracking solver over those filesystems.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			obslog.SetLevel(logrus.DebugLevel)
		}
	},
}

// Execute runs the root command, exiting the process with status 1 on
// error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "strata:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(blobCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(runtimeCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(convertCmd)
}
