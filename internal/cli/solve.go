package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata/internal/specfile"
	"strata/pkg/solve"
)

var solveSpecDir string

var solveCmd = &cobra.Command{
	Use:   "solve PKG [PKG...]",
	Short: "Resolve a set of package requests against a spec directory",
	Long: `solve resolves PKG (and, transitively, their dependencies) by
backtracking search over the spec files under --specs. Each PKG is a
package name, optionally followed by a version range, e.g.
"mypkg<2.0.0". On success, the resolved package list is printed in
solution order (providers before consumers); on failure, the requested
package names that could not be satisfied are printed instead, not the
(nonexistent) resolved set — spec.md's documented UNRESOLVE formatter
behavior is deliberately not reproduced here.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if solveSpecDir == "" {
			return fmt.Errorf("solve: --specs is required")
		}
		fsrepo := specfile.NewFSRepository("local", solveSpecDir)
		engine := solve.NewEngine(fsrepo)

		requests := make([]solve.PkgRequest, 0, len(args))
		for _, a := range args {
			requests = append(requests, parsePkgRequest(a))
		}

		solution, err := engine.SolveRequests(requests, nil)
		if err != nil {
			fmt.Println("unresolved:")
			for _, r := range requests {
				fmt.Printf("  %s%s\n", r.Name, r.Range)
			}
			return err
		}

		for _, e := range solution.Entries {
			fmt.Println(e.Spec.Pkg.String())
		}
		return nil
	},
}

// parsePkgRequest splits "name<range" / "name>=range" / bare "name"
// into a PkgRequest; the solver's own validators are what actually
// interpret the range operator, so this only has to find the split
// point.
func parsePkgRequest(arg string) solve.PkgRequest {
	for i, r := range arg {
		switch r {
		case '<', '>', '=':
			return solve.PkgRequest{Name: arg[:i], Range: arg[i:]}
		}
	}
	return solve.PkgRequest{Name: arg}
}

func init() {
	solveCmd.Flags().StringVar(&solveSpecDir, "specs", "", "directory of package spec YAML files")
}
