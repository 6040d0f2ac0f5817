package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// convertCmd shells out to an external strata-convert-<name>
// collaborator, exactly as the original's _cmd_convert.py invokes
// spk-convert-<name>: package conversion from a foreign packaging
// system is treated as a pluggable external program, not something
// strata implements itself.
var convertCmd = &cobra.Command{
	Use:                "convert CONVERTER [ARGS...]",
	Short:              "Convert a package from an external packaging system",
	Args:               cobra.MinimumNArgs(1),
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := fmt.Sprintf("strata-convert-%s", args[0])
		binary, err := exec.LookPath(name)
		if err != nil {
			return fmt.Errorf("convert: %s not found on PATH: %w", name, err)
		}
		c := exec.Command(binary, args[1:]...)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return c.Run()
	},
}
