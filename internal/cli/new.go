package cli

import (
	"fmt"
	"os"
	"text/template"

	"github.com/spf13/cobra"
)

// specTemplate scaffolds a new package spec file, grounded on
// original_source's _cmd_new.py (textwrap.dedent f-string) ported to
// Go's text/template, the idiomatic substitute for f-string
// interpolation into a multi-line literal.
var specTemplate = template.Must(template.New("spec").Parse(`pkg: {{.Name}}/0.1.0

# opts declares the set of build options: packages that must be
# present in the build environment.
opts: []

# deps declares packages that must be present at runtime.
deps: []
`))

var newCmd = &cobra.Command{
	Use:   "new NAME",
	Short: "Generate a new package spec file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		path := name + ".yaml"

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()

		if err := specTemplate.Execute(f, struct{ Name string }{name}); err != nil {
			return fmt.Errorf("render spec template: %w", err)
		}
		fmt.Println("created:", path)
		return nil
	},
}
