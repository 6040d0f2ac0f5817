// Command strata is the content-addressed package manager's CLI
// entrypoint.
package main

import (
	"strata/internal/cli"
)

func main() {
	cli.Execute()
}
