// Command condgraph explores job lineage in scheduler XML exports.
package main

import (
	"os"

	"github.com/leapstack-labs/condgraph/internal/cli"
)

// Set at build time via -ldflags.
var (
	version   = ""
	commit    = ""
	buildDate = ""
)

func main() {
	if version != "" {
		cli.Version = version
	}
	if commit != "" {
		cli.GitCommit = commit
	}
	if buildDate != "" {
		cli.BuildDate = buildDate
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
