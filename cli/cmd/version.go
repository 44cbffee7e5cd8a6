// Package cmd provides CLI commands for the seqfetch binary.
package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/docxology/seqfetch/types"
)

// VersionCommand returns the version command. It must not touch the
// network or any external tool.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			fmt.Printf("seqfetch %s (commit: %s)\n", types.Version, commit)
			return nil
		},
	}
}
