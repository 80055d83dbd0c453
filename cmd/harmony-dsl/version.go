package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aurabx/harmony-dsl/core/catalog"
)

var (
	// Set via ldflags at build time
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "harmony-dsl %s\n", version)
			fmt.Fprintf(out, "  commit:  %s\n", commit)
			fmt.Fprintf(out, "  built:   %s\n", buildDate)

			cat := catalog.Default()
			for _, d := range cat.Domains() {
				if doc, err := cat.Schema(d); err == nil {
					fmt.Fprintf(out, "  schema:  %s %s\n", d, doc.Version)
				}
			}
		},
	}
}
