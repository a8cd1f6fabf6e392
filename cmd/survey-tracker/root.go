package main

import (
	"github.com/spf13/cobra"
)

// version is set via -ldflags at build time.
var version = "(devel)"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "survey-tracker",
		Short:         "Leveled self-assessment survey tracker",
		Long:          "survey-tracker serves leveled surveys in the spiritual, physical and mental categories and tracks each visitor's progress.",
		Version:       version,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newCatalogCmd())

	return root
}
