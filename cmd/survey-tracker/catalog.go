package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/terra-clan/survey-tracker/internal/catalog"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect survey catalogs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective catalog as YAML",
		Long:  "Print the catalog the server would use: CATALOG_FILE when set, the built-in catalog otherwise.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(os.Getenv("CATALOG_FILE"))
			if err != nil {
				return err
			}

			data, err := cat.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a catalog file",
		Long:  "Validate a catalog file, or the built-in catalog when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			cat, err := catalog.Load(path)
			if err != nil {
				return err
			}

			name := path
			if name == "" {
				name = "built-in catalog"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d categories)\n", name, len(cat.Categories()))
			return nil
		},
	})

	return cmd
}
