package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/app"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/infrastructure/importsrc"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var mappings []string
	var showRows bool

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Resolve a spreadsheet export against the catalog",
		Long: "Resolve every row of a CSV export. Columns named like the logical fields " +
			"(wine, producer, iwine, proof, barcode, ...) bind automatically; use --map to bind others.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer file.Close()

			table, err := importsrc.ReadCSV(file)
			if err != nil {
				return err
			}
			mapping, err := importsrc.ParseMapping(importsrc.AutoMapping(table.Headers), mappings)
			if err != nil {
				return err
			}
			if mapping[domain.FieldWine] == "" && mapping[domain.FieldExternalID] == "" {
				return fmt.Errorf("no column bound to %q or %q; use --map %s=<Header>",
					domain.FieldWine, domain.FieldExternalID, domain.FieldWine)
			}

			return ctx.withApp(cmd, func(a *app.App) error {
				report, err := a.Resolver.ImportRows(cmd.Context(), table.Rows, mapping)
				if err != nil {
					return err
				}
				return ctx.printBatch(cmd, report, showRows)
			})
		},
	}

	cmd.Flags().StringArrayVarP(&mappings, "map", "m", nil, "Bind a field to a column header as field=Header (repeatable)")
	cmd.Flags().BoolVar(&showRows, "rows", false, "List the entry each row resolved to")
	return cmd
}
