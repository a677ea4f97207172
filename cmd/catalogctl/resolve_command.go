package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/app"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var flags descriptorFlags

	cmd := &cobra.Command{
		Use:   "resolve [name...]",
		Short: "Link one product to its catalog entry, creating it when nothing matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := flags.descriptor(args)
			d.Source = domain.SourceManual
			return ctx.withApp(cmd, func(a *app.App) error {
				result, err := a.Resolver.Resolve(cmd.Context(), &d)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Entry", "Outcome", "Confidence"},
					[][]string{{result.ResolvedID, string(result.Outcome), strconv.Itoa(result.Confidence)}},
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}
