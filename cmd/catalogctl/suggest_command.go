package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/app"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

func newSuggestCommand(ctx *commandContext) *cobra.Command {
	var flags descriptorFlags

	cmd := &cobra.Command{
		Use:   "suggest [name...]",
		Short: "List catalog entries that may describe a product, without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := flags.descriptor(args)
			return ctx.withApp(cmd, func(a *app.App) error {
				candidates, err := a.Resolver.Suggest(cmd.Context(), &d)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if candidates == nil {
						candidates = []domain.Candidate{}
					}
					return writeJSON(cmd, candidates)
				}
				if len(candidates) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No matching catalog entries")
					return nil
				}

				rows := make([][]string, 0, len(candidates))
				for _, c := range candidates {
					rows = append(rows, []string{
						strconv.Itoa(c.Confidence),
						c.Entry.Name,
						c.Entry.Distillery,
						formatProof(c.Entry.Specs.Proof),
						c.Entry.ID,
						strings.Join(c.Reasons, ", "),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Score", "Name", "Distillery", "Proof", "Entry", "Reasons"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func formatProof(p float64) string {
	if p <= 0 {
		return ""
	}
	return strconv.FormatFloat(p, 'f', -1, 64)
}
