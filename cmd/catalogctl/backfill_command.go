package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/app"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/usecase"
)

func newBackfillCommand(ctx *commandContext) *cobra.Command {
	var job string
	var pages int

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Merge duplicate catalog entries, resuming from the last checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 0 {
				return errors.New("--pages must not be negative")
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				report, err := a.Backfiller.Run(cmd.Context(), job, pages)
				if report != nil {
					if printErr := printBackfill(ctx, cmd, report); printErr != nil {
						return errors.Join(err, printErr)
					}
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&job, "job", usecase.DefaultBackfillJob, "Checkpoint name")
	cmd.Flags().IntVar(&pages, "pages", 0, "Stop after this many pages (0 to scan the whole catalog)")
	return cmd
}

func printBackfill(ctx *commandContext, cmd *cobra.Command, report *usecase.BackfillReport) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, report)
	}
	out := cmd.OutOrStdout()

	status := "paused"
	if report.Completed {
		status = "complete"
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Job", "From", "To", "Scanned", "Merged", "Status"},
		[][]string{{
			report.Job,
			strconv.FormatInt(report.StartSeq, 10),
			strconv.FormatInt(report.LastSeq, 10),
			strconv.Itoa(report.Scanned),
			strconv.Itoa(report.Merged),
			status,
		}},
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	))

	if len(report.PossibleDuplicates) > 0 {
		rows := make([][]string, 0, len(report.PossibleDuplicates))
		for _, p := range report.PossibleDuplicates {
			rows = append(rows, []string{p.EntryID, p.CandidateID, strconv.Itoa(p.Confidence)})
		}
		fmt.Fprintln(out, "Possible duplicates for review:")
		fmt.Fprintln(out, renderTable([]string{"Entry", "Candidate", "Score"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight}))
	}
	return nil
}
