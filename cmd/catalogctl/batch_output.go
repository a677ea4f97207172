package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

// printBatch renders the counters, the per-row resolutions when requested and
// every reported row error
func (c *commandContext) printBatch(cmd *cobra.Command, report *domain.BatchReport, showRows bool) error {
	if c.jsonOutput() {
		return writeJSON(cmd, report)
	}
	out := cmd.OutOrStdout()

	summary := [][]string{
		{"Created", strconv.Itoa(report.Counters.Created)},
		{"Merged", strconv.Itoa(report.Counters.Merged)},
		{"Existing", strconv.Itoa(report.Counters.Existing)},
		{"Failed", strconv.Itoa(report.Counters.Failed)},
		{"Groups", strconv.Itoa(report.Groups)},
	}
	fmt.Fprintln(out, renderTable([]string{"Outcome", "Count"}, summary, []columnAlignment{alignLeft, alignRight}))

	if showRows && len(report.Rows) > 0 {
		rows := make([][]string, 0, len(report.Rows))
		for _, r := range report.Rows {
			rows = append(rows, []string{r.Ref, string(r.Outcome), r.ResolvedID})
		}
		fmt.Fprintln(out, renderTable([]string{"Row", "Outcome", "Entry"}, rows, nil))
	}

	if len(report.Errors) > 0 {
		rows := make([][]string, 0, len(report.Errors))
		for _, e := range report.Errors {
			rows = append(rows, []string{e.Ref, e.Kind, e.Message})
		}
		fmt.Fprintln(out, renderTable([]string{"Row", "Kind", "Error"}, rows, nil))
	}
	if report.Truncated > 0 {
		fmt.Fprintf(out, "%d more errors not shown\n", report.Truncated)
	}
	if report.Canceled {
		fmt.Fprintln(out, "Canceled before every row was resolved")
	}
	return nil
}
