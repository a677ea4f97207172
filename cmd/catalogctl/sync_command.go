package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/app"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var maxRecords int
	var pageSize int
	var showRows bool
	var feedIDs []string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull the external product feed into the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxRecords < 0 {
				return errors.New("--max must not be negative")
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				if a.Feed == nil {
					return errors.New("external feed is not configured; set feed.base_url")
				}
				if len(feedIDs) > 0 {
					records := make([]domain.ExternalRecord, 0, len(feedIDs))
					for _, id := range feedIDs {
						rec, err := a.Feed.GetRecord(cmd.Context(), id)
						if err != nil {
							return fmt.Errorf("fetch feed record %s: %w", id, err)
						}
						records = append(records, *rec)
					}
					report, err := a.Resolver.SyncRecords(cmd.Context(), records)
					if err != nil {
						return err
					}
					return ctx.printBatch(cmd, report, true)
				}

				size := pageSize
				if size <= 0 {
					size = a.Config.Feed.PageSize
				}
				report, err := a.Resolver.SyncFeed(cmd.Context(), a.Feed, size, maxRecords)
				if err != nil {
					return err
				}
				return ctx.printBatch(cmd, report, showRows)
			})
		},
	}

	cmd.Flags().IntVar(&maxRecords, "max", 0, "Stop after this many records (0 for the whole feed)")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Records per feed request (defaults to feed.page_size)")
	cmd.Flags().BoolVar(&showRows, "rows", false, "List the entry each record resolved to")
	cmd.Flags().StringArrayVar(&feedIDs, "id", nil, "Sync only this feed record (repeatable)")
	return cmd
}
