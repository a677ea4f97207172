package usecase

import (
	"context"
	"fmt"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

const defaultFeedPageSize = 100

// SyncFeed pulls feed pages from the start of the feed and resolves each page as a
// batch until the feed is exhausted or maxRecords records have been seen
// (0 means no limit). Records the feed mapper rejected are reported as row errors.
func (r *Resolver) SyncFeed(ctx context.Context, feed domain.FeedSource, pageSize, maxRecords int) (*domain.BatchReport, error) {
	if pageSize <= 0 {
		pageSize = defaultFeedPageSize
	}

	total := &domain.BatchReport{}
	cursor := ""
	seen := 0
	for {
		if ctx.Err() != nil {
			total.Canceled = true
			return total, nil
		}

		limit := pageSize
		if maxRecords > 0 {
			limit = min(limit, maxRecords-seen)
		}
		page, err := feed.FetchPage(ctx, cursor, limit)
		if err != nil {
			return nil, fmt.Errorf("fetch feed page %q: %w", cursor, err)
		}

		for _, rejected := range page.Rejected {
			r.addError(total, rejected)
		}

		report, err := r.SyncRecords(ctx, page.Records)
		if err != nil {
			return nil, err
		}
		r.mergeReports(total, report)
		seen += len(page.Records) + len(page.Rejected)

		if report.Canceled {
			total.Canceled = true
			return total, nil
		}
		if page.NextCursor == "" || (maxRecords > 0 && seen >= maxRecords) {
			return total, nil
		}
		cursor = page.NextCursor
	}
}

func (r *Resolver) mergeReports(total, page *domain.BatchReport) {
	total.Rows = append(total.Rows, page.Rows...)
	total.Groups += page.Groups
	total.Counters.Created += page.Counters.Created
	total.Counters.Merged += page.Counters.Merged
	total.Counters.Existing += page.Counters.Existing
	total.Truncated += page.Truncated
	total.Counters.Failed += page.Truncated
	for _, e := range page.Errors {
		r.addError(total, e)
	}
}
