package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

const (
	defaultBackfillPageSize = 200
	DefaultBackfillJob      = "dedupe"
)

// DuplicatePair is a possible duplicate left for review
type DuplicatePair struct {
	EntryID     string   `json:"entryId"`
	CandidateID string   `json:"candidateId"`
	Confidence  int      `json:"confidence"`
	Reasons     []string `json:"reasons,omitempty"`
}

// BackfillReport summarizes one backfill run
type BackfillReport struct {
	Job                string          `json:"job"`
	StartSeq           int64           `json:"startSeq"`
	LastSeq            int64           `json:"lastSeq"`
	Scanned            int             `json:"scanned"`
	Merged             int             `json:"merged"`
	PossibleDuplicates []DuplicatePair `json:"possibleDuplicates,omitempty"`
	Completed          bool            `json:"completed"`
}

// Backfiller rescans the catalog for entries that duplicate an older entry and
// merges them. Progress is checkpointed after every page so a run can stop at any
// point and resume later.
type Backfiller struct {
	store       domain.CatalogStore
	checkpoints domain.CheckpointStore
	generator   *CandidateGenerator
	scorer      *Scorer
	merger      *MergeExecutor
	policy      Policy
	logger      *slog.Logger
	pageSize    int
}

// NewBackfiller creates a backfiller sharing the resolver's thresholds
func NewBackfiller(
	store domain.CatalogStore,
	checkpoints domain.CheckpointStore,
	logger *slog.Logger,
	config ResolverConfig,
	pageSize int,
) *Backfiller {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 {
		pageSize = defaultBackfillPageSize
	}
	return &Backfiller{
		store:       store,
		checkpoints: checkpoints,
		generator:   NewCandidateGenerator(store, logger, config.StrategyConcurrency),
		scorer:      NewScorer(NewNormalizer(nil), nil),
		merger:      NewMergeExecutor(store, logger, config.Now),
		policy:      config.Policy.normalized(),
		logger:      logger,
		pageSize:    pageSize,
	}
}

// Run resumes job from its checkpoint and processes at most maxPages pages
// (0 means until the catalog is exhausted). Cancelling ctx stops after the current
// entry with the checkpoint saved.
func (b *Backfiller) Run(ctx context.Context, job string, maxPages int) (*BackfillReport, error) {
	if job == "" {
		job = DefaultBackfillJob
	}
	after, err := b.checkpoints.LoadCheckpoint(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %q: %w", job, err)
	}
	report := &BackfillReport{Job: job, StartSeq: after, LastSeq: after}

	for pages := 0; maxPages == 0 || pages < maxPages; pages++ {
		page, err := b.store.Scan(ctx, after, b.pageSize)
		if err != nil {
			return report, fmt.Errorf("scan after %d: %w", after, err)
		}
		if len(page) == 0 {
			report.Completed = true
			break
		}

		for _, entry := range page {
			if ctx.Err() != nil {
				return report, b.save(context.WithoutCancel(ctx), job, after)
			}
			if err := b.processEntry(ctx, entry, report); err != nil {
				_ = b.save(context.WithoutCancel(ctx), job, after)
				return report, err
			}
			after = entry.Seq
			report.LastSeq = after
			report.Scanned++
		}

		if err := b.save(ctx, job, after); err != nil {
			return report, err
		}
		b.logger.Info("backfill page done",
			"job", job, "last_seq", after, "scanned", report.Scanned, "merged", report.Merged)
	}
	return report, nil
}

// processEntry merges entry into the best older candidate when it clears the merge
// threshold, and records weaker older candidates as possible duplicates
func (b *Backfiller) processEntry(ctx context.Context, entry domain.CanonicalEntry, report *BackfillReport) error {
	// The page is a snapshot; the entry may have been merged earlier in this run.
	current, err := b.store.Get(ctx, entry.ID)
	if err != nil {
		return fmt.Errorf("reload %s: %w", entry.ID, err)
	}
	if current.MergedInto != "" {
		return nil
	}

	d := descriptorFromEntry(current)
	entries, err := b.generator.Fuzzy(ctx, &d)
	if err != nil {
		return err
	}

	var older []domain.CanonicalEntry
	for _, e := range entries {
		if e.ID != current.ID && e.MergedInto == "" && e.Seq < current.Seq {
			older = append(older, e)
		}
	}
	if len(older) == 0 {
		return nil
	}

	scored := b.scorer.ScoreAll(&d, older)
	if top := scored[0]; top.Confidence >= b.policy.MergeThreshold {
		if _, err := b.merger.Merge(ctx, top.Entry.ID, &d); err != nil {
			return err
		}
		if err := b.store.MarkMerged(ctx, current.ID, top.Entry.ID); err != nil {
			return fmt.Errorf("mark %s merged into %s: %w", current.ID, top.Entry.ID, err)
		}
		report.Merged++
		b.logger.Info("backfill merged duplicate",
			"entry_id", current.ID, "into", top.Entry.ID, "confidence", top.Confidence, "reasons", top.Reasons)
		return nil
	}

	for _, c := range b.policy.PossibleDuplicates(scored) {
		report.PossibleDuplicates = append(report.PossibleDuplicates, DuplicatePair{
			EntryID:     current.ID,
			CandidateID: c.Entry.ID,
			Confidence:  c.Confidence,
			Reasons:     c.Reasons,
		})
	}
	return nil
}

func (b *Backfiller) save(ctx context.Context, job string, seq int64) error {
	if err := b.checkpoints.SaveCheckpoint(ctx, job, seq); err != nil {
		return fmt.Errorf("save checkpoint %q at %d: %w", job, seq, err)
	}
	return nil
}

func descriptorFromEntry(e *domain.CanonicalEntry) domain.Descriptor {
	return domain.Descriptor{
		Name:        e.Name,
		Brand:       e.Brand,
		Distillery:  e.Distillery,
		Category:    e.Category,
		VariantFlag: e.VariantFlag,
		ExternalID:  e.Provenance.ExternalID,
		Specs:       e.Specs,
		Identifiers: append([]domain.Identifier(nil), e.Identifiers...),
		Source:      e.Provenance.Source,
	}
}
