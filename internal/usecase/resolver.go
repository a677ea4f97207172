package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

// Resolver defaults
const (
	defaultCacheTTL          = 24 * time.Hour
	defaultMaxReportedErrors = 100
	maxRedirectHops          = 3
	kindCanceled             = "canceled"
)

// ResolverConfig holds configuration for the resolution engine
type ResolverConfig struct {
	Policy              Policy
	Workers             int // groups resolved in parallel; 1 is sequential
	StrategyConcurrency int // candidate strategies in flight per lookup
	CacheTTL            time.Duration
	MaxReportedErrors   int
	Now                 func() time.Time
}

// Resolver links incoming descriptors to canonical entries, creating entries when
// nothing matches
type Resolver struct {
	store     domain.CatalogStore
	cache     domain.CacheRepository
	logger    *slog.Logger
	generator *CandidateGenerator
	scorer    *Scorer
	policy    Policy
	merger    *MergeExecutor
	creator   *SafeCreator
	workers   int
	cacheTTL  time.Duration
	maxErrors int
}

// NewResolver wires the engine components around store. cache may be nil.
func NewResolver(
	store domain.CatalogStore,
	cache domain.CacheRepository,
	logger *slog.Logger,
	config ResolverConfig,
) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	workers := config.Workers
	if workers < 1 {
		workers = 1
	}

	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	maxErrors := config.MaxReportedErrors
	if maxErrors <= 0 {
		maxErrors = defaultMaxReportedErrors
	}

	normalizer := NewNormalizer(nil)
	return &Resolver{
		store:     store,
		cache:     cache,
		logger:    logger,
		generator: NewCandidateGenerator(store, logger, config.StrategyConcurrency),
		scorer:    NewScorer(normalizer, nil),
		policy:    config.Policy.normalized(),
		merger:    NewMergeExecutor(store, logger, config.Now),
		creator:   NewSafeCreator(store, logger, config.Now),
		workers:   workers,
		cacheTTL:  cacheTTL,
		maxErrors: maxErrors,
	}
}

// Policy returns the effective thresholds
func (r *Resolver) Policy() Policy {
	return r.policy
}

// Resolve runs the automatic flow for one descriptor: exact match auto-merges,
// a fuzzy candidate at or above the merge threshold merges, anything else creates.
func (r *Resolver) Resolve(ctx context.Context, d *domain.Descriptor) (domain.ResolutionResult, error) {
	if d == nil {
		return domain.ResolutionResult{}, domain.ErrInvalidRequest
	}
	key := GroupKey(d)
	if key == "" {
		return domain.ResolutionResult{}, domain.ErrUnresolvableKey
	}
	return r.resolve(ctx, key, d)
}

// Suggest runs the review flow: it returns scored candidates above the review
// threshold for a person to confirm. Nothing is written.
func (r *Resolver) Suggest(ctx context.Context, d *domain.Descriptor) ([]domain.Candidate, error) {
	if d == nil || (d.Name == "" && d.ExternalID == "" && len(d.Identifiers) == 0) {
		return nil, domain.ErrInvalidRequest
	}

	exact, err := r.exactCandidate(ctx, "", d)
	if err != nil {
		return nil, err
	}

	var scored []domain.Candidate
	if d.Name != "" {
		if scored, err = r.fuzzyCandidates(ctx, d); err != nil {
			return nil, err
		}
	}

	if exact != nil {
		top := r.policy.Decide(exact, nil).Candidate
		filtered := []domain.Candidate{*top}
		for _, c := range scored {
			if c.Entry.ID != exact.ID {
				filtered = append(filtered, c)
			}
		}
		scored = filtered
	}
	return r.policy.Suggestions(scored), nil
}

// ImportRows resolves spreadsheet rows. Rows sharing a grouping key are resolved
// once and all map to the same canonical id.
func (r *Resolver) ImportRows(ctx context.Context, rows []domain.ImportRow, mapping domain.ColumnMapping) (*domain.BatchReport, error) {
	return r.RunBatch(ctx, RowUnits(rows, mapping))
}

// SyncRecords resolves a page of external feed records
func (r *Resolver) SyncRecords(ctx context.Context, records []domain.ExternalRecord) (*domain.BatchReport, error) {
	return r.RunBatch(ctx, RecordUnits(records))
}

type groupResult struct {
	result domain.ResolutionResult
	err    error
	done   bool
}

// RunBatch groups units, resolves each group once and fans the result out to every
// unit of the group. Row-scoped failures are collected in the report; only
// infrastructure failures abort the batch and are returned. Cancelling ctx stops
// submitting groups and returns the partial report marked Canceled.
func (r *Resolver) RunBatch(ctx context.Context, units []Unit) (*domain.BatchReport, error) {
	groups, unresolvable := GroupUnits(units)
	report := &domain.BatchReport{Groups: len(groups)}

	results := make([]groupResult, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers)
	for i, g := range groups {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			res, err := r.resolve(egCtx, g.Key, &g.Descriptor)
			results[i] = groupResult{result: res, err: err, done: true}
			if ctx.Err() == nil && domain.IsInfrastructure(err) {
				return err
			}
			return nil
		})
	}
	err := eg.Wait()
	if ctx.Err() == nil && err != nil {
		r.logger.Error("batch aborted", "groups", len(groups), "error", err)
		return nil, fmt.Errorf("batch aborted: %w", err)
	}
	report.Canceled = ctx.Err() != nil

	order := make(map[string]int, len(units))
	for i, u := range units {
		order[u.Ref] = i
	}

	for _, rowErr := range unresolvable {
		r.addError(report, rowErr)
	}

	for i, g := range groups {
		gr := results[i]
		switch {
		case !gr.done || (report.Canceled && domain.IsInfrastructure(gr.err)):
			for _, u := range g.Units {
				r.addError(report, domain.RowError{Ref: u.Ref, Kind: kindCanceled, Message: "batch canceled before this row was resolved"})
			}
		case gr.err != nil:
			kind := domain.Kind(gr.err)
			for _, u := range g.Units {
				r.addError(report, domain.RowError{Ref: u.Ref, Kind: kind, Message: gr.err.Error()})
			}
		default:
			for j, u := range g.Units {
				report.Rows = append(report.Rows, domain.RowResolution{
					Ref:        u.Ref,
					GroupKey:   g.Key,
					ResolvedID: gr.result.ResolvedID,
					Outcome:    gr.result.Outcome,
					Instance:   u.Instance,
				})
				countOutcome(&report.Counters, gr.result.Outcome, j == 0)
			}
		}
	}

	sort.SliceStable(report.Rows, func(a, b int) bool {
		return order[report.Rows[a].Ref] < order[report.Rows[b].Ref]
	})
	sort.SliceStable(report.Errors, func(a, b int) bool {
		return order[report.Errors[a].Ref] < order[report.Errors[b].Ref]
	})

	r.logger.Info("batch resolved",
		"units", len(units),
		"groups", len(groups),
		"created", report.Counters.Created,
		"merged", report.Counters.Merged,
		"existing", report.Counters.Existing,
		"failed", report.Counters.Failed,
		"canceled", report.Canceled)
	return report, nil
}

// countOutcome tallies one unit. Only the first unit of a created group counts as
// created; the rest of the group links to that now-existing entry.
func countOutcome(c *domain.BatchCounters, outcome domain.Outcome, first bool) {
	switch {
	case outcome == domain.OutcomeCreated && first:
		c.Created++
	case outcome == domain.OutcomeMerged:
		c.Merged++
	default:
		c.Existing++
	}
}

func (r *Resolver) addError(report *domain.BatchReport, rowErr domain.RowError) {
	report.Counters.Failed++
	if len(report.Errors) >= r.maxErrors {
		report.Truncated++
		return
	}
	report.Errors = append(report.Errors, rowErr)
}

// resolve runs candidate generation, scoring, the decision and the resulting
// merge or create for one group
func (r *Resolver) resolve(ctx context.Context, key string, d *domain.Descriptor) (domain.ResolutionResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ResolutionResult{}, err
	}

	exact, err := r.exactCandidate(ctx, key, d)
	if err != nil {
		return domain.ResolutionResult{}, err
	}

	var scored []domain.Candidate
	if exact == nil && d.Name != "" {
		if scored, err = r.fuzzyCandidates(ctx, d); err != nil {
			return domain.ResolutionResult{}, err
		}
	}

	decision := r.policy.Decide(exact, scored)

	var (
		entry   *domain.CanonicalEntry
		outcome domain.Outcome
		score   int
	)
	switch decision.Action {
	case ActionAutoMerge, ActionMerge:
		entry, err = r.merger.Merge(ctx, decision.Candidate.Entry.ID, d)
		outcome = domain.OutcomeAutoMerged
		if decision.Action == ActionMerge {
			outcome = domain.OutcomeMerged
		}
		score = decision.Candidate.Confidence
	default:
		var created bool
		entry, created, err = r.creator.Create(ctx, d)
		if err == nil && !created {
			// Lost a create race: continue as if the winner had matched exactly.
			entry, err = r.merger.Merge(ctx, entry.ID, d)
			outcome, score = domain.OutcomeAutoMerged, maxConfidence
		} else {
			outcome = domain.OutcomeCreated
		}
	}
	if err != nil {
		return domain.ResolutionResult{}, err
	}

	r.remember(ctx, key, entry.ID)

	r.logger.Debug("resolved descriptor",
		"name", d.Name, "group_key", key, "entry_id", entry.ID,
		"action", decision.Action, "outcome", outcome, "confidence", score)

	return domain.ResolutionResult{ResolvedID: entry.ID, Outcome: outcome, Confidence: score}, nil
}

// exactCandidate checks the resolved-key cache, then the exact-key lookups, and
// follows merge redirects left by the backfill. A cached entry of another variant
// is ignored.
func (r *Resolver) exactCandidate(ctx context.Context, key string, d *domain.Descriptor) (*domain.CanonicalEntry, error) {
	if id := r.recall(ctx, key); id != "" {
		entry, err := r.store.Get(ctx, id)
		switch {
		case err == nil:
			if entry, err = r.follow(ctx, entry); err != nil || sameVariant(entry, d) {
				return entry, err
			}
			r.logger.Debug("cached entry has another variant",
				"group_key", key, "entry_id", entry.ID, "variant", entry.VariantFlag)
		case !errors.Is(err, domain.ErrEntryNotFound):
			return nil, err
		}
	}

	entry, err := r.generator.Exact(ctx, d)
	if err != nil || entry == nil {
		return nil, err
	}
	return r.follow(ctx, entry)
}

// fuzzyCandidates scores the fuzzy candidate union and keeps the best MaxCandidates
func (r *Resolver) fuzzyCandidates(ctx context.Context, d *domain.Descriptor) ([]domain.Candidate, error) {
	entries, err := r.generator.Fuzzy(ctx, d)
	if err != nil {
		return nil, err
	}
	scored := r.scorer.ScoreAll(d, entries)
	if len(scored) > r.policy.MaxCandidates {
		scored = scored[:r.policy.MaxCandidates]
	}
	return scored, nil
}

func (r *Resolver) follow(ctx context.Context, entry *domain.CanonicalEntry) (*domain.CanonicalEntry, error) {
	for hops := 0; entry.MergedInto != "" && hops < maxRedirectHops; hops++ {
		next, err := r.store.Get(ctx, entry.MergedInto)
		if err != nil {
			return nil, fmt.Errorf("follow merge redirect %s -> %s: %w", entry.ID, entry.MergedInto, err)
		}
		entry = next
	}
	return entry, nil
}

func (r *Resolver) recall(ctx context.Context, key string) string {
	if r.cache == nil || key == "" {
		return ""
	}
	value, err := r.cache.Get(ctx, cacheKey(key))
	if err != nil {
		return ""
	}
	id, _ := value.(string)
	return id
}

func (r *Resolver) remember(ctx context.Context, key, id string) {
	if r.cache == nil || key == "" {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(key), id, r.cacheTTL); err != nil {
		r.logger.Warn("resolved key cache write failed", "group_key", key, "error", err)
	}
}

func cacheKey(groupKey string) string {
	return "resolved:" + groupKey
}
