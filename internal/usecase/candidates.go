package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

// Per-strategy result caps
const (
	limitFirstWord   = 10
	limitFirstTwo    = 10
	limitBrandInName = 20
	limitTokens      = 30
	limitBrandField  = 20
	limitDistillery  = 10

	maxSignificantTokens = 3
	minSignificantLen    = 4 // tokens must be longer than 3 characters
	maxSearchTermLen     = 100
)

// strategy is one independent, capped lookup against the catalog store
type strategy struct {
	name  string
	query domain.TextQuery
}

// CandidateGenerator federates lookup strategies against the catalog store
type CandidateGenerator struct {
	store       domain.CatalogStore
	logger      *slog.Logger
	concurrency int
}

// NewCandidateGenerator creates a generator. concurrency bounds how many strategy
// queries are in flight at once; values below 1 run them sequentially.
func NewCandidateGenerator(store domain.CatalogStore, logger *slog.Logger, concurrency int) *CandidateGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &CandidateGenerator{store: store, logger: logger, concurrency: concurrency}
}

// Exact looks for an entry that certainly describes d: first by namespaced external
// id, then by any identifier code of the same variant, then by the literal
// (name, distillery, variant) key.
// It returns nil when nothing matches. Store failures other than a miss are returned.
func (g *CandidateGenerator) Exact(ctx context.Context, d *domain.Descriptor) (*domain.CanonicalEntry, error) {
	if id := sanitizeTerm(d.ExternalID); id != "" {
		entry, err := g.store.FindByExternalID(ctx, id)
		if found, err := foundOrMiss(entry, err); found != nil || err != nil {
			return found, err
		}
	}

	// A store pick often carries the standard release's barcode, so a code only
	// identifies entries of the same variant.
	for _, identifier := range d.Identifiers {
		entry, err := g.store.FindByIdentifier(ctx, identifier.Code)
		found, err := foundOrMiss(entry, err)
		if err != nil {
			return nil, err
		}
		if found != nil && sameVariant(found, d) {
			return found, nil
		}
	}

	if sanitizeTerm(d.Name) == "" {
		return nil, nil
	}
	entry, err := g.store.FindByKey(ctx, d.Key())
	return foundOrMiss(entry, err)
}

// Fuzzy runs every applicable strategy and returns the union of their results,
// deduplicated by entry id in strategy order. A failing strategy is logged and
// skipped. Entries whose variant flag differs from d's are dropped because they
// are legitimate distinct products.
func (g *CandidateGenerator) Fuzzy(ctx context.Context, d *domain.Descriptor) ([]domain.CanonicalEntry, error) {
	strategies := g.strategies(d)
	results := make([][]domain.CanonicalEntry, len(strategies))

	var group errgroup.Group
	group.SetLimit(g.concurrency)
	for i, s := range strategies {
		group.Go(func() error {
			entries, err := g.store.Search(ctx, s.query)
			if err != nil {
				g.logger.Warn("candidate strategy failed",
					"strategy", s.name, "terms", s.query.Terms, "error", err)
				return nil
			}
			results[i] = entries
			return nil
		})
	}
	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var union []domain.CanonicalEntry
	for i, entries := range results {
		added := 0
		for _, entry := range entries {
			if seen[entry.ID] || !sameVariant(&entry, d) {
				continue
			}
			seen[entry.ID] = true
			union = append(union, entry)
			added++
		}
		g.logger.Debug("candidate strategy",
			"strategy", strategies[i].name, "returned", len(entries), "added", added)
	}
	return union, nil
}

// strategies builds the lookup plan for d. Terms are sanitized here; the store is
// responsible for escaping them before building its pattern.
func (g *CandidateGenerator) strategies(d *domain.Descriptor) []strategy {
	words := searchWords(d.Name)
	brand := sanitizeTerm(d.Brand)
	distillery := sanitizeTerm(d.Distillery)

	var plan []strategy
	if len(words) > 0 {
		plan = append(plan, strategy{"first_word", domain.TextQuery{
			Field: domain.QueryFieldName, Mode: domain.MatchPrefix,
			Terms: []string{words[0]}, Limit: limitFirstWord,
		}})
	}
	if len(words) > 1 {
		plan = append(plan, strategy{"first_two_words", domain.TextQuery{
			Field: domain.QueryFieldName, Mode: domain.MatchContains,
			Terms: []string{words[0] + " " + words[1]}, Limit: limitFirstTwo,
		}})
	}
	if brand != "" {
		plan = append(plan, strategy{"brand_in_name", domain.TextQuery{
			Field: domain.QueryFieldName, Mode: domain.MatchContains,
			Terms: []string{brand}, Limit: limitBrandInName,
		}})
	}
	if tokens := significantTokens(words); len(tokens) > 0 {
		plan = append(plan, strategy{"significant_tokens", domain.TextQuery{
			Field: domain.QueryFieldName, Mode: domain.MatchContains,
			Terms: tokens, Limit: limitTokens,
		}})
	}
	if brand != "" {
		plan = append(plan, strategy{"brand_field", domain.TextQuery{
			Field: domain.QueryFieldBrand, Mode: domain.MatchExact,
			Terms: []string{brand}, Limit: limitBrandField,
		}})
	}
	if distillery != "" {
		plan = append(plan, strategy{"distillery_in_name", domain.TextQuery{
			Field: domain.QueryFieldName, Mode: domain.MatchContains,
			Terms: []string{distillery}, Limit: limitDistillery,
		}})
	}
	return plan
}

// significantTokens returns up to three distinct words longer than three characters
func significantTokens(words []string) []string {
	var tokens []string
	seen := make(map[string]bool)
	for _, w := range words {
		if len(w) < minSignificantLen || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
		if len(tokens) == maxSignificantTokens {
			break
		}
	}
	return tokens
}

// sanitizeTerm lower-cases, collapses whitespace, drops sentinels and bounds the
// length of user text used as a lookup term
func sanitizeTerm(s string) string {
	s = domain.FoldKey(domain.CleanText(s))
	if len(s) > maxSearchTermLen {
		s = strings.TrimSpace(s[:maxSearchTermLen])
	}
	return s
}

// sameVariant reports whether entry and d carry the same folded variant flag
func sameVariant(entry *domain.CanonicalEntry, d *domain.Descriptor) bool {
	return domain.FoldKey(entry.VariantFlag) == domain.FoldKey(d.VariantFlag)
}

func foundOrMiss(entry *domain.CanonicalEntry, err error) (*domain.CanonicalEntry, error) {
	if errors.Is(err, domain.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("exact lookup: %w", err)
	}
	return entry, nil
}
