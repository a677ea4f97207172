package memstore

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

// Store is a thread-safe in-memory catalog store. It enforces the same uniqueness
// constraint as the sqlite store and is used for tests and dry runs.
type Store struct {
	mutex       sync.RWMutex
	entries     map[string]*domain.CanonicalEntry
	order       []string // ids by insertion
	keys        map[domain.UniqueKey]string
	checkpoints map[string]int64
	seq         int64
}

// New creates an empty store
func New() *Store {
	return &Store{
		entries:     make(map[string]*domain.CanonicalEntry),
		keys:        make(map[domain.UniqueKey]string),
		checkpoints: make(map[string]int64),
	}
}

// Search returns active entries matching q in insertion order
func (s *Store) Search(ctx context.Context, q domain.TextQuery) ([]domain.CanonicalEntry, error) {
	patterns, err := compileQuery(q)
	if err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []domain.CanonicalEntry
	for _, id := range s.order {
		e := s.entries[id]
		if e.MergedInto != "" {
			continue
		}
		value := fieldValue(e, q.Field)
		for _, p := range patterns {
			if p.MatchString(value) {
				out = append(out, cloneEntry(e))
				break
			}
		}
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// Get returns the entry with id
func (s *Store) Get(ctx context.Context, id string) (*domain.CanonicalEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	c := cloneEntry(e)
	return &c, nil
}

// FindByKey returns the entry holding key
func (s *Store) FindByKey(ctx context.Context, key domain.UniqueKey) (*domain.CanonicalEntry, error) {
	s.mutex.RLock()
	id, ok := s.keys[normalizeKey(key)]
	s.mutex.RUnlock()
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return s.Get(ctx, id)
}

// FindByIdentifier returns the first entry carrying code, preferring active entries
func (s *Store) FindByIdentifier(ctx context.Context, code string) (*domain.CanonicalEntry, error) {
	return s.findFirst(func(e *domain.CanonicalEntry) bool {
		return code != "" && e.HasIdentifier(code)
	})
}

// FindByExternalID returns the first entry with the external feed id, preferring active entries
func (s *Store) FindByExternalID(ctx context.Context, externalID string) (*domain.CanonicalEntry, error) {
	return s.findFirst(func(e *domain.CanonicalEntry) bool {
		return externalID != "" && strings.EqualFold(e.Provenance.ExternalID, externalID)
	})
}

func (s *Store) findFirst(match func(*domain.CanonicalEntry) bool) (*domain.CanonicalEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var merged *domain.CanonicalEntry
	for _, id := range s.order {
		e := s.entries[id]
		if !match(e) {
			continue
		}
		if e.MergedInto == "" {
			c := cloneEntry(e)
			return &c, nil
		}
		if merged == nil {
			merged = e
		}
	}
	if merged != nil {
		c := cloneEntry(merged)
		return &c, nil
	}
	return nil, domain.ErrEntryNotFound
}

// Insert adds entry, failing with ErrDuplicateKey when its key is taken
func (s *Store) Insert(ctx context.Context, entry *domain.CanonicalEntry) error {
	if entry == nil || entry.ID == "" {
		return domain.ErrInvalidRequest
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := normalizeKey(entry.Key())
	if _, taken := s.keys[key]; taken {
		return domain.ErrDuplicateKey
	}
	if _, taken := s.entries[entry.ID]; taken {
		return domain.ErrDuplicateKey
	}

	s.seq++
	entry.Seq = s.seq
	c := cloneEntry(entry)
	s.entries[entry.ID] = &c
	s.order = append(s.order, entry.ID)
	s.keys[key] = entry.ID
	return nil
}

// FillMissing applies patch under the store lock
func (s *Store) FillMissing(ctx context.Context, id string, patch domain.EntryPatch) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	e.FillMissing(patch)
	return nil
}

// AddIdentifiers adds codes not already on the entry
func (s *Store) AddIdentifiers(ctx context.Context, id string, ids []domain.Identifier) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	e.AddIdentifiers(ids)
	return nil
}

// Scan pages active entries after afterSeq
func (s *Store) Scan(ctx context.Context, afterSeq int64, limit int) ([]domain.CanonicalEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []domain.CanonicalEntry
	for _, id := range s.order {
		e := s.entries[id]
		if e.Seq <= afterSeq || e.MergedInto != "" {
			continue
		}
		out = append(out, cloneEntry(e))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MarkMerged records that id was merged into intoID
func (s *Store) MarkMerged(ctx context.Context, id, intoID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	if _, ok := s.entries[intoID]; !ok {
		return domain.ErrEntryNotFound
	}
	e.MergedInto = intoID
	return nil
}

// LoadCheckpoint returns the saved sequence for job, or 0
func (s *Store) LoadCheckpoint(ctx context.Context, job string) (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.checkpoints[job], nil
}

// SaveCheckpoint stores the last processed sequence for job
func (s *Store) SaveCheckpoint(ctx context.Context, job string, seq int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.checkpoints[job] = seq
	return nil
}

// Count returns the number of stored entries, merged ones included
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.Size(), nil
}

// Size returns the number of stored entries, merged ones included
func (s *Store) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.entries)
}

// compileQuery turns each literal term into an anchored, case-insensitive pattern.
// Terms are escaped so user text such as "Jack (Batch 2)*" matches literally.
func compileQuery(q domain.TextQuery) ([]*regexp.Regexp, error) {
	switch q.Field {
	case domain.QueryFieldName, domain.QueryFieldBrand, domain.QueryFieldDistillery:
	default:
		return nil, domain.ErrInvalidRequest
	}
	patterns := make([]*regexp.Regexp, 0, len(q.Terms))
	for _, term := range q.Terms {
		if term == "" {
			continue
		}
		quoted := regexp.QuoteMeta(term)
		var expr string
		switch q.Mode {
		case domain.MatchExact:
			expr = `(?i)^` + quoted + `$`
		case domain.MatchPrefix:
			expr = `(?i)^` + quoted
		default:
			expr = `(?i)` + quoted
		}
		p, err := regexp.Compile(expr)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func fieldValue(e *domain.CanonicalEntry, field domain.QueryField) string {
	switch field {
	case domain.QueryFieldBrand:
		return e.Brand
	case domain.QueryFieldDistillery:
		return e.Distillery
	}
	return e.Name
}

func normalizeKey(k domain.UniqueKey) domain.UniqueKey {
	return domain.NewUniqueKey(k.Name, k.Distillery, k.VariantFlag)
}

func cloneEntry(e *domain.CanonicalEntry) domain.CanonicalEntry {
	c := *e
	c.Identifiers = append([]domain.Identifier(nil), e.Identifiers...)
	return c
}
