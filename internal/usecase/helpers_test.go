package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/infrastructure/memstore"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/logging"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mutex    sync.Mutex
	data     map[string]interface{}
	getCalls int
	setError error
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string]interface{})}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.getCalls++
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// faultyStore wraps a memstore and injects failures per operation
type faultyStore struct {
	*memstore.Store
	searchErr func(q domain.TextQuery) error
	insertErr error
	fillErr   error
	searches  int
	mutex     sync.Mutex
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: memstore.New()}
}

func (s *faultyStore) Search(ctx context.Context, q domain.TextQuery) ([]domain.CanonicalEntry, error) {
	s.mutex.Lock()
	s.searches++
	s.mutex.Unlock()
	if s.searchErr != nil {
		if err := s.searchErr(q); err != nil {
			return nil, err
		}
	}
	return s.Store.Search(ctx, q)
}

func (s *faultyStore) Insert(ctx context.Context, entry *domain.CanonicalEntry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.Store.Insert(ctx, entry)
}

func (s *faultyStore) FillMissing(ctx context.Context, id string, patch domain.EntryPatch) error {
	if s.fillErr != nil {
		return s.fillErr
	}
	return s.Store.FillMissing(ctx, id, patch)
}

func newTestResolver(store domain.CatalogStore, cache domain.CacheRepository, config ResolverConfig) *Resolver {
	config.Now = fixedClock
	return NewResolver(store, cache, logging.Discard(), config)
}

// seedEntry inserts an entry built from d directly into the store
func seedEntry(t *testing.T, store domain.CatalogStore, id string, d domain.Descriptor) *domain.CanonicalEntry {
	t.Helper()
	entry, err := BuildEntry(&d, testNow)
	if err != nil {
		t.Fatalf("BuildEntry() error = %v", err)
	}
	entry.ID = id
	if err := store.Insert(context.Background(), entry); err != nil {
		t.Fatalf("Insert(%s) error = %v", id, err)
	}
	return entry
}

func mustGet(t *testing.T, store domain.CatalogStore, id string) *domain.CanonicalEntry {
	t.Helper()
	entry, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", id, err)
	}
	return entry
}
