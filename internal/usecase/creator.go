package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

// SafeCreator inserts new canonical entries and recovers from create-vs-create races
type SafeCreator struct {
	store  domain.CatalogStore
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewSafeCreator creates a creator. A nil clock uses time.Now in UTC.
func NewSafeCreator(store domain.CatalogStore, logger *slog.Logger, now func() time.Time) *SafeCreator {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &SafeCreator{store: store, logger: logger, now: now, newID: uuid.NewString}
}

// Create inserts an entry derived from d. When the store reports the uniqueness key
// as taken, the entry that won the race is read back and returned with created=false.
func (c *SafeCreator) Create(ctx context.Context, d *domain.Descriptor) (entry *domain.CanonicalEntry, created bool, err error) {
	entry, err = BuildEntry(d, c.now())
	if err != nil {
		return nil, false, err
	}
	entry.ID = c.newID()

	err = c.store.Insert(ctx, entry)
	if err == nil {
		c.logger.Info("created catalog entry",
			"entry_id", entry.ID, "name", entry.Name, "distillery", entry.Distillery, "source", entry.Provenance.Source)
		return entry, true, nil
	}
	if !errors.Is(err, domain.ErrDuplicateKey) {
		return nil, false, fmt.Errorf("insert %q: %w", entry.Name, err)
	}

	winner, lookupErr := c.store.FindByKey(ctx, entry.Key())
	if lookupErr != nil {
		return nil, false, fmt.Errorf("re-read %q after duplicate key: %w", entry.Name, lookupErr)
	}
	c.logger.Info("duplicate key race recovered",
		"entry_id", winner.ID, "name", entry.Name, "distillery", entry.Distillery)
	return winner, false, nil
}
