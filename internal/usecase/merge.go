package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

// MergeExecutor reconciles a descriptor into an existing entry without overwriting
// populated fields
type MergeExecutor struct {
	store  domain.CatalogStore
	logger *slog.Logger
	now    func() time.Time
}

// NewMergeExecutor creates a merge executor. A nil clock uses time.Now in UTC.
func NewMergeExecutor(store domain.CatalogStore, logger *slog.Logger, now func() time.Time) *MergeExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &MergeExecutor{store: store, logger: logger, now: now}
}

// Merge fills the unset fields of entry targetID from d, adds identifiers the
// entry does not carry yet and refreshes its provenance. Repeating the merge with
// the same descriptor leaves the entry unchanged apart from the sync timestamp.
func (m *MergeExecutor) Merge(ctx context.Context, targetID string, d *domain.Descriptor) (*domain.CanonicalEntry, error) {
	now := m.now()
	patch := PatchFromDescriptor(d, now)

	if err := m.store.FillMissing(ctx, targetID, patch); err != nil {
		return nil, fmt.Errorf("fill missing fields of %s: %w", targetID, err)
	}

	ids := dedupeIdentifiers(d.Identifiers)
	for i := range ids {
		if ids[i].AddedAt.IsZero() {
			ids[i].AddedAt = now
		}
	}
	if len(ids) > 0 {
		if err := m.store.AddIdentifiers(ctx, targetID, ids); err != nil {
			return nil, fmt.Errorf("add identifiers to %s: %w", targetID, err)
		}
	}

	entry, err := m.store.Get(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("reload merged entry %s: %w", targetID, err)
	}

	m.logger.Debug("merged descriptor",
		"entry_id", targetID, "name", d.Name, "identifiers", len(ids), "source", d.Source)
	return entry, nil
}

// PatchFromDescriptor builds the fill-missing patch for d
func PatchFromDescriptor(d *domain.Descriptor, now time.Time) domain.EntryPatch {
	specs := d.Specs
	completeStrength(&specs, d.Name)
	return domain.EntryPatch{
		Brand:      d.Brand,
		Category:   d.Category,
		Specs:      specs,
		ExternalID: d.ExternalID,
		Source:     d.Source,
		SyncedAt:   now,
	}
}
