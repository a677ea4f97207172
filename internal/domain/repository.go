package domain

import (
	"context"
	"time"
)

// QueryField selects the entry column a text query runs against
type QueryField string

const (
	QueryFieldName       QueryField = "name"
	QueryFieldBrand      QueryField = "brand"
	QueryFieldDistillery QueryField = "distillery"
)

// MatchMode selects how query terms are compared. All modes are case-insensitive
// and treat terms as literal text.
type MatchMode int

const (
	MatchExact MatchMode = iota
	MatchPrefix
	MatchContains
)

// TextQuery is a literal, case-insensitive lookup. An entry matches when any of
// Terms matches Field under Mode. Stores must escape Terms before embedding them
// in a pattern.
type TextQuery struct {
	Field QueryField
	Mode  MatchMode
	Terms []string
	Limit int
}

// CatalogStore is the canonical catalog persistence layer
type CatalogStore interface {
	// Search returns active (not merged) entries matching q, ordered by insertion.
	Search(ctx context.Context, q TextQuery) ([]CanonicalEntry, error)
	// Get returns ErrEntryNotFound when id is unknown.
	Get(ctx context.Context, id string) (*CanonicalEntry, error)
	FindByKey(ctx context.Context, key UniqueKey) (*CanonicalEntry, error)
	FindByIdentifier(ctx context.Context, code string) (*CanonicalEntry, error)
	FindByExternalID(ctx context.Context, externalID string) (*CanonicalEntry, error)
	// Insert returns ErrDuplicateKey when the uniqueness key is taken.
	Insert(ctx context.Context, entry *CanonicalEntry) error
	// FillMissing atomically sets each field of patch that is still unset on the
	// entry and replaces the provenance sync fields.
	FillMissing(ctx context.Context, id string, patch EntryPatch) error
	// AddIdentifiers adds codes not already present; existing codes keep their metadata.
	AddIdentifiers(ctx context.Context, id string, ids []Identifier) error
	// Scan pages active entries with Seq greater than afterSeq.
	Scan(ctx context.Context, afterSeq int64, limit int) ([]CanonicalEntry, error)
	MarkMerged(ctx context.Context, id, intoID string) error
}

// EntryPatch carries fill-missing values plus the provenance refresh applied by a merge
type EntryPatch struct {
	Brand      string
	Category   string
	Specs      Specs
	ExternalID string
	Source     string
	SyncedAt   time.Time
}

// CheckpointStore persists resumable job progress
type CheckpointStore interface {
	LoadCheckpoint(ctx context.Context, job string) (int64, error)
	SaveCheckpoint(ctx context.Context, job string, seq int64) error
}

// FeedPage is one page of the external product feed
type FeedPage struct {
	Records    []ExternalRecord
	NextCursor string // empty when the feed is exhausted
	Rejected   []RowError
}

// FeedSource is the read-only external product feed
type FeedSource interface {
	FetchPage(ctx context.Context, cursor string, limit int) (*FeedPage, error)
	GetRecord(ctx context.Context, feedID string) (*ExternalRecord, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
