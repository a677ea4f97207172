package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

const defaultBusyTimeout = 5 * time.Second

// Store persists the canonical catalog in SQLite. The uniqueness key is enforced
// by a UNIQUE index over the folded name, distillery and variant columns, so
// concurrent inserts of the same product surface as domain.ErrDuplicateKey.
type Store struct {
	db *sql.DB
}

// Open connects to (or creates) the catalog database at path
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty database path", domain.ErrInvalidRequest)
	}
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	params := url.Values{}
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	dsn := "file:" + path + "?" + params.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storeError("ping", err)
	}
	return nil
}

// Search returns active entries matching q in insertion order
func (s *Store) Search(ctx context.Context, q domain.TextQuery) ([]domain.CanonicalEntry, error) {
	column, ok := queryColumns[q.Field]
	if !ok {
		return nil, fmt.Errorf("%w: unknown query field %q", domain.ErrInvalidRequest, q.Field)
	}

	var (
		clauses []string
		args    []any
	)
	for _, term := range q.Terms {
		if term == "" {
			continue
		}
		clauses = append(clauses, column+` LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(term, q.Mode))
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	query := "SELECT " + entryColumns + " FROM catalog_entries e WHERE e.merged_into IS NULL AND (" +
		strings.Join(clauses, " OR ") + ") ORDER BY e.seq"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}
	return s.queryEntries(ctx, "search", query, args...)
}

// Get returns the entry with id
func (s *Store) Get(ctx context.Context, id string) (*domain.CanonicalEntry, error) {
	return s.queryOne(ctx, "get", "SELECT "+entryColumns+" FROM catalog_entries e WHERE e.id = ?", id)
}

// FindByKey returns the entry holding key
func (s *Store) FindByKey(ctx context.Context, key domain.UniqueKey) (*domain.CanonicalEntry, error) {
	k := domain.NewUniqueKey(key.Name, key.Distillery, key.VariantFlag)
	return s.queryOne(ctx, "find by key",
		"SELECT "+entryColumns+` FROM catalog_entries e
        WHERE e.name_key = ? AND e.distillery_key = ? AND e.variant_key = ?`,
		k.Name, k.Distillery, k.VariantFlag)
}

// FindByIdentifier returns the first entry carrying code, preferring active entries
func (s *Store) FindByIdentifier(ctx context.Context, code string) (*domain.CanonicalEntry, error) {
	if code == "" {
		return nil, domain.ErrEntryNotFound
	}
	return s.queryOne(ctx, "find by identifier",
		"SELECT "+entryColumns+` FROM catalog_entries e
        JOIN entry_identifiers i ON i.entry_id = e.id
        WHERE i.code = ?
        ORDER BY e.merged_into IS NOT NULL, e.seq
        LIMIT 1`, code)
}

// FindByExternalID returns the first entry with the external feed id, preferring active entries
func (s *Store) FindByExternalID(ctx context.Context, externalID string) (*domain.CanonicalEntry, error) {
	if externalID == "" {
		return nil, domain.ErrEntryNotFound
	}
	return s.queryOne(ctx, "find by external id",
		"SELECT "+entryColumns+` FROM catalog_entries e
        WHERE e.external_id = ? COLLATE NOCASE
        ORDER BY e.merged_into IS NOT NULL, e.seq
        LIMIT 1`, externalID)
}

// Insert adds entry and its identifiers in one transaction, failing with
// domain.ErrDuplicateKey when the key or id is taken
func (s *Store) Insert(ctx context.Context, entry *domain.CanonicalEntry) error {
	if entry == nil || entry.ID == "" {
		return domain.ErrInvalidRequest
	}
	key := entry.Key()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("begin insert", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT INTO catalog_entries (
            id, name, name_key, brand, distillery, distillery_key, category, variant_flag, variant_key,
            age, year, proof, abv, stated_proof, size, country, region, price, description, image_url,
            source, external_id, imported_at, last_synced_at, merged_at, merged_into, created_at, updated_at
        ) VALUES (`+placeholders(28)+`)`,
		entry.ID,
		entry.Name,
		key.Name,
		nullableString(entry.Brand),
		nullableString(entry.Distillery),
		key.Distillery,
		nullableString(entry.Category),
		nullableString(entry.VariantFlag),
		key.VariantFlag,
		nullableInt(entry.Specs.Age),
		nullableInt(entry.Specs.Year),
		nullableFloat(entry.Specs.Proof),
		nullableFloat(entry.Specs.ABV),
		nullableString(entry.Specs.StatedProof),
		nullableString(entry.Specs.Size),
		nullableString(entry.Specs.Country),
		nullableString(entry.Specs.Region),
		nullableFloat(entry.Specs.Price),
		nullableString(entry.Specs.Description),
		nullableString(entry.Specs.ImageURL),
		entry.Provenance.Source,
		nullableString(entry.Provenance.ExternalID),
		nullableTime(entry.Provenance.ImportedAt),
		nullableTime(entry.Provenance.LastSyncedAt),
		nullableTime(entry.Provenance.MergedAt),
		nullableString(entry.MergedInto),
		formatTime(entry.CreatedAt),
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return storeError("insert entry", err)
	}

	if err := insertIdentifiers(ctx, tx, entry.ID, entry.Identifiers); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return storeError("commit insert", err)
	}

	if seq, err := res.LastInsertId(); err == nil {
		entry.Seq = seq
	}
	return nil
}

// FillMissing sets each unset column from patch in a single statement, so
// concurrent merges never overwrite a value another merge already filled
func (s *Store) FillMissing(ctx context.Context, id string, patch domain.EntryPatch) error {
	sets := []string{
		"brand = COALESCE(NULLIF(brand, ''), ?)",
		"category = COALESCE(NULLIF(category, ''), ?)",
		"age = COALESCE(NULLIF(age, 0), ?)",
		"year = COALESCE(NULLIF(year, 0), ?)",
		"proof = COALESCE(NULLIF(proof, 0), ?)",
		"abv = COALESCE(NULLIF(abv, 0), ?)",
		"stated_proof = COALESCE(NULLIF(stated_proof, ''), ?)",
		"size = COALESCE(NULLIF(size, ''), ?)",
		"country = COALESCE(NULLIF(country, ''), ?)",
		"region = COALESCE(NULLIF(region, ''), ?)",
		"price = COALESCE(NULLIF(price, 0), ?)",
		"description = COALESCE(NULLIF(description, ''), ?)",
		"image_url = COALESCE(NULLIF(image_url, ''), ?)",
		"external_id = COALESCE(NULLIF(external_id, ''), ?)",
	}
	args := []any{
		nullableString(patch.Brand),
		nullableString(patch.Category),
		nullableInt(patch.Specs.Age),
		nullableInt(patch.Specs.Year),
		nullableFloat(patch.Specs.Proof),
		nullableFloat(patch.Specs.ABV),
		nullableString(patch.Specs.StatedProof),
		nullableString(patch.Specs.Size),
		nullableString(patch.Specs.Country),
		nullableString(patch.Specs.Region),
		nullableFloat(patch.Specs.Price),
		nullableString(patch.Specs.Description),
		nullableString(patch.Specs.ImageURL),
		nullableString(patch.ExternalID),
	}
	if patch.Source != "" {
		sets = append(sets, "source = ?")
		args = append(args, patch.Source)
	}
	if !patch.SyncedAt.IsZero() {
		ts := formatTime(patch.SyncedAt)
		sets = append(sets, "last_synced_at = ?", "merged_at = ?", "updated_at = ?")
		args = append(args, ts, ts, ts)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE catalog_entries SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return storeError("fill missing", err)
	}
	return requireAffected(res, "fill missing")
}

// AddIdentifiers adds codes not already on the entry; existing codes keep their metadata
func (s *Store) AddIdentifiers(ctx context.Context, id string, ids []domain.Identifier) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("begin add identifiers", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM catalog_entries WHERE id = ?", id).Scan(&exists); err != nil {
		return storeError("check entry", err)
	}
	if exists == 0 {
		return domain.ErrEntryNotFound
	}

	if err := insertIdentifiers(ctx, tx, id, ids); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeError("commit add identifiers", err)
	}
	return nil
}

// Scan pages active entries after afterSeq
func (s *Store) Scan(ctx context.Context, afterSeq int64, limit int) ([]domain.CanonicalEntry, error) {
	query := "SELECT " + entryColumns + " FROM catalog_entries e WHERE e.seq > ? AND e.merged_into IS NULL ORDER BY e.seq"
	args := []any{afterSeq}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryEntries(ctx, "scan", query, args...)
}

// MarkMerged records that id was merged into intoID
func (s *Store) MarkMerged(ctx context.Context, id, intoID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE catalog_entries SET merged_into = ?, updated_at = ?
        WHERE id = ? AND EXISTS (SELECT 1 FROM catalog_entries WHERE id = ?)`,
		intoID, formatTime(time.Now()), id, intoID)
	if err != nil {
		return storeError("mark merged", err)
	}
	return requireAffected(res, "mark merged")
}

// LoadCheckpoint returns the saved sequence for job, or 0
func (s *Store) LoadCheckpoint(ctx context.Context, job string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, "SELECT seq FROM job_checkpoints WHERE job = ?", job).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storeError("load checkpoint", err)
	}
	return seq, nil
}

// SaveCheckpoint stores the last processed sequence for job
func (s *Store) SaveCheckpoint(ctx context.Context, job string, seq int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_checkpoints (job, seq, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(job) DO UPDATE SET seq = excluded.seq, updated_at = excluded.updated_at`,
		job, seq, formatTime(time.Now()))
	if err != nil {
		return storeError("save checkpoint", err)
	}
	return nil
}

// Count returns the number of stored entries, merged ones included
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM catalog_entries").Scan(&n); err != nil {
		return 0, storeError("count", err)
	}
	return n, nil
}

func (s *Store) queryOne(ctx context.Context, op, query string, args ...any) (*domain.CanonicalEntry, error) {
	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, storeError(op, err)
	}
	entries := []domain.CanonicalEntry{*entry}
	if err := s.loadIdentifiers(ctx, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

func (s *Store) queryEntries(ctx context.Context, op, query string, args ...any) ([]domain.CanonicalEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError(op, err)
	}
	defer rows.Close()

	var entries []domain.CanonicalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, storeError(op, err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(op, err)
	}
	if err := s.loadIdentifiers(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// loadIdentifiers attaches identifiers to entries with one query
func (s *Store) loadIdentifiers(ctx context.Context, entries []domain.CanonicalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	index := make(map[string]int, len(entries))
	args := make([]any, 0, len(entries))
	for i := range entries {
		index[entries[i].ID] = i
		args = append(args, entries[i].ID)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT entry_id, code, weight, added_at FROM entry_identifiers WHERE entry_id IN ("+
			placeholders(len(args))+") ORDER BY rowid", args...)
	if err != nil {
		return storeError("load identifiers", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entryID, addedAt string
			id               domain.Identifier
		)
		if err := rows.Scan(&entryID, &id.Code, &id.Weight, &addedAt); err != nil {
			return storeError("load identifiers", err)
		}
		id.AddedAt = parseTime(addedAt)
		if i, ok := index[entryID]; ok {
			entries[i].Identifiers = append(entries[i].Identifiers, id)
		}
	}
	if err := rows.Err(); err != nil {
		return storeError("load identifiers", err)
	}
	return nil
}

func insertIdentifiers(ctx context.Context, tx *sql.Tx, entryID string, ids []domain.Identifier) error {
	for _, id := range ids {
		if id.Code == "" {
			continue
		}
		addedAt := id.AddedAt
		if addedAt.IsZero() {
			addedAt = time.Now()
		}
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO entry_identifiers (entry_id, code, weight, added_at) VALUES (?, ?, ?, ?)",
			entryID, id.Code, id.Weight, formatTime(addedAt))
		if err != nil {
			return storeError("insert identifier", err)
		}
	}
	return nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeError(op, err)
	}
	if n == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}
