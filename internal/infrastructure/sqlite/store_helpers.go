package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

const entryColumns = `e.seq, e.id, e.name, e.brand, e.distillery, e.category, e.variant_flag,
    e.age, e.year, e.proof, e.abv, e.stated_proof, e.size, e.country, e.region, e.price,
    e.description, e.image_url, e.source, e.external_id, e.imported_at, e.last_synced_at,
    e.merged_at, e.merged_into, e.created_at, e.updated_at`

// queryColumns whitelists the columns a text query may target
var queryColumns = map[domain.QueryField]string{
	domain.QueryFieldName:       "e.name",
	domain.QueryFieldBrand:      "e.brand",
	domain.QueryFieldDistillery: "e.distillery",
}

// likeEscaper escapes LIKE wildcards and the escape character itself so user
// text is matched literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.CanonicalEntry, error) {
	var (
		e                                                    domain.CanonicalEntry
		brand, distillery, category, variant                 sql.NullString
		statedProof, size, country, region, description, img sql.NullString
		externalID, importedAt, syncedAt, mergedAt, into     sql.NullString
		age, year                                            sql.NullInt64
		proof, abv, price                                    sql.NullFloat64
		createdAt, updatedAt                                 string
	)
	err := row.Scan(
		&e.Seq, &e.ID, &e.Name, &brand, &distillery, &category, &variant,
		&age, &year, &proof, &abv, &statedProof, &size, &country, &region, &price,
		&description, &img, &e.Provenance.Source, &externalID, &importedAt, &syncedAt,
		&mergedAt, &into, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Brand = brand.String
	e.Distillery = distillery.String
	e.Category = category.String
	e.VariantFlag = variant.String
	e.Specs = domain.Specs{
		Age:         int(age.Int64),
		Year:        int(year.Int64),
		Proof:       proof.Float64,
		ABV:         abv.Float64,
		StatedProof: statedProof.String,
		Size:        size.String,
		Country:     country.String,
		Region:      region.String,
		Price:       price.Float64,
		Description: description.String,
		ImageURL:    img.String,
	}
	e.Provenance.ExternalID = externalID.String
	e.Provenance.ImportedAt = parseTime(importedAt.String)
	e.Provenance.LastSyncedAt = parseTime(syncedAt.String)
	e.Provenance.MergedAt = parseTime(mergedAt.String)
	e.MergedInto = into.String
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

func likePattern(term string, mode domain.MatchMode) string {
	escaped := likeEscaper.Replace(term)
	switch mode {
	case domain.MatchExact:
		return escaped
	case domain.MatchPrefix:
		return escaped + "%"
	}
	return "%" + escaped + "%"
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// storeError wraps a driver error so callers can classify it as an infrastructure failure
func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value float64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return formatTime(value)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
