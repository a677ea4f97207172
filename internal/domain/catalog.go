package domain

import (
	"strings"
	"time"
)

// Provenance source tags
const (
	SourceManual       = "manual"
	SourceUser         = "user"
	SourceExternalFeed = "external-feed"
)

// Identifier verification weights
const (
	WeightFeed    = 1 // code listed by the external feed
	WeightImport  = 2 // code typed into an import spreadsheet
	WeightScanned = 3 // code scanned from a physical bottle
)

// CanonicalEntry is the single authoritative catalog record for a distinct product
type CanonicalEntry struct {
	ID          string       `json:"id"`
	Seq         int64        `json:"-"` // store insertion order, used for resumable scans
	Name        string       `json:"name"`
	Brand       string       `json:"brand,omitempty"`
	Distillery  string       `json:"distillery,omitempty"`
	Category    string       `json:"category,omitempty"`
	VariantFlag string       `json:"variantFlag,omitempty"` // e.g. "store pick"
	Specs       Specs        `json:"specs"`
	Identifiers []Identifier `json:"identifiers,omitempty"`
	Provenance  Provenance   `json:"provenance"`
	MergedInto  string       `json:"mergedInto,omitempty"` // set by backfill when this entry was a duplicate
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Specs holds the sparse specification fields of a product. Zero values mean unset.
type Specs struct {
	Age         int     `json:"age,omitempty"`  // years in barrel
	Year        int     `json:"year,omitempty"` // release or vintage year
	Proof       float64 `json:"proof,omitempty"`
	ABV         float64 `json:"abv,omitempty"`
	StatedProof string  `json:"statedProof,omitempty"` // proof text as printed on the label
	Size        string  `json:"size,omitempty"`
	Country     string  `json:"country,omitempty"`
	Region      string  `json:"region,omitempty"`
	Price       float64 `json:"price,omitempty"` // MSRP
	Description string  `json:"description,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

// Identifier is an external code (UPC, SKU, feed id) attached to an entry
type Identifier struct {
	Code    string    `json:"code"`
	Weight  int       `json:"weight"`
	AddedAt time.Time `json:"addedAt"`
}

// Provenance records where an entry's data came from and when it was last synchronized
type Provenance struct {
	Source       string    `json:"source"`
	ExternalID   string    `json:"externalId,omitempty"`
	ImportedAt   time.Time `json:"importedAt,omitempty"`
	LastSyncedAt time.Time `json:"lastSyncedAt,omitempty"`
	MergedAt     time.Time `json:"mergedAt,omitempty"`
}

// HasIdentifier reports whether code is already attached to the entry
func (e *CanonicalEntry) HasIdentifier(code string) bool {
	for _, id := range e.Identifiers {
		if id.Code == code {
			return true
		}
	}
	return false
}

// Key returns the store uniqueness key of the entry
func (e *CanonicalEntry) Key() UniqueKey {
	return NewUniqueKey(e.Name, e.Distillery, e.VariantFlag)
}

// UniqueKey is the (normalized name, normalized distillery, variant flag) tuple the
// store keeps unique
type UniqueKey struct {
	Name        string
	Distillery  string
	VariantFlag string
}

// NewUniqueKey case-folds and collapses whitespace in each key component
func NewUniqueKey(name, distillery, variant string) UniqueKey {
	return UniqueKey{
		Name:        FoldKey(name),
		Distillery:  FoldKey(distillery),
		VariantFlag: FoldKey(variant),
	}
}

// FoldKey lower-cases s and collapses runs of whitespace
func FoldKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
