package domain

import "strings"

// External id namespaces. Spreadsheet iWine ids and feed ids are unrelated number
// spaces and never identify each other's products.
const (
	NamespaceIWine = "iwine"
	NamespaceFeed  = "feed"
)

var externalNamespaces = []string{NamespaceIWine, NamespaceFeed}

// ScopedExternalID prefixes id with namespace. An id that already carries a known
// namespace is kept as is; an empty id stays empty.
func ScopedExternalID(namespace, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	for _, ns := range externalNamespaces {
		if len(id) > len(ns)+1 && strings.EqualFold(id[:len(ns)+1], ns+":") {
			return id
		}
	}
	return namespace + ":" + id
}

// ExternalRecord is a product descriptor from the external feed after defensive parsing.
// Name and FeedID are required; every other field may be empty.
type ExternalRecord struct {
	FeedID      string   `json:"feedId"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand,omitempty"`
	Distillery  string   `json:"distillery,omitempty"`
	Category    string   `json:"category,omitempty"`
	Age         string   `json:"age,omitempty"` // literal age or calendar year, resolved on creation
	Proof       float64  `json:"proof,omitempty"`
	ABV         float64  `json:"abv,omitempty"`
	Size        string   `json:"size,omitempty"`
	Country     string   `json:"country,omitempty"`
	Region      string   `json:"region,omitempty"`
	Price       float64  `json:"price,omitempty"`
	Description string   `json:"description,omitempty"` // HTML already stripped
	ImageURL    string   `json:"imageUrl,omitempty"`
	UPCs        []string `json:"upcs,omitempty"`
}

// Logical import field names a column mapping may bind
const (
	FieldWine        = "wine"
	FieldProducer    = "producer"
	FieldBrand       = "brand"
	FieldVintage     = "vintage"
	FieldProof       = "proof"
	FieldABV         = "abv"
	FieldBarcode     = "barcode"
	FieldStore       = "store"
	FieldPrice       = "price"
	FieldSize        = "size"
	FieldCountry     = "country"
	FieldRegion      = "region"
	FieldCategory    = "type"
	FieldVariant     = "variant"
	FieldExternalID  = "iwine"
	FieldPurchasedAt = "purchased"
	FieldLocation    = "location"
)

// ColumnMapping maps a logical field name to the spreadsheet column header
type ColumnMapping map[string]string

// ImportRow is one spreadsheet row keyed by column header
type ImportRow map[string]string

// Value returns the row value bound to a logical field, or "" when the mapping
// has no binding or the column is absent
func (r ImportRow) Value(mapping ColumnMapping, field string) string {
	header, ok := mapping[field]
	if !ok || header == "" {
		return ""
	}
	return r[header]
}

// Descriptor is the source-independent view of an incoming product that the
// resolution engine works on
type Descriptor struct {
	Name        string
	Brand       string
	Distillery  string
	Category    string
	VariantFlag string
	Vintage     string // raw age/vintage text, part of the composite grouping key
	ExternalID  string
	Specs       Specs
	Identifiers []Identifier
	Source      string
}

// Key returns the uniqueness key the descriptor would occupy once created
func (d *Descriptor) Key() UniqueKey {
	return NewUniqueKey(d.Name, d.Distillery, d.VariantFlag)
}
