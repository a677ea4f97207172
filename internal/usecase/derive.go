package usecase

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

// Calendar years accepted in an age/vintage column
const (
	minVintageYear = 1800
	maxVintageYear = 2100
	maxLiteralAge  = 100
)

var (
	// Matches "93 proof", "93° proof", "93.5-proof"
	proofTextRegex = regexp.MustCompile(`(?i)(\d{2,3}(?:\.\d+)?)\s*°?\s*-?\s*proof\b`)

	// Matches "46.5%", "46.5 % abv", "46.5% alc/vol"
	abvTextRegex = regexp.MustCompile(`(?i)(\d{1,2}(?:\.\d+)?)\s*%`)
)

// instanceFields are import columns that describe the physical bottle rather than the product
var instanceFields = []string{
	domain.FieldPrice,
	domain.FieldStore,
	domain.FieldPurchasedAt,
	domain.FieldLocation,
}

// DescriptorFromRow builds a descriptor from a spreadsheet row. Fields the mapping
// does not bind are left empty.
func DescriptorFromRow(row domain.ImportRow, mapping domain.ColumnMapping) domain.Descriptor {
	value := func(field string) string {
		return domain.CleanText(row.Value(mapping, field))
	}

	d := domain.Descriptor{
		Name:        value(domain.FieldWine),
		Brand:       value(domain.FieldBrand),
		Distillery:  value(domain.FieldProducer),
		Category:    value(domain.FieldCategory),
		VariantFlag: value(domain.FieldVariant),
		Vintage:     value(domain.FieldVintage),
		ExternalID:  domain.ScopedExternalID(domain.NamespaceIWine, value(domain.FieldExternalID)),
		Source:      domain.SourceUser,
	}
	d.Specs.Size = value(domain.FieldSize)
	d.Specs.Country = value(domain.FieldCountry)
	d.Specs.Region = value(domain.FieldRegion)

	if proofText := value(domain.FieldProof); proofText != "" {
		if v, ok := domain.ParseLooseNumber(proofText); ok && v > 0 {
			d.Specs.Proof = v
		}
		d.Specs.StatedProof = proofText
	}
	if v, ok := domain.ParseLooseNumber(value(domain.FieldABV)); ok && v > 0 {
		d.Specs.ABV = v
	}
	d.Specs.Age, d.Specs.Year = splitAge(d.Vintage)

	for _, code := range domain.SplitCodes(value(domain.FieldBarcode)) {
		d.Identifiers = append(d.Identifiers, domain.Identifier{Code: code, Weight: domain.WeightImport})
	}

	completeStrength(&d.Specs, d.Name)
	return d
}

// DescriptorFromFields builds a descriptor from values keyed by logical field name
// rather than by column header
func DescriptorFromFields(fields domain.ImportRow) domain.Descriptor {
	mapping := make(domain.ColumnMapping, len(fields))
	for field := range fields {
		mapping[field] = field
	}
	return DescriptorFromRow(fields, mapping)
}

// RowInstance extracts the per-bottle values of a row
func RowInstance(row domain.ImportRow, mapping domain.ColumnMapping) map[string]string {
	instance := make(map[string]string)
	for _, field := range instanceFields {
		if v := domain.CleanText(row.Value(mapping, field)); v != "" {
			instance[field] = v
		}
	}
	if len(instance) == 0 {
		return nil
	}
	return instance
}

// DescriptorFromRecord builds a descriptor from a parsed feed record
func DescriptorFromRecord(rec domain.ExternalRecord) domain.Descriptor {
	d := domain.Descriptor{
		Name:       strings.TrimSpace(rec.Name),
		Brand:      rec.Brand,
		Distillery: rec.Distillery,
		Category:   rec.Category,
		Vintage:    rec.Age,
		ExternalID: domain.ScopedExternalID(domain.NamespaceFeed, rec.FeedID),
		Source:     domain.SourceExternalFeed,
		Specs: domain.Specs{
			Proof:       rec.Proof,
			ABV:         rec.ABV,
			Size:        rec.Size,
			Country:     rec.Country,
			Region:      rec.Region,
			Price:       rec.Price,
			Description: rec.Description,
			ImageURL:    rec.ImageURL,
		},
	}
	d.Specs.Age, d.Specs.Year = splitAge(rec.Age)
	for _, code := range rec.UPCs {
		d.Identifiers = append(d.Identifiers, domain.Identifier{Code: code, Weight: domain.WeightFeed})
	}
	completeStrength(&d.Specs, d.Name)
	return d
}

// BuildEntry derives a new canonical entry from d. Name is required.
func BuildEntry(d *domain.Descriptor, now time.Time) (*domain.CanonicalEntry, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "no product name could be derived")
	}

	brand := strings.TrimSpace(d.Brand)
	if brand == "" {
		brand = brandFromName(name)
	}

	source := d.Source
	if source == "" {
		source = domain.SourceManual
	}

	specs := d.Specs
	completeStrength(&specs, name)

	entry := &domain.CanonicalEntry{
		Name:        name,
		Brand:       brand,
		Distillery:  strings.TrimSpace(d.Distillery),
		Category:    strings.TrimSpace(d.Category),
		VariantFlag: strings.TrimSpace(d.VariantFlag),
		Specs:       specs,
		Provenance: domain.Provenance{
			Source:       source,
			ExternalID:   d.ExternalID,
			ImportedAt:   now,
			LastSyncedAt: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, id := range dedupeIdentifiers(d.Identifiers) {
		if id.AddedAt.IsZero() {
			id.AddedAt = now
		}
		entry.Identifiers = append(entry.Identifiers, id)
	}
	return entry, nil
}

// splitAge interprets an age/vintage value as either a calendar year or a literal
// age in years. Unparseable or out of range values yield zeros.
func splitAge(raw string) (age, year int) {
	v, ok := domain.ParseLooseNumber(raw)
	if !ok || v <= 0 {
		return 0, 0
	}
	n := int(math.Round(v))
	switch {
	case n >= minVintageYear && n <= maxVintageYear:
		return 0, n
	case n < maxLiteralAge:
		return n, 0
	}
	return 0, 0
}

// completeStrength fills the proof/ABV/stated-proof triplet from whichever part is known,
// falling back to strength text embedded in the stated proof or the name
func completeStrength(specs *domain.Specs, name string) {
	if specs.Proof == 0 && specs.ABV == 0 {
		for _, text := range []string{specs.StatedProof, name} {
			if m := proofTextRegex.FindStringSubmatch(text); m != nil {
				if v, ok := domain.ParseLooseNumber(m[1]); ok && v > 0 {
					specs.Proof = v
					if specs.StatedProof == "" {
						specs.StatedProof = strings.TrimSpace(m[0])
					}
					break
				}
			}
			if m := abvTextRegex.FindStringSubmatch(text); m != nil {
				if v, ok := domain.ParseLooseNumber(m[1]); ok && v > 0 {
					specs.ABV = v
					break
				}
			}
		}
	}
	switch {
	case specs.Proof == 0 && specs.ABV > 0:
		specs.Proof = roundTenth(specs.ABV * 2)
	case specs.ABV == 0 && specs.Proof > 0:
		specs.ABV = roundTenth(specs.Proof / 2)
	}
}

// brandFromName returns the first word of the product name with surrounding
// punctuation removed
func brandFromName(name string) string {
	for _, f := range strings.Fields(name) {
		if w := strings.Trim(f, ",.;:!?()[]\"-"); w != "" {
			return w
		}
	}
	return ""
}

func dedupeIdentifiers(ids []domain.Identifier) []domain.Identifier {
	var out []domain.Identifier
	seen := make(map[string]bool)
	for _, id := range ids {
		code := strings.TrimSpace(id.Code)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		id.Code = code
		out = append(out, id)
	}
	return out
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
