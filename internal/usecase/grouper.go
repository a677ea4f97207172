package usecase

import (
	"strconv"
	"strings"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

// Unit is one input row or feed record awaiting resolution
type Unit struct {
	Ref        string
	Descriptor domain.Descriptor
	Instance   map[string]string
}

// Group is the set of units sharing one grouping key. Its descriptor is the first
// unit's, enriched with identifiers from the rest of the group.
type Group struct {
	Key        string
	Descriptor domain.Descriptor
	Units      []Unit
}

// GroupKey returns the batch grouping key of d: the namespaced external id when
// present, otherwise the case-folded (name, producer, vintage, variant) composite.
// An empty name without an external id yields "".
func GroupKey(d *domain.Descriptor) string {
	if id := domain.FoldKey(d.ExternalID); id != "" {
		return "ext:" + id
	}
	name := domain.FoldKey(d.Name)
	if name == "" {
		return ""
	}
	return strings.Join([]string{
		"key",
		name,
		domain.FoldKey(d.Distillery),
		domain.FoldKey(d.Vintage),
		domain.FoldKey(d.VariantFlag),
	}, "|")
}

// GroupUnits partitions units by grouping key, preserving first-appearance order.
// Units without a usable key are returned as row errors.
func GroupUnits(units []Unit) ([]*Group, []domain.RowError) {
	var groups []*Group
	var rowErrors []domain.RowError
	index := make(map[string]*Group)

	for _, u := range units {
		key := GroupKey(&u.Descriptor)
		if key == "" {
			rowErrors = append(rowErrors, domain.RowError{
				Ref:     u.Ref,
				Kind:    domain.KindUnresolvable,
				Message: domain.ErrUnresolvableKey.Error() + ": row has neither an external id nor a product name",
			})
			continue
		}
		g, ok := index[key]
		if !ok {
			g = &Group{Key: key, Descriptor: u.Descriptor}
			g.Descriptor.Identifiers = append([]domain.Identifier(nil), u.Descriptor.Identifiers...)
			index[key] = g
			groups = append(groups, g)
		} else {
			g.Descriptor.Identifiers = append(g.Descriptor.Identifiers, u.Descriptor.Identifiers...)
		}
		g.Units = append(g.Units, u)
	}

	for _, g := range groups {
		g.Descriptor.Identifiers = dedupeIdentifiers(g.Descriptor.Identifiers)
	}
	return groups, rowErrors
}

// RowUnits converts spreadsheet rows into units. Refs are 1-based row numbers.
func RowUnits(rows []domain.ImportRow, mapping domain.ColumnMapping) []Unit {
	units := make([]Unit, 0, len(rows))
	for i, row := range rows {
		units = append(units, Unit{
			Ref:        rowRef(i),
			Descriptor: DescriptorFromRow(row, mapping),
			Instance:   RowInstance(row, mapping),
		})
	}
	return units
}

// RecordUnits converts feed records into units referenced by feed id. Records
// without a feed id are referenced by name and batch position.
func RecordUnits(records []domain.ExternalRecord) []Unit {
	units := make([]Unit, 0, len(records))
	for i, rec := range records {
		ref := "feed:" + rec.FeedID
		if rec.FeedID == "" {
			ref = "feed:" + rec.Name + "#" + strconv.Itoa(i+1)
		}
		units = append(units, Unit{Ref: ref, Descriptor: DescriptorFromRecord(rec)})
	}
	return units
}

func rowRef(i int) string {
	return "row " + strconv.Itoa(i+1)
}
