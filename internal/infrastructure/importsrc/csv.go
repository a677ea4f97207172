package importsrc

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

// knownFields lists the logical fields a mapping may bind
var knownFields = []string{
	domain.FieldWine, domain.FieldProducer, domain.FieldBrand, domain.FieldVintage,
	domain.FieldProof, domain.FieldABV, domain.FieldBarcode, domain.FieldStore,
	domain.FieldPrice, domain.FieldSize, domain.FieldCountry, domain.FieldRegion,
	domain.FieldCategory, domain.FieldVariant, domain.FieldExternalID,
	domain.FieldPurchasedAt, domain.FieldLocation,
}

// Table is a parsed spreadsheet: the header row plus one ImportRow per data row
type Table struct {
	Headers []string
	Rows    []domain.ImportRow
}

// ReadCSV parses a spreadsheet export. The first record is the header row; a
// UTF-8 byte order mark is dropped, blank rows are skipped and short rows leave
// trailing columns empty.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.NewValidationError("csv", "file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", domain.ErrInvalidRequest, err)
	}

	table := &Table{Headers: make([]string, len(header))}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		table.Headers[i] = strings.TrimSpace(h)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
		}
		if blank(record) {
			continue
		}
		row := make(domain.ImportRow, len(table.Headers))
		for i, h := range table.Headers {
			if h == "" {
				continue
			}
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// AutoMapping binds every logical field to the header with the same name,
// ignoring case. CellarTracker-style exports ("Wine", "Producer", "iWine") map
// without any user input.
func AutoMapping(headers []string) domain.ColumnMapping {
	byLower := make(map[string]string, len(headers))
	for _, h := range headers {
		lower := strings.ToLower(h)
		if _, seen := byLower[lower]; !seen && h != "" {
			byLower[lower] = h
		}
	}

	mapping := domain.ColumnMapping{}
	for _, field := range knownFields {
		if h, ok := byLower[field]; ok {
			mapping[field] = h
		}
	}
	return mapping
}

// ParseMapping parses "field=Header" pairs on top of base. Unknown fields and
// malformed pairs are rejected.
func ParseMapping(base domain.ColumnMapping, pairs []string) (domain.ColumnMapping, error) {
	mapping := domain.ColumnMapping{}
	for k, v := range base {
		mapping[k] = v
	}
	for _, pair := range pairs {
		field, header, ok := strings.Cut(pair, "=")
		field = strings.ToLower(strings.TrimSpace(field))
		header = strings.TrimSpace(header)
		if !ok || field == "" || header == "" {
			return nil, domain.NewValidationError("mapping", fmt.Sprintf("expected field=Header, got %q", pair))
		}
		if !isKnownField(field) {
			return nil, domain.NewValidationError("mapping", fmt.Sprintf("unknown field %q", field))
		}
		mapping[field] = header
	}
	return mapping, nil
}

func isKnownField(field string) bool {
	for _, f := range knownFields {
		if f == field {
			return true
		}
	}
	return false
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
