package feed

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

// Feed records are schema-loose; each field is read from the first key present.
var (
	idKeys          = []string{"id", "feedId", "productId", "_id"}
	nameKeys        = []string{"name", "displayName", "title"}
	brandKeys       = []string{"brand", "brandName"}
	distilleryKeys  = []string{"distillery", "producer"}
	categoryKeys    = []string{"category", "type", "style"}
	ageKeys         = []string{"age", "vintage"}
	proofKeys       = []string{"proof"}
	abvKeys         = []string{"abv", "alcohol"}
	sizeKeys        = []string{"size", "volume"}
	countryKeys     = []string{"country"}
	regionKeys      = []string{"region"}
	priceKeys       = []string{"msrp", "price"}
	descriptionKeys = []string{"description", "descriptionHtml"}
	imageKeys       = []string{"imageUrl", "image", "thumbnail"}
	upcKeys         = []string{"upc", "upcs", "barcodes"}
)

// MapRecord converts a raw feed object into an ExternalRecord. Numeric fields may
// arrive as numbers or as strings with units ("45%", "750 ML") or sentinels
// ("N/A"); unusable values are left unset. A record without an id or a name is
// rejected with a validation error.
func MapRecord(raw map[string]interface{}) (*domain.ExternalRecord, error) {
	rec := &domain.ExternalRecord{
		FeedID:      rawFeedID(raw),
		Name:        stringField(raw, nameKeys),
		Brand:       stringField(raw, brandKeys),
		Distillery:  stringField(raw, distilleryKeys),
		Category:    stringField(raw, categoryKeys),
		Age:         stringField(raw, ageKeys),
		Size:        stringField(raw, sizeKeys),
		Country:     stringField(raw, countryKeys),
		Region:      stringField(raw, regionKeys),
		Description: StripHTML(stringField(raw, descriptionKeys)),
		ImageURL:    stringField(raw, imageKeys),
		UPCs:        codesField(raw, upcKeys),
	}
	rec.Proof = positiveNumber(raw, proofKeys)
	rec.ABV = positiveNumber(raw, abvKeys)
	rec.Price = positiveNumber(raw, priceKeys)

	if rec.FeedID == "" {
		return nil, domain.NewValidationError("id", "feed record has no id")
	}
	if rec.Name == "" {
		return nil, domain.NewValidationError("name", "feed record "+rec.FeedID+" has no name")
	}
	return rec, nil
}

// StripHTML returns the visible text of an HTML fragment with entities decoded and
// whitespace collapsed. Script and style content is dropped.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}

	var (
		parts []string
		skip  int
	)
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
		case html.StartTagToken:
			if isHiddenTag(tokenizer) {
				skip++
			}
		case html.EndTagToken:
			if isHiddenTag(tokenizer) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				parts = append(parts, string(tokenizer.Text()))
			}
		}
	}
}

func isHiddenTag(tokenizer *html.Tokenizer) bool {
	name, _ := tokenizer.TagName()
	tag := string(name)
	return tag == "script" || tag == "style"
}

func rawFeedID(raw map[string]interface{}) string {
	return stringField(raw, idKeys)
}

func stringField(raw map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			if s := domain.LooseString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func positiveNumber(raw map[string]interface{}, keys []string) float64 {
	for _, key := range keys {
		if n, ok := domain.LooseNumber(raw[key]); ok && n > 0 {
			return n
		}
	}
	return 0
}

// codesField accepts either a delimited string or an array of codes
func codesField(raw map[string]interface{}, keys []string) []string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if codes := domain.SplitCodes(v); len(codes) > 0 {
				return codes
			}
		case []interface{}:
			var joined []string
			for _, item := range v {
				if s := domain.LooseString(item); s != "" {
					joined = append(joined, s)
				}
			}
			if codes := domain.SplitCodes(strings.Join(joined, " ")); len(codes) > 0 {
				return codes
			}
		}
	}
	return nil
}
