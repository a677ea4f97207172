package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

func TestMapRecord(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]interface{}
		want     domain.ExternalRecord
		wantKind string
	}{
		{
			name: "loosely typed fields",
			raw: map[string]interface{}{
				"id":          "12345",
				"displayName": "  Stagg Jr.  ",
				"brand":       "Stagg",
				"proof":       "N/A",
				"abv":         "64.2%",
				"size":        "750 ML",
				"msrp":        "$59.99",
				"upc":         "088004021344 088004021344 N/A",
				"age":         "2019",
			},
			want: domain.ExternalRecord{
				FeedID: "12345",
				Name:   "Stagg Jr.",
				Brand:  "Stagg",
				ABV:    64.2,
				Size:   "750 ML",
				Price:  59.99,
				Age:    "2019",
				UPCs:   []string{"088004021344"},
			},
		},
		{
			name: "numeric values and upc array",
			raw: map[string]interface{}{
				"feedId":  float64(77),
				"name":    "Weller 12",
				"proof":   float64(90),
				"upcs":    []interface{}{"088004021344", float64(88004021345)},
				"type":    "Bourbon",
				"country": "USA",
			},
			want: domain.ExternalRecord{
				FeedID:   "77",
				Name:     "Weller 12",
				Proof:    90,
				Category: "Bourbon",
				Country:  "USA",
				UPCs:     []string{"088004021344", "88004021345"},
			},
		},
		{
			name:     "missing name",
			raw:      map[string]interface{}{"id": "9", "name": "unknown"},
			wantKind: domain.KindValidation,
		},
		{
			name:     "missing id",
			raw:      map[string]interface{}{"name": "Weller 12"},
			wantKind: domain.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MapRecord(tt.raw)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, domain.Kind(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain   text\n here", "plain text here"},
		{"<p>Rich <b>caramel</b> &amp; oak</p>", "Rich caramel & oak"},
		{"<div>Nose<br/>Vanilla</div><script>alert(1)</script><style>p{}</style>", "Nose Vanilla"},
		{"Proof &gt; 100", "Proof > 100"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}
