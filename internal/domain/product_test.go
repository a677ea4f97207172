package domain

import "testing"

func TestScopedExternalID(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		id        string
		want      string
	}{
		{"iwine id", NamespaceIWine, " 12345 ", "iwine:12345"},
		{"feed id", NamespaceFeed, "12345", "feed:12345"},
		{"empty stays empty", NamespaceFeed, "  ", ""},
		{"already scoped", NamespaceIWine, "feed:f-7", "feed:f-7"},
		{"scoped in other case", NamespaceFeed, "IWINE:9", "IWINE:9"},
		{"bare namespace is an id", NamespaceIWine, "feed:", "iwine:feed:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScopedExternalID(tt.namespace, tt.id); got != tt.want {
				t.Errorf("ScopedExternalID(%q, %q) = %q, want %q", tt.namespace, tt.id, got, tt.want)
			}
		})
	}
}
