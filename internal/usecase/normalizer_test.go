package usecase

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"apostrophe folds into word", "Blanton's Single Barrel", "blantons sb"},
		{"trailing abv stripped", "Eagle Rare 10 Year 45%", "eagle rare 10 year"},
		{"parenthesized abv stripped", "Old Forester 1920 (57.5% ABV)", "old forester 1920"},
		{"accents folded", "Élijah Craig Small Batch", "elijah craig smb"},
		{"long phrase rewritten first", "Buffalo Trace Kentucky Straight Bourbon Whiskey", "buffalo trace straight bourbon"},
		{"bottled in bond", "Old Fitzgerald Bottled in Bond", "old fitzgerald bib"},
		{"punctuation and spaces collapse", "  Weller   C.Y.P.B.  ", "weller c y p b"},
		{"year is not a strength", "Stagg 2023", "stagg 2023"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizer_KeyWordsAndFirstToken(t *testing.T) {
	n := NewNormalizer(nil)

	if got := n.KeyWords("Eagle Rare 10"); !reflect.DeepEqual(got, []string{"eagle", "rare"}) {
		t.Errorf("KeyWords() = %v, want [eagle rare]", got)
	}
	if got := n.KeyWords("EH Taylor Small Batch"); !reflect.DeepEqual(got, []string{"taylor", "smb"}) {
		t.Errorf("KeyWords() = %v, want short tokens skipped", got)
	}
	if got := n.KeyWords(""); got != nil {
		t.Errorf("KeyWords(\"\") = %v, want nil", got)
	}
	if got := n.FirstToken("Blanton's Gold"); got != "blantons" {
		t.Errorf("FirstToken() = %q, want blantons", got)
	}
	if got := n.FirstToken("!!!"); got != "" {
		t.Errorf("FirstToken() = %q, want empty", got)
	}
}

func TestSearchWords(t *testing.T) {
	got := searchWords("Blanton's (Gold) Edition!")
	want := []string{"blanton's", "gold", "edition"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("searchWords() = %v, want %v", got, want)
	}
	if got := searchWords("  -- "); got != nil {
		t.Errorf("searchWords() = %v, want nil", got)
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		haystack string
		needle   string
		want     bool
	}{
		{"blantons sb", "sb", true},
		{"blantons sb", "blantons", true},
		{"blantons sb", "blant", false},
		{"four roses smb", "four roses", true},
		{"four roses", "", false},
		{"", "four", false},
	}
	for _, tt := range tests {
		if got := containsWord(tt.haystack, tt.needle); got != tt.want {
			t.Errorf("containsWord(%q, %q) = %v, want %v", tt.haystack, tt.needle, got, tt.want)
		}
	}
}
