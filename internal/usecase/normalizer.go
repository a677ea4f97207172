package usecase

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Compiled regex patterns for name normalization
var (
	// Matches apostrophes so "Blanton's" folds to "blantons" rather than "blanton s"
	apostropheRegex = regexp.MustCompile("['‘’`]")

	// Matches trailing strength tokens like "45%", "50.5 % abv", "43% alc/vol", "46 abv"
	trailingABVRegex = regexp.MustCompile(`(?:\s*\(?\d+(?:\.\d+)?\s*(?:%|percent|abv)(?:\s*(?:abv|alc\.?|alcohol)(?:\s*/\s*vol\.?|\s+by\s+volume)?)?\)?)+\s*$`)

	// Any character that is not a lowercase letter, digit or whitespace
	punctuationRegex = regexp.MustCompile(`[^a-z0-9\s]`)

	// Multiple spaces cleanup
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// phraseRewrites collapse equivalent label phrasings. Longer phrases come first so
// "kentucky straight bourbon whiskey" is rewritten before its sub-phrases.
var phraseRewrites = []struct {
	from string
	to   string
}{
	{"kentucky straight bourbon whiskey", "straight bourbon"},
	{"kentucky straight bourbon whisky", "straight bourbon"},
	{"kentucky straight bourbon", "straight bourbon"},
	{"straight bourbon whiskey", "straight bourbon"},
	{"straight bourbon whisky", "straight bourbon"},
	{"bottled in bond", "bib"},
	{"bottled in bonded", "bib"},
	{"single barrel", "sb"},
	{"small batch", "smb"},
	{"barrel proof", "bp"},
	{"cask strength", "cs"},
}

// Normalizer canonicalizes product names and brands for comparison. Its output is
// never persisted.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a normalizer; a nil logger disables debug output
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize lower-cases s, folds accents, strips trailing ABV tokens and punctuation,
// rewrites equivalent phrases and collapses whitespace
func (n *Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}

	cleaned := foldCase(s)
	cleaned = apostropheRegex.ReplaceAllString(cleaned, "")
	cleaned = trailingABVRegex.ReplaceAllString(cleaned, "")
	cleaned = punctuationRegex.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(multiSpacePattern.ReplaceAllString(cleaned, " "))
	cleaned = rewritePhrases(cleaned)

	if n != nil && n.logger != nil {
		n.logger.Debug("normalized name", "input", s, "output", cleaned)
	}
	return cleaned
}

// KeyWords returns the first one or two tokens longer than two characters of the
// normalized name. They stand in for the brand when none is given.
func (n *Normalizer) KeyWords(s string) []string {
	var words []string
	for _, token := range strings.Fields(n.Normalize(s)) {
		if len(token) <= 2 {
			continue
		}
		words = append(words, token)
		if len(words) == 2 {
			break
		}
	}
	return words
}

// FirstToken returns the first token of the normalized string, or ""
func (n *Normalizer) FirstToken(s string) string {
	fields := strings.Fields(n.Normalize(s))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func foldCase(s string) string {
	folded, _, err := transform.String(stripAccents, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}

func rewritePhrases(s string) string {
	padded := " " + s + " "
	for _, r := range phraseRewrites {
		padded = strings.ReplaceAll(padded, " "+r.from+" ", " "+r.to+" ")
	}
	return strings.TrimSpace(padded)
}

// searchWords splits raw user text into words with surrounding punctuation trimmed.
// The words keep inner punctuation ("blanton's") so they can be matched literally
// against stored names.
func searchWords(s string) []string {
	var words []string
	for _, f := range strings.Fields(strings.ToLower(s)) {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// containsWord reports whether needle occurs in haystack as a whole word sequence.
// Both arguments are expected to be normalized.
func containsWord(haystack, needle string) bool {
	if needle == "" || haystack == "" {
		return false
	}
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}
