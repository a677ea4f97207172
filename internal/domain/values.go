package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// sentinelValues are placeholder strings feeds and spreadsheets use for "no value"
var sentinelValues = map[string]bool{
	"":        true,
	"n/a":     true,
	"na":      true,
	"n.a.":    true,
	"none":    true,
	"null":    true,
	"nil":     true,
	"unknown": true,
	"-":       true,
	"--":      true,
	"?":       true,
	"tbd":     true,
	"nan":     true,
}

// leadingNumberRegex captures the first decimal number in a string, tolerating
// thousands separators and a leading currency symbol
var leadingNumberRegex = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?|-?\.\d+`)

// IsSentinel reports whether s is empty or a placeholder such as "N/A"
func IsSentinel(s string) bool {
	return sentinelValues[strings.ToLower(strings.TrimSpace(s))]
}

// CleanText trims s and maps sentinels to ""
func CleanText(s string) string {
	if IsSentinel(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

// ParseLooseNumber extracts a number from text such as "45%", "750 ML", "$59.99",
// "1,750" or "93 proof". Sentinels and text without digits report ok=false.
func ParseLooseNumber(s string) (float64, bool) {
	if IsSentinel(s) {
		return 0, false
	}
	match := leadingNumberRegex.FindString(s)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// LooseNumber parses a loosely typed JSON value: numbers pass through, strings go
// through ParseLooseNumber, anything else is absent
func LooseNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		return ParseLooseNumber(n)
	}
	return 0, false
}

// LooseString renders a loosely typed JSON value as text, mapping sentinels to ""
func LooseString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return CleanText(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

// SplitCodes splits a multi-code string ("012345 067890", "a,b; c") into unique
// codes, preserving order and dropping sentinels
func SplitCodes(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == ';' || r == '|' || r == '\t' || r == '\n'
	})
	var codes []string
	seen := make(map[string]bool)
	for _, f := range fields {
		if IsSentinel(f) || seen[f] {
			continue
		}
		seen[f] = true
		codes = append(codes, f)
	}
	return codes
}
