package usecase

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

// Signal weights
const (
	weightNameSimilarity = 45.0 // scaled by normalized edit-distance similarity
	weightBrandField     = 35.0 // brand fields equal
	weightFirstToken     = 30.0 // first normalized token equal
	weightBrandInName    = 25.0 // incoming brand appears as a word in candidate name
	weightDistInName     = 20.0 // incoming distillery appears as a word in candidate name
	weightProofExact     = 20.0
	weightProofWithin1   = 15.0
	weightProofWithin2   = 10.0
	weightProofWithin5   = 5.0
	multiSignalBonus     = 10.0
	highSimilarity       = 0.7 // name similarity counted as a signal for the bonus
	maxConfidence        = 100
)

// Scorer computes deterministic, explainable confidence scores
type Scorer struct {
	normalizer *Normalizer
	logger     *slog.Logger
}

// NewScorer creates a scorer
func NewScorer(normalizer *Normalizer, logger *slog.Logger) *Scorer {
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}
	return &Scorer{normalizer: normalizer, logger: logger}
}

// Score rates how likely entry describes the same product as d. The raw score is
// unbounded above; Confidence is the rounded score capped to 100.
func (s *Scorer) Score(d *domain.Descriptor, entry domain.CanonicalEntry) domain.Candidate {
	var reasons []string

	inName := s.normalizer.Normalize(d.Name)
	candName := s.normalizer.Normalize(entry.Name)

	similarity := NameSimilarity(inName, candName)
	score := similarity * weightNameSimilarity
	if similarity > highSimilarity {
		reasons = append(reasons, "High name similarity")
	}

	firstMatch := false
	if a, b := firstField(inName), firstField(candName); a != "" && a == b {
		firstMatch = true
	}

	brand := s.incomingBrand(d)
	candBrand := s.normalizer.Normalize(entry.Brand)
	distillery := s.normalizer.Normalize(d.Distillery)

	switch {
	case brand != "" && brand == candBrand:
		score += weightBrandField
		reasons = append(reasons, "Brand match")
	case firstMatch:
		score += weightFirstToken
		reasons = append(reasons, "First word match")
	case containsWord(candName, brand):
		score += weightBrandInName
		reasons = append(reasons, "Brand in name")
	case containsWord(candName, distillery):
		score += weightDistInName
		reasons = append(reasons, "Distillery in name")
	}

	proofScore, proofReason := proofProximity(d.Specs.Proof, entry.Specs.Proof)
	score += proofScore
	if proofReason != "" {
		reasons = append(reasons, proofReason)
	}

	signals := 0
	if firstMatch {
		signals++
	}
	if proofScore > 0 {
		signals++
	}
	if similarity > highSimilarity {
		signals++
	}
	if signals >= 2 {
		score += multiSignalBonus
		reasons = append(reasons, "Multiple signals")
	}

	if s.logger != nil {
		s.logger.Debug("scored candidate",
			"incoming", d.Name, "candidate", entry.Name,
			"similarity", similarity, "score", score, "reasons", reasons)
	}

	return domain.Candidate{
		Entry:      entry,
		Confidence: displayConfidence(score),
		RawScore:   score,
		Reasons:    reasons,
	}
}

// ScoreAll scores entries and orders them by descending raw score, ties broken by
// entry id so repeated runs produce the same order
func (s *Scorer) ScoreAll(d *domain.Descriptor, entries []domain.CanonicalEntry) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(entries))
	for _, entry := range entries {
		candidates = append(candidates, s.Score(d, entry))
	}
	sortCandidates(candidates)
	return candidates
}

// incomingBrand is the normalized explicit brand, or the first key word of the name
func (s *Scorer) incomingBrand(d *domain.Descriptor) string {
	if brand := s.normalizer.Normalize(d.Brand); brand != "" {
		return brand
	}
	if words := s.normalizer.KeyWords(d.Name); len(words) > 0 {
		return words[0]
	}
	return ""
}

// NameSimilarity returns 1 - levenshtein(a,b)/max(len(a),len(b)), or 0 when both are empty
func NameSimilarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshteinDistance(a, b))/float64(longest)
}

func proofProximity(in, cand float64) (float64, string) {
	if in <= 0 || cand <= 0 {
		return 0, ""
	}
	diff := math.Abs(in - cand)
	switch {
	case diff == 0:
		return weightProofExact, fmt.Sprintf("Exact %s° proof", formatProof(in))
	case diff < 1:
		return weightProofWithin1, "Proof within 1°"
	case diff < 2:
		return weightProofWithin2, "Proof within 2°"
	case diff < 5:
		return weightProofWithin5, "Proof within 5°"
	}
	return 0, ""
}

func formatProof(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func displayConfidence(score float64) int {
	c := int(math.Round(score))
	if c > maxConfidence {
		return maxConfidence
	}
	if c < 0 {
		return 0
	}
	return c
}

func sortCandidates(candidates []domain.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].RawScore != candidates[j].RawScore {
			return candidates[i].RawScore > candidates[j].RawScore
		}
		return candidates[i].Entry.ID < candidates[j].Entry.ID
	})
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len([]rune(s2))
	}
	if len(s2) == 0 {
		return len([]rune(s1))
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Use two rows instead of full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
