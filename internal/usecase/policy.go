package usecase

import "github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"

// Action is the terminal state of a match decision
type Action string

const (
	ActionAutoMerge Action = "auto_merge"
	ActionMerge     Action = "merge"
	ActionCreate    Action = "create"
)

// Default thresholds. They are tunable policy, not derived business rules.
const (
	DefaultMergeThreshold     = 85
	DefaultReviewThreshold    = 35
	DefaultPrefilterThreshold = 50
	DefaultMaxCandidates      = 10
	DefaultReviewLimit        = 8
)

// Policy centralizes the match thresholds for the automatic and review flows
type Policy struct {
	MergeThreshold     int // automatic flow: merge at or above
	ReviewThreshold    int // review flow: include strictly above
	PrefilterThreshold int // backfill: report possible duplicates strictly above
	MaxCandidates      int // fuzzy candidate set cap after scoring
	ReviewLimit        int // review flow result cap
}

// DefaultPolicy returns the standard thresholds
func DefaultPolicy() Policy {
	return Policy{
		MergeThreshold:     DefaultMergeThreshold,
		ReviewThreshold:    DefaultReviewThreshold,
		PrefilterThreshold: DefaultPrefilterThreshold,
		MaxCandidates:      DefaultMaxCandidates,
		ReviewLimit:        DefaultReviewLimit,
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.MergeThreshold <= 0 || p.MergeThreshold > maxConfidence {
		p.MergeThreshold = d.MergeThreshold
	}
	if p.ReviewThreshold <= 0 || p.ReviewThreshold >= p.MergeThreshold {
		p.ReviewThreshold = min(d.ReviewThreshold, p.MergeThreshold-1)
	}
	if p.PrefilterThreshold <= 0 || p.PrefilterThreshold >= p.MergeThreshold {
		p.PrefilterThreshold = min(d.PrefilterThreshold, p.MergeThreshold-1)
	}
	if p.MaxCandidates <= 0 {
		p.MaxCandidates = d.MaxCandidates
	}
	if p.ReviewLimit <= 0 {
		p.ReviewLimit = d.ReviewLimit
	}
	return p
}

// Decision is the result of the automatic flow
type Decision struct {
	Action    Action
	Candidate *domain.Candidate // nil for ActionCreate
}

// Decide runs the automatic flow. An exact candidate always wins with confidence
// 100; otherwise the top fuzzy candidate merges when it reaches MergeThreshold.
// scored must be ordered best first.
func (p Policy) Decide(exact *domain.CanonicalEntry, scored []domain.Candidate) Decision {
	if exact != nil {
		return Decision{
			Action: ActionAutoMerge,
			Candidate: &domain.Candidate{
				Entry:      *exact,
				Confidence: maxConfidence,
				RawScore:   maxConfidence,
				Exact:      true,
				Reasons:    []string{"Exact key match"},
			},
		}
	}
	if len(scored) > 0 && scored[0].Confidence >= p.MergeThreshold {
		top := scored[0]
		return Decision{Action: ActionMerge, Candidate: &top}
	}
	return Decision{Action: ActionCreate}
}

// Suggestions runs the review flow: candidates strictly above ReviewThreshold,
// best first, capped to ReviewLimit. Nothing is mutated.
func (p Policy) Suggestions(scored []domain.Candidate) []domain.Candidate {
	return p.above(scored, p.ReviewThreshold, p.ReviewLimit)
}

// PossibleDuplicates returns candidates strictly above PrefilterThreshold that did
// not reach MergeThreshold
func (p Policy) PossibleDuplicates(scored []domain.Candidate) []domain.Candidate {
	var out []domain.Candidate
	for _, c := range p.above(scored, p.PrefilterThreshold, len(scored)) {
		if c.Confidence < p.MergeThreshold {
			out = append(out, c)
		}
	}
	return out
}

func (p Policy) above(scored []domain.Candidate, threshold, limit int) []domain.Candidate {
	out := make([]domain.Candidate, 0, min(len(scored), limit))
	for _, c := range scored {
		if c.Confidence <= threshold {
			continue
		}
		out = append(out, c)
	}
	sortCandidates(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
