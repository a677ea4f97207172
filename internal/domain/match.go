package domain

// Outcome tags a resolved input unit
type Outcome string

const (
	OutcomeCreated    Outcome = "created"
	OutcomeMerged     Outcome = "merged"
	OutcomeAutoMerged Outcome = "autoMerged"
)

// Candidate pairs an incoming descriptor with one existing entry
type Candidate struct {
	Entry      CanonicalEntry `json:"entry"`
	Confidence int            `json:"confidence"` // 0-100, display value
	RawScore   float64        `json:"-"`          // uncapped score, used for ordering
	Exact      bool           `json:"exact"`      // found by exact key or identifier
	Reasons    []string       `json:"reasons,omitempty"`
}

// ResolutionResult is the outcome for one resolved descriptor
type ResolutionResult struct {
	ResolvedID string   `json:"resolvedId,omitempty"`
	Outcome    Outcome  `json:"outcome,omitempty"`
	Confidence int      `json:"confidence"`
	Errors     []string `json:"errors,omitempty"`
}

// RowResolution maps one input unit (row or feed record) to its canonical entry.
// Instance carries per-row physical data (price paid, store, location) that
// belongs to the bottle, not the catalog entry.
type RowResolution struct {
	Ref        string            `json:"ref"`
	GroupKey   string            `json:"groupKey"`
	ResolvedID string            `json:"resolvedId"`
	Outcome    Outcome           `json:"outcome"`
	Instance   map[string]string `json:"instance,omitempty"`
}

// RowError is an explainable per-unit failure
type RowError struct {
	Ref     string `json:"ref"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// BatchCounters aggregates outcomes per input unit
type BatchCounters struct {
	Created  int `json:"created"`
	Merged   int `json:"merged"`
	Existing int `json:"existing"`
	Failed   int `json:"failed"`
}

// BatchReport is the summary of a bulk import or feed sync
type BatchReport struct {
	Rows      []RowResolution `json:"rows"`
	Errors    []RowError      `json:"errors,omitempty"`
	Counters  BatchCounters   `json:"counters"`
	Groups    int             `json:"groups"`
	Canceled  bool            `json:"canceled,omitempty"`
	Truncated int             `json:"truncatedErrors,omitempty"` // errors dropped past the report limit
}
