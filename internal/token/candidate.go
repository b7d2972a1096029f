package token

// CandidateKind tags which shape the provider used for a candidate.
type CandidateKind int

const (
	// KindAddress is a bare address string; the full record must be fetched.
	KindAddress CandidateKind = iota
	// KindPartial is an object carrying at least an address; the full record must be fetched.
	KindPartial
	// KindComplete is an already complete record taken from an address-keyed map.
	KindComplete
)

func (k CandidateKind) String() string {
	switch k {
	case KindAddress:
		return "address"
	case KindPartial:
		return "partial"
	case KindComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Candidate is one token selected for inspection in the current cycle.
// Record is only meaningful for KindComplete.
type Candidate struct {
	Kind    CandidateKind
	Address string
	Record  Token
}

// NeedsDetail reports whether the candidate must be resolved through a detail fetch.
func (c Candidate) NeedsDetail() bool {
	return c.Kind != KindComplete
}
