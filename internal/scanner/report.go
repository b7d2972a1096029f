package scanner

import (
	"time"

	"tokenscout/internal/token"
)

// Match is one token accepted in a cycle together with the data it was judged on.
type Match struct {
	Token    token.Token    `json:"token"`
	Series   token.Series   `json:"series"`
	Security token.Security `json:"security"`
}

// ChainReport summarizes one chain's share of a cycle.
type ChainReport struct {
	Chain              string         `json:"chain"`
	Mode               string         `json:"mode"`
	Candidates         int            `json:"candidates"`
	Malformed          int            `json:"malformed"`
	Invalid            int            `json:"invalid_address"`
	Duplicates         int            `json:"duplicates"`
	DetailFailures     int            `json:"detail_failures"`
	EnrichmentFailures int            `json:"enrichment_failures"`
	Cancelled          int            `json:"cancelled"`
	Rejected           map[string]int `json:"rejected,omitempty"`
	Matches            int            `json:"matches"`
	Error              string         `json:"error,omitempty"`
	Duration           time.Duration  `json:"duration"`
}

// Failed reports whether the chain contributed nothing because discovery failed.
func (c ChainReport) Failed() bool {
	return c.Error != ""
}

// Report is the outcome of one cycle.
type Report struct {
	CycleID    string        `json:"cycle_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Chains     []ChainReport `json:"chains"`
	Matches    []Match       `json:"matches"`
}

// Tokens returns the matched tokens in chain order.
func (r Report) Tokens() []token.Token {
	out := make([]token.Token, 0, len(r.Matches))
	for _, m := range r.Matches {
		out = append(out, m.Token)
	}
	return out
}

// Duration is the wall time of the cycle.
func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Totals sums the per-chain counters.
func (r Report) Totals() ChainReport {
	var t ChainReport
	for _, c := range r.Chains {
		t.Candidates += c.Candidates
		t.Malformed += c.Malformed
		t.Invalid += c.Invalid
		t.Duplicates += c.Duplicates
		t.DetailFailures += c.DetailFailures
		t.EnrichmentFailures += c.EnrichmentFailures
		t.Cancelled += c.Cancelled
		t.Matches += c.Matches
	}
	return t
}

// FailedChains lists the chains skipped in this cycle.
func (r Report) FailedChains() []string {
	var out []string
	for _, c := range r.Chains {
		if c.Failed() {
			out = append(out, c.Chain)
		}
	}
	return out
}
