// Package scanner runs one scan cycle: discover candidates per chain, normalize them to full
// records, enrich each with OHLCV series and security data and keep those the filter accepts.
// A failing chain or token is logged and skipped; it never aborts the cycle.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tokenscout/internal/filter"
	"tokenscout/internal/gateway/birdeye"
	"tokenscout/internal/logger"
	"tokenscout/internal/metrics"
	"tokenscout/internal/pkg/address"
	"tokenscout/internal/pkg/circuit"
	"tokenscout/internal/token"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Source is the market data provider.
type Source interface {
	FetchCandidates(ctx context.Context, chain string, mode birdeye.Mode) (birdeye.Batch, error)
	FetchTokenDetail(ctx context.Context, chain, address string) (token.Token, error)
	FetchOHLCV(ctx context.Context, chain, address string, period token.Period) (token.PeriodSummary, error)
	FetchSecurity(ctx context.Context, chain, address string) (token.Security, error)
}

// CriteriaSource hands out point-in-time criteria copies.
type CriteriaSource interface {
	Snapshot() filter.Criteria
}

// Observer receives per-chain and per-cycle counters.
type Observer interface {
	ObserveChain(metrics.ChainStats)
	ObserveCycle(elapsed time.Duration, finishedAt time.Time)
	SetBreakerOpen(chain string, open bool)
}

// Config holds scanner configuration.
type Config struct {
	ChainWorkers     int           // chains scanned concurrently (default: 4)
	TokenWorkers     int           // tokens enriched concurrently per chain (default: 8)
	ChainTimeout     time.Duration // budget for one chain, 0 = cycle context only
	BreakerThreshold int           // consecutive discovery failures before a chain is paused, 0 = off
	BreakerCooldown  time.Duration // pause before a chain is probed again
	ValidateAddress  bool          // drop candidates whose address does not fit the chain format
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChainWorkers:     4,
		TokenWorkers:     8,
		ChainTimeout:     2 * time.Minute,
		BreakerThreshold: 3,
		BreakerCooldown:  5 * time.Minute,
		ValidateAddress:  true,
	}
}

// Scanner is stateless between cycles apart from breaker state and the last report.
type Scanner struct {
	cfg      Config
	src      Source
	criteria CriteriaSource
	filter   *filter.Filter
	breakers *circuit.Group
	obs      Observer
	now      func() time.Time

	last atomic.Pointer[Report]
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithObserver installs a metrics sink.
func WithObserver(o Observer) Option {
	return func(s *Scanner) { s.obs = o }
}

// WithFilter replaces the default check set.
func WithFilter(f *filter.Filter) Option {
	return func(s *Scanner) {
		if f != nil {
			s.filter = f
		}
	}
}

// WithClock replaces time.Now for report timestamps and breakers.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		if now != nil {
			s.now = now
		}
	}
}

func New(cfg Config, src Source, criteria CriteriaSource, opts ...Option) *Scanner {
	def := DefaultConfig()
	if cfg.ChainWorkers <= 0 {
		cfg.ChainWorkers = def.ChainWorkers
	}
	if cfg.TokenWorkers <= 0 {
		cfg.TokenWorkers = def.TokenWorkers
	}
	s := &Scanner{
		cfg:      cfg,
		src:      src,
		criteria: criteria,
		filter:   filter.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.breakers = circuit.NewGroup(cfg.BreakerThreshold, cfg.BreakerCooldown)
	s.breakers.SetClock(s.now)
	return s
}

// ScanCycle runs one cycle over chains and returns the accepted tokens in chain order.
func (s *Scanner) ScanCycle(ctx context.Context, chains []string) []token.Token {
	return s.Scan(ctx, chains).Tokens()
}

// Scan runs one cycle over chains. The criteria are read once, so every token in the
// cycle is judged against the same thresholds.
func (s *Scanner) Scan(ctx context.Context, chains []string) Report {
	rep := Report{CycleID: uuid.NewString(), StartedAt: s.now()}
	crit := s.criteria.Snapshot()
	mode := birdeye.ModeAll
	if crit.ScanNewListingsOnly {
		mode = birdeye.ModeNewListings
	}

	chainReports := make([]ChainReport, len(chains))
	chainMatches := make([][]Match, len(chains))

	var g errgroup.Group
	g.SetLimit(s.cfg.ChainWorkers)
	for i, chain := range chains {
		g.Go(func() error {
			chainReports[i], chainMatches[i] = s.scanChain(ctx, chain, mode, crit)
			return nil
		})
	}
	_ = g.Wait()

	rep.Chains = chainReports
	for _, m := range chainMatches {
		rep.Matches = append(rep.Matches, m...)
	}
	rep.FinishedAt = s.now()

	t := rep.Totals()
	logger.Infof("[scanner] cycle %s mode=%s chains=%d failed=%v candidates=%d enrich_failures=%d matches=%d in %s",
		rep.CycleID, mode, len(chains), rep.FailedChains(), t.Candidates, t.EnrichmentFailures, t.Matches,
		rep.Duration().Truncate(time.Millisecond))
	if s.obs != nil {
		s.obs.ObserveCycle(rep.Duration(), rep.FinishedAt)
	}
	stored := rep
	s.last.Store(&stored)
	return rep
}

// LastReport returns the most recent cycle report.
func (s *Scanner) LastReport() (Report, bool) {
	r := s.last.Load()
	if r == nil {
		return Report{}, false
	}
	return *r, true
}

// BreakerStates exposes the per-chain breaker states.
func (s *Scanner) BreakerStates() map[string]circuit.State {
	return s.breakers.States()
}

func (s *Scanner) scanChain(ctx context.Context, chain string, mode birdeye.Mode, crit filter.Criteria) (rep ChainReport, matches []Match) {
	start := s.now()
	rep = ChainReport{Chain: chain, Mode: mode.String()}
	breaker := s.breakers.Get(chain)
	defer func() {
		rep.Duration = s.now().Sub(start)
		s.observeChain(rep, breaker)
	}()

	if !breaker.Allow() {
		rep.Error = "circuit open"
		logger.Warnf("[scanner] %s skipped: circuit open", chain)
		return rep, nil
	}
	if s.cfg.ChainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ChainTimeout)
		defer cancel()
	}

	batch, err := s.src.FetchCandidates(ctx, chain, mode)
	breaker.Record(err)
	if err != nil {
		rep.Error = err.Error()
		logger.Errorf("[scanner] %s discovery failed: %v", chain, err)
		return rep, nil
	}
	rep.Candidates = len(batch.Candidates)
	rep.Malformed = batch.Malformed

	cands := s.prepare(chain, batch.Candidates, &rep)
	matches = s.enrichAll(ctx, chain, cands, crit, &rep)
	rep.Matches = len(matches)
	return rep, matches
}

// prepare drops invalid and repeated addresses, keeping first-seen order.
func (s *Scanner) prepare(chain string, cands []token.Candidate, rep *ChainReport) []token.Candidate {
	seen := make(map[string]struct{}, len(cands))
	out := make([]token.Candidate, 0, len(cands))
	for _, c := range cands {
		if s.cfg.ValidateAddress {
			if err := address.Validate(chain, c.Address); err != nil {
				rep.Invalid++
				logger.Debugf("[scanner] %s: %v", chain, err)
				continue
			}
		}
		key := address.Normalize(chain, c.Address)
		if _, dup := seen[key]; dup {
			rep.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

type tokenOutcome int

const (
	outcomeRejected tokenOutcome = iota
	outcomeAccepted
	outcomeDetailFailed
	outcomeEnrichFailed
	// outcomeCancelled: the chain timeout or the cycle context ended first.
	outcomeCancelled
)

func (s *Scanner) enrichAll(ctx context.Context, chain string, cands []token.Candidate, crit filter.Criteria, rep *ChainReport) []Match {
	results := make([]*Match, len(cands))
	var (
		mu       sync.Mutex
		rejected = make(map[string]int)
	)

	var g errgroup.Group
	g.SetLimit(s.cfg.TokenWorkers)
	for i, cand := range cands {
		g.Go(func() error {
			var (
				m       *Match
				outcome = outcomeCancelled
				reason  string
			)
			if ctx.Err() == nil {
				m, outcome, reason = s.evaluate(ctx, chain, cand, crit)
			}
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeAccepted:
				results[i] = m
			case outcomeRejected:
				rejected[reason]++
			case outcomeDetailFailed:
				rep.DetailFailures++
			case outcomeEnrichFailed:
				rep.EnrichmentFailures++
			case outcomeCancelled:
				rep.Cancelled++
			}
			return nil
		})
	}
	_ = g.Wait()

	if rep.Cancelled > 0 {
		logger.Warnf("[scanner] %s: %d candidates not evaluated: %v", chain, rep.Cancelled, context.Cause(ctx))
	}
	if len(rejected) > 0 {
		rep.Rejected = rejected
	}
	var out []Match
	for _, m := range results {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out
}

// evaluate resolves, enriches and filters one candidate.
func (s *Scanner) evaluate(ctx context.Context, chain string, cand token.Candidate, crit filter.Criteria) (*Match, tokenOutcome, string) {
	rec, err := s.resolve(ctx, chain, cand)
	if err != nil && ctx.Err() != nil {
		return nil, outcomeCancelled, ""
	}
	if err != nil {
		logger.Warnf("[scanner] %s/%s detail failed: %v", chain, cand.Address, err)
		return nil, outcomeDetailFailed, ""
	}
	series, sec, err := s.enrich(ctx, chain, rec.Address)
	if err != nil && ctx.Err() != nil {
		return nil, outcomeCancelled, ""
	}
	if err != nil {
		logger.Warnf("[scanner] %s/%s enrichment failed: %v", chain, rec.Address, err)
		return nil, outcomeEnrichFailed, ""
	}

	in := filter.Input{Token: rec, Series: series, Security: sec}
	d := s.filter.Evaluate(in, crit)
	if !d.Accepted {
		if logger.Enabled(slog.LevelDebug) {
			logger.Debugf("[scanner] %s/%s %s rejected by %v", chain, rec.Address, rec.Symbol, s.filter.Explain(in, crit))
		}
		return nil, outcomeRejected, d.Failed
	}
	logger.Infof("[scanner] %s/%s %s matched", chain, rec.Address, rec.Symbol)
	return &Match{Token: rec, Series: series, Security: sec}, outcomeAccepted, ""
}

// resolve turns a candidate into a full record, fetching details unless the listing
// already carried them.
func (s *Scanner) resolve(ctx context.Context, chain string, cand token.Candidate) (token.Token, error) {
	if !cand.NeedsDetail() {
		rec := cand.Record
		rec.Chain = chain
		rec.Address = cand.Address
		return rec, nil
	}
	rec, err := s.src.FetchTokenDetail(ctx, chain, cand.Address)
	if err != nil {
		return token.Token{}, err
	}
	rec.Chain = chain
	if rec.Address == "" {
		rec.Address = cand.Address
	}
	return rec, nil
}

// enrich fetches every period and the security record. Any failure discards the token.
func (s *Scanner) enrich(ctx context.Context, chain, addr string) (token.Series, token.Security, error) {
	series := make(token.Series, len(token.Periods))
	for _, p := range token.Periods {
		sum, err := s.src.FetchOHLCV(ctx, chain, addr, p)
		if err != nil {
			return nil, token.Security{}, fmt.Errorf("ohlcv %s: %w", p, err)
		}
		series[p] = sum
	}
	sec, err := s.src.FetchSecurity(ctx, chain, addr)
	if err != nil {
		return nil, token.Security{}, fmt.Errorf("security: %w", err)
	}
	return series, sec, nil
}

func (s *Scanner) observeChain(rep ChainReport, b *circuit.Breaker) {
	if s.obs == nil {
		return
	}
	s.obs.ObserveChain(metrics.ChainStats{
		Chain:              rep.Chain,
		Candidates:         rep.Candidates,
		Malformed:          rep.Malformed,
		Invalid:            rep.Invalid,
		DetailFailures:     rep.DetailFailures,
		EnrichmentFailures: rep.EnrichmentFailures,
		Cancelled:          rep.Cancelled,
		Matches:            rep.Matches,
		Failed:             rep.Failed(),
	})
	s.obs.SetBreakerOpen(rep.Chain, b.State() != circuit.StateClosed)
}
