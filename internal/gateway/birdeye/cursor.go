package birdeye

import (
	"sync"
	"time"
)

// Window is the half-open interval [From, To) requested from new listings. Consecutive
// windows of a chain share their boundary: To of one call is From of the next.
type Window struct {
	From time.Time
	To   time.Time
}

// cursorSet keeps one new-listings cursor per chain. All chains start at the same
// instant so the first window of each chain covers the startup lookback.
type cursorSet struct {
	mu      sync.Mutex
	start   time.Time
	byChain map[string]time.Time
}

func newCursorSet(start time.Time) *cursorSet {
	return &cursorSet{start: start, byChain: make(map[string]time.Time)}
}

// next returns the window for chain and moves its cursor to the window end.
// The cursor never moves backwards, even if the clock does.
func (s *cursorSet) next(chain string, now time.Time) Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, ok := s.byChain[chain]
	if !ok {
		from = s.start
	}
	to := now
	if to.Before(from) {
		to = from
	}
	s.byChain[chain] = to
	return Window{From: from, To: to}
}

func (s *cursorSet) get(chain string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at, ok := s.byChain[chain]; ok {
		return at
	}
	return s.start
}

// Cursor returns the lower bound of chain's next new-listings window.
func (c *Client) Cursor(chain string) time.Time {
	return c.cursors.get(chain)
}
