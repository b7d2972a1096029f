package birdeye

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"tokenscout/internal/logger"
	"tokenscout/internal/token"

	"github.com/tidwall/gjson"
)

// Mode selects which candidate universe a cycle inspects.
type Mode int

const (
	// ModeAll lists every token the provider tracks on the chain.
	ModeAll Mode = iota
	// ModeNewListings lists tokens added since the chain cursor.
	ModeNewListings
)

func (m Mode) String() string {
	if m == ModeNewListings {
		return "new_listings"
	}
	return "all_tokens"
}

// Batch is one decoded candidate listing.
type Batch struct {
	Candidates []token.Candidate
	// Malformed counts items that matched no known shape and were dropped.
	Malformed int
	// Window is set for ModeNewListings only.
	Window Window
}

// FetchCandidates lists candidates for chain. In ModeNewListings the chain cursor
// advances to now exactly once per call, whether or not the request succeeds.
func (c *Client) FetchCandidates(ctx context.Context, chain string, mode Mode) (Batch, error) {
	chain = strings.TrimSpace(chain)
	if chain == "" {
		return Batch{}, fmt.Errorf("chain is required")
	}
	var (
		batch Batch
		path  string
		query url.Values
	)
	switch mode {
	case ModeNewListings:
		batch.Window = c.cursors.next(chain, c.now())
		path = "/public/new_listings/" + url.PathEscape(chain)
		query = url.Values{
			"from": {batch.Window.From.UTC().Format(time.RFC3339)},
			"to":   {batch.Window.To.UTC().Format(time.RFC3339)},
		}
	default:
		path = "/public/all_tokens/" + url.PathEscape(chain)
	}

	data, err := c.getData(ctx, mode.String(), chain, path, query)
	if err != nil {
		return batch, fmt.Errorf("%s %s: %w", mode, chain, err)
	}
	batch.Candidates, batch.Malformed = DecodeCandidates(chain, data)
	if batch.Malformed > 0 {
		logger.Warnf("[birdeye] %s %s: skipped %d malformed candidates", mode, chain, batch.Malformed)
	}
	return batch, nil
}

// DecodeCandidates maps the provider's listing payload onto candidates. Accepted shapes:
// an array of address strings, an array of objects carrying "address", an object keyed by
// address whose values are full records, and an object wrapping one of the arrays under
// "items" or "tokens". Items matching none of these are counted as malformed.
func DecodeCandidates(chain string, data gjson.Result) ([]token.Candidate, int) {
	if !data.Exists() || data.Type == gjson.Null {
		return nil, 0
	}
	if data.IsArray() {
		return decodeCandidateList(chain, data)
	}
	if !data.IsObject() {
		return nil, 1
	}
	for _, key := range []string{"items", "tokens"} {
		if inner := data.Get(key); inner.IsArray() {
			return decodeCandidateList(chain, inner)
		}
	}

	var (
		out       []token.Candidate
		malformed int
	)
	data.ForEach(func(key, value gjson.Result) bool {
		addr := strings.TrimSpace(key.String())
		if addr == "" || !value.IsObject() {
			malformed++
			return true
		}
		rec := decodeToken(chain, value)
		rec.Address = addr
		out = append(out, token.Candidate{Kind: token.KindComplete, Address: addr, Record: rec})
		return true
	})
	return out, malformed
}

func decodeCandidateList(chain string, list gjson.Result) ([]token.Candidate, int) {
	var (
		out       []token.Candidate
		malformed int
	)
	list.ForEach(func(_, item gjson.Result) bool {
		switch {
		case item.Type == gjson.String:
			addr := strings.TrimSpace(item.String())
			if addr == "" {
				malformed++
				return true
			}
			out = append(out, token.Candidate{Kind: token.KindAddress, Address: addr})
		case item.IsObject():
			addr := strings.TrimSpace(item.Get("address").String())
			if addr == "" || item.Get("address").Type != gjson.String {
				malformed++
				return true
			}
			out = append(out, token.Candidate{
				Kind:    token.KindPartial,
				Address: addr,
				Record:  decodeToken(chain, item),
			})
		default:
			malformed++
		}
		return true
	})
	return out, malformed
}
