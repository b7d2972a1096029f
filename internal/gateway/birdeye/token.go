package birdeye

import (
	"context"
	"fmt"
	"net/url"

	"tokenscout/internal/token"
)

func tokenPath(kind, chain, address string) string {
	return "/public/" + kind + "/" + url.PathEscape(chain) + "/" + url.PathEscape(address)
}

// FetchTokenDetail resolves the full record for address. Fields the provider omits
// are left at their zero value.
func (c *Client) FetchTokenDetail(ctx context.Context, chain, address string) (token.Token, error) {
	data, err := c.getData(ctx, "token", chain, tokenPath("token", chain, address), nil)
	if err != nil {
		return token.Token{}, fmt.Errorf("token %s/%s: %w", chain, address, err)
	}
	if !data.IsObject() {
		return token.Token{}, fmt.Errorf("token %s/%s: no record in response", chain, address)
	}
	t := decodeToken(chain, data)
	if t.Address == "" {
		t.Address = address
	}
	return t, nil
}

// FetchOHLCV returns the candle summary of one period.
func (c *Client) FetchOHLCV(ctx context.Context, chain, address string, period token.Period) (token.PeriodSummary, error) {
	if !period.Valid() {
		return token.PeriodSummary{}, fmt.Errorf("ohlcv %s/%s: unsupported period %q", chain, address, period)
	}
	query := url.Values{"interval": {period.String()}}
	data, err := c.getData(ctx, "ohlcv", chain, tokenPath("ohlcv", chain, address), query)
	if err != nil {
		return token.PeriodSummary{}, fmt.Errorf("ohlcv %s %s/%s: %w", period, chain, address, err)
	}
	return decodeSummary(data), nil
}

// FetchSecurity returns the security metadata. A response without data yields the
// fail-closed defaults rather than an error.
func (c *Client) FetchSecurity(ctx context.Context, chain, address string) (token.Security, error) {
	data, err := c.getData(ctx, "token_security", chain, tokenPath("token_security", chain, address), nil)
	if err != nil {
		return token.Security{}, fmt.Errorf("security %s/%s: %w", chain, address, err)
	}
	return decodeSecurity(data), nil
}
