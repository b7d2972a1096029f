package alert

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"tokenscout/internal/gateway/notifier"
	"tokenscout/internal/scanner"
	"tokenscout/internal/token"

	"github.com/shopspring/decimal"
)

// groupThousands inserts commas into the integer part of a plain decimal string.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + frac
}

// USD renders an amount with cents, or with significant digits below one dollar.
func USD(v float64) string {
	d := decimal.NewFromFloat(v)
	if d.Abs().LessThan(decimal.NewFromInt(1)) && !d.IsZero() {
		return "$" + d.Round(8).String()
	}
	return "$" + groupThousands(d.StringFixed(2))
}

// Percent renders a percentage with two decimals.
func Percent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2) + "%"
}

// Quantity renders a token amount without fractional noise.
func Quantity(v float64) string {
	return groupThousands(decimal.NewFromFloat(v).Round(0).String())
}

func volume24h(m scanner.Match) float64 {
	if v := m.Token.Volume24h(); v != 0 {
		return v
	}
	return m.Series.Get(token.Period24h).VolumeUSD
}

func priceChange24h(m scanner.Match) float64 {
	if v := m.Token.PriceChange24h(); v != 0 {
		return v
	}
	return m.Series.Get(token.Period24h).PriceChangePercent
}

// TokenURL links to the token page on the provider's site.
func TokenURL(chain, address string) string {
	return fmt.Sprintf("https://birdeye.so/token/%s?chain=%s", url.PathEscape(address), url.QueryEscape(chain))
}

// Format builds the alert for one match.
func Format(m scanner.Match, at time.Time) notifier.StructuredMessage {
	t := m.Token
	symbol := t.Symbol
	if symbol == "" {
		symbol = "?"
	}
	return notifier.StructuredMessage{
		Icon:  "🚀",
		Title: "New token match: " + symbol,
		Sections: []notifier.MessageSection{
			{Title: "Token", Lines: []string{
				"Symbol: " + symbol,
				"Chain: " + t.Chain,
				"Address: " + t.Address,
			}},
			{Title: "Market", Lines: []string{
				"Market Cap: " + USD(t.MarketCap),
				"24h Volume: " + USD(volume24h(m)),
				"24h Price Change: " + Percent(priceChange24h(m)),
				"Liquidity: " + USD(t.Liquidity),
				"Total Supply: " + Quantity(t.TotalSupply),
				"Creator Ownership: " + Percent(m.Security.CreatorOwnership),
			}},
		},
		Link:      TokenURL(t.Chain, t.Address),
		Timestamp: at,
	}
}
