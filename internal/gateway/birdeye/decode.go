package birdeye

import (
	"encoding/json"
	"strings"
	"time"

	"tokenscout/internal/token"

	"github.com/tidwall/gjson"
)

// firstNumber returns the first present numeric field among keys, or 0.
func firstNumber(r gjson.Result, keys ...string) (float64, bool) {
	for _, k := range keys {
		v := r.Get(k)
		switch v.Type {
		case gjson.Number:
			return v.Float(), true
		case gjson.String:
			if f := v.Float(); f != 0 || strings.TrimSpace(v.String()) == "0" {
				return f, true
			}
		}
	}
	return 0, false
}

func number(r gjson.Result, keys ...string) float64 {
	v, _ := firstNumber(r, keys...)
	return v
}

func firstString(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() && v.Type != gjson.Null {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

var mintLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseMintDate accepts ISO-8601 strings and unix seconds or milliseconds.
// Unparseable input yields the zero time, read by the filter as the epoch.
func parseMintDate(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.Number:
		n := v.Int()
		if n <= 0 {
			return time.Time{}
		}
		if n > 1e12 {
			return time.UnixMilli(n).UTC()
		}
		return time.Unix(n, 0).UTC()
	case gjson.String:
		s := strings.TrimSpace(v.String())
		for _, layout := range mintLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

// windowMap reads an object of window -> number, e.g. {"h24": 12.5}.
func windowMap(v gjson.Result) map[string]float64 {
	if !v.IsObject() {
		return nil
	}
	out := make(map[string]float64)
	v.ForEach(func(k, val gjson.Result) bool {
		if val.Type == gjson.Number || val.Type == gjson.String {
			out[k.String()] = val.Float()
		}
		return true
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

// decodeToken maps a token record; absent fields keep their zero value.
func decodeToken(chain string, r gjson.Result) token.Token {
	t := token.Token{
		Chain:            chain,
		Address:          firstString(r, "address"),
		Symbol:           firstString(r, "symbol"),
		Name:             firstString(r, "name"),
		MarketCap:        number(r, "marketCap", "mc", "market_cap"),
		TotalSupply:      number(r, "totalSupply", "supply", "total_supply"),
		Liquidity:        number(r, "liquidity"),
		CreatorOwnership: number(r, "creatorOwnership", "creator_ownership"),
		MintDate:         parseMintDate(r.Get("mintDate")),
		PriceChange:      windowMap(r.Get("priceChange")),
		Volume:           windowMap(r.Get("volume")),
		Raw:              json.RawMessage(r.Raw),
	}
	if t.MintDate.IsZero() {
		t.MintDate = parseMintDate(r.Get("mint_date"))
	}
	if t.Volume == nil {
		if v, ok := firstNumber(r, "v24hUSD", "volume24h"); ok {
			t.Volume = map[string]float64{"h24": v}
		}
	}
	if t.PriceChange == nil {
		if v, ok := firstNumber(r, "priceChange24hPercent", "price_change_24h"); ok {
			t.PriceChange = map[string]float64{"h24": v}
		}
	}
	return t
}

// decodeSummary maps an OHLCV payload. The provider returns either a bare candle array
// or an object with the candles under "items" or "candles" plus window aggregates. When
// the aggregate volume is absent the candle volumes are summed.
func decodeSummary(r gjson.Result) token.PeriodSummary {
	var (
		s     token.PeriodSummary
		items gjson.Result
	)
	switch {
	case r.IsArray():
		items = r
	case r.IsObject():
		items = r.Get("items")
		if !items.Exists() {
			items = r.Get("candles")
		}
	}
	var candleSum float64
	items.ForEach(func(_, it gjson.Result) bool {
		if !it.IsObject() {
			return true
		}
		c := token.Candle{
			UnixTime:           int64(number(it, "unixTime", "unix_time")),
			Close:              number(it, "close", "c"),
			Volume:             number(it, "volume", "v"),
			PriceChangePercent: number(it, "price_change_percent", "priceChangePercent"),
		}
		candleSum += c.Volume
		s.Candles = append(s.Candles, c)
		return true
	})
	if !r.IsObject() {
		s.Volume = candleSum
		return s
	}
	if v, ok := firstNumber(r, "volume"); ok {
		s.Volume = v
	} else {
		s.Volume = candleSum
	}
	s.VolumeUSD = number(r, "volume_usd", "volumeUSD")
	s.PriceChangePercent = number(r, "price_change_percent", "priceChangePercent")
	return s
}

// decodeSecurity applies the fail-closed defaults for absent fields.
func decodeSecurity(r gjson.Result) token.Security {
	sec := token.UnknownSecurity()
	if !r.IsObject() {
		return sec
	}
	if v, ok := firstNumber(r, "creator_ownership", "creatorOwnership"); ok {
		sec.CreatorOwnership = v
	}
	for _, k := range []string{"is_secure", "isSecure"} {
		if v := r.Get(k); v.Type == gjson.True || v.Type == gjson.False {
			sec.IsSecure = v.Bool()
			break
		}
	}
	return sec
}
