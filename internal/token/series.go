package token

import (
	"fmt"
	"strings"
)

// Period is one of the fixed OHLCV windows fetched per token.
type Period string

const (
	Period5m  Period = "5m"
	Period10m Period = "10m"
	Period1h  Period = "1h"
	Period24h Period = "24h"
)

// Periods lists every window in fetch order.
var Periods = []Period{Period5m, Period10m, Period1h, Period24h}

// ParsePeriod accepts "5m", "10m", "1h" and "24h" (case-insensitive).
func ParsePeriod(raw string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(raw)))
	if p.Valid() {
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q (want one of 5m, 10m, 1h, 24h)", raw)
}

// Valid reports whether p is a supported window.
func (p Period) Valid() bool {
	for _, known := range Periods {
		if p == known {
			return true
		}
	}
	return false
}

func (p Period) String() string { return string(p) }

// Candle 是单根 K 线中过滤器关心的字段。
type Candle struct {
	UnixTime           int64   `json:"unix_time,omitempty"`
	Close              float64 `json:"close,omitempty"`
	Volume             float64 `json:"volume"`
	PriceChangePercent float64 `json:"price_change_percent"`
}

// PeriodSummary aggregates one window of candles.
type PeriodSummary struct {
	Candles            []Candle `json:"candles"`
	Volume             float64  `json:"volume"`
	VolumeUSD          float64  `json:"volume_usd"`
	PriceChangePercent float64  `json:"price_change_percent"`
}

// ValidVolume sums candle volume, skipping the first candle of the series and any candle
// whose price did not move (zero price change marks a non-trading artifact).
func (s PeriodSummary) ValidVolume() float64 {
	var total float64
	for i, c := range s.Candles {
		if i == 0 || c.PriceChangePercent == 0 {
			continue
		}
		total += c.Volume
	}
	return total
}

// Series maps each period to its summary. Built fresh per token per cycle.
type Series map[Period]PeriodSummary

// Get returns the summary for p, or the zero summary when it was not fetched.
func (s Series) Get(p Period) PeriodSummary {
	if s == nil {
		return PeriodSummary{}
	}
	return s[p]
}
