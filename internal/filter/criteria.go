package filter

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"tokenscout/internal/token"
)

// AllChains in Criteria.Chains selects every configured chain.
const AllChains = "all"

var ErrInvalidPeriod = errors.New("invalid period")

// Criteria 是全部可在运行时修改的过滤阈值。
type Criteria struct {
	MinVolume           map[token.Period]float64 `json:"min_volume" yaml:"min_volume"`
	MinVolumeUSD        map[token.Period]float64 `json:"min_volume_usd" yaml:"min_volume_usd"`
	MinPriceChange      map[token.Period]float64 `json:"min_price_change" yaml:"min_price_change"`
	MinLiquidity        float64                  `json:"min_liquidity" yaml:"min_liquidity"`
	MinMarketCap        float64                  `json:"min_market_cap" yaml:"min_market_cap"`
	MaxMarketCap        float64                  `json:"max_market_cap" yaml:"max_market_cap"`
	MaxCreatorOwnership float64                  `json:"max_creator_ownership" yaml:"max_creator_ownership"`
	MinSupplyTraded     float64                  `json:"min_supply_traded" yaml:"min_supply_traded"`
	MaxSupply           float64                  `json:"max_supply" yaml:"max_supply"`
	FirstMintDate       time.Time                `json:"first_mint_date" yaml:"first_mint_date"`
	TokenSecurity       bool                     `json:"token_security" yaml:"token_security"`
	ScanNewListingsOnly bool                     `json:"scan_new_listings_only" yaml:"scan_new_listings_only"`
	Chains              []string                 `json:"chains" yaml:"chains"`
}

// DefaultCriteria returns the most permissive thresholds, so every check is evaluable
// before any user command arrives.
func DefaultCriteria() Criteria {
	return Criteria{
		MinVolume:           map[token.Period]float64{},
		MinVolumeUSD:        map[token.Period]float64{},
		MinPriceChange:      map[token.Period]float64{},
		MaxMarketCap:        math.MaxFloat64,
		MaxCreatorOwnership: 100,
		FirstMintDate:       time.Unix(0, 0).UTC(),
		Chains:              []string{AllChains},
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (c Criteria) Clone() Criteria {
	out := c
	out.MinVolume = clonePeriodMap(c.MinVolume)
	out.MinVolumeUSD = clonePeriodMap(c.MinVolumeUSD)
	out.MinPriceChange = clonePeriodMap(c.MinPriceChange)
	out.Chains = append([]string(nil), c.Chains...)
	return out
}

func clonePeriodMap(src map[token.Period]float64) map[token.Period]float64 {
	out := make(map[token.Period]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// normalize fills defaults and canonicalizes the chain selection.
func (c *Criteria) normalize() {
	c.fillDefaults()
	chains := make([]string, 0, len(c.Chains))
	for _, ch := range c.Chains {
		ch = strings.ToLower(strings.TrimSpace(ch))
		if ch != "" {
			chains = append(chains, ch)
		}
	}
	if len(chains) == 0 {
		chains = []string{AllChains}
	}
	c.Chains = chains
}

// fillDefaults fills nil maps and the zero mint date so evaluation never branches on absence.
func (c *Criteria) fillDefaults() {
	if c.MinVolume == nil {
		c.MinVolume = map[token.Period]float64{}
	}
	if c.MinVolumeUSD == nil {
		c.MinVolumeUSD = map[token.Period]float64{}
	}
	if c.MinPriceChange == nil {
		c.MinPriceChange = map[token.Period]float64{}
	}
	if c.FirstMintDate.IsZero() {
		c.FirstMintDate = time.Unix(0, 0).UTC()
	}
}

// Validate rejects thresholds that cannot be evaluated meaningfully.
func (c Criteria) Validate() error {
	for name, m := range map[string]map[token.Period]float64{
		"min_volume":       c.MinVolume,
		"min_volume_usd":   c.MinVolumeUSD,
		"min_price_change": c.MinPriceChange,
	} {
		for p, v := range m {
			if !p.Valid() {
				return fmt.Errorf("%s: %w %q", name, ErrInvalidPeriod, p)
			}
			if math.IsNaN(v) {
				return fmt.Errorf("%s.%s is NaN", name, p)
			}
			if name != "min_price_change" && v < 0 {
				return fmt.Errorf("%s.%s must be >= 0", name, p)
			}
		}
	}
	for name, v := range map[string]float64{
		"min_liquidity":         c.MinLiquidity,
		"min_market_cap":        c.MinMarketCap,
		"max_market_cap":        c.MaxMarketCap,
		"max_creator_ownership": c.MaxCreatorOwnership,
		"min_supply_traded":     c.MinSupplyTraded,
		"max_supply":            c.MaxSupply,
	} {
		if math.IsNaN(v) || v < 0 {
			return fmt.Errorf("%s must be a number >= 0", name)
		}
	}
	if c.MinMarketCap > c.MaxMarketCap {
		return fmt.Errorf("min_market_cap (%g) exceeds max_market_cap (%g)", c.MinMarketCap, c.MaxMarketCap)
	}
	return nil
}

// ResolveChains expands the "all" selection into the configured chain list.
func (c Criteria) ResolveChains(configured []string) []string {
	for _, ch := range c.Chains {
		if strings.EqualFold(ch, AllChains) {
			return append([]string(nil), configured...)
		}
	}
	if len(c.Chains) == 0 {
		return append([]string(nil), configured...)
	}
	return append([]string(nil), c.Chains...)
}

// ParseMintDate accepts YYYY-MM-DD or RFC3339.
func ParseMintDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Unix(0, 0).UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", raw)
	}
	return t.UTC(), nil
}
