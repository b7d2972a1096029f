package filter

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"tokenscout/internal/pkg/convert"
	"tokenscout/internal/token"
)

// Patch keys accepted by ApplyPatch. Period maps merge per key; a null value removes the period.
var patchKeys = map[string]func(*Criteria, any) error{
	"min_volume":             periodSetter(func(c *Criteria) map[token.Period]float64 { return c.MinVolume }),
	"min_volume_usd":         periodSetter(func(c *Criteria) map[token.Period]float64 { return c.MinVolumeUSD }),
	"min_price_change":       periodSetter(func(c *Criteria) map[token.Period]float64 { return c.MinPriceChange }),
	"min_liquidity":          floatSetter(func(c *Criteria) *float64 { return &c.MinLiquidity }),
	"min_market_cap":         floatSetter(func(c *Criteria) *float64 { return &c.MinMarketCap }),
	"max_market_cap":         setMaxMarketCap,
	"max_creator_ownership":  floatSetter(func(c *Criteria) *float64 { return &c.MaxCreatorOwnership }),
	"min_supply_traded":      floatSetter(func(c *Criteria) *float64 { return &c.MinSupplyTraded }),
	"max_supply":             floatSetter(func(c *Criteria) *float64 { return &c.MaxSupply }),
	"token_security":         boolSetter(func(c *Criteria) *bool { return &c.TokenSecurity }),
	"scan_new_listings_only": boolSetter(func(c *Criteria) *bool { return &c.ScanNewListingsOnly }),
	"first_mint_date":        setFirstMintDate,
	"chains":                 setChains,
}

// PatchKeys lists the accepted keys in sorted order.
func PatchKeys() []string {
	keys := make([]string, 0, len(patchKeys))
	for k := range patchKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ApplyPatch merges patch into c. Unknown keys and malformed values are rejected
// before anything is written.
func ApplyPatch(c *Criteria, patch map[string]any) error {
	if c == nil {
		return fmt.Errorf("nil criteria")
	}
	if len(patch) == 0 {
		return fmt.Errorf("empty patch")
	}
	c.fillDefaults()
	next := c.Clone()
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		set, ok := patchKeys[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			return fmt.Errorf("unknown criteria key %q", k)
		}
		if err := set(&next, patch[k]); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
	}
	*c = next
	return nil
}

func floatSetter(field func(*Criteria) *float64) func(*Criteria, any) error {
	return func(c *Criteria, raw any) error {
		v, ok := convert.Float64(raw)
		if !ok {
			return fmt.Errorf("expected a number, got %v", raw)
		}
		*field(c) = v
		return nil
	}
}

// setMaxMarketCap treats 0 as unlimited, the same as the config file.
func setMaxMarketCap(c *Criteria, raw any) error {
	if err := floatSetter(func(c *Criteria) *float64 { return &c.MaxMarketCap })(c, raw); err != nil {
		return err
	}
	if c.MaxMarketCap == 0 {
		c.MaxMarketCap = math.MaxFloat64
	}
	return nil
}

func boolSetter(field func(*Criteria) *bool) func(*Criteria, any) error {
	return func(c *Criteria, raw any) error {
		v, ok := convert.Bool(raw)
		if !ok {
			return fmt.Errorf("expected on/off, got %v", raw)
		}
		*field(c) = v
		return nil
	}
}

func periodSetter(field func(*Criteria) map[token.Period]float64) func(*Criteria, any) error {
	return func(c *Criteria, raw any) error {
		entries, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("expected an object of period -> number")
		}
		dst := field(c)
		for key, val := range entries {
			p, err := token.ParsePeriod(key)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
			}
			if val == nil {
				delete(dst, p)
				continue
			}
			v, ok := convert.Float64(val)
			if !ok {
				return fmt.Errorf("%s: expected a number, got %v", p, val)
			}
			dst[p] = v
		}
		return nil
	}
}

func setFirstMintDate(c *Criteria, raw any) error {
	s, ok := raw.(string)
	if !ok {
		return fmt.Errorf("expected a date string")
	}
	t, err := ParseMintDate(s)
	if err != nil {
		return err
	}
	c.FirstMintDate = t
	return nil
}

func setChains(c *Criteria, raw any) error {
	chains, ok := convert.Strings(raw)
	if !ok {
		return fmt.Errorf("expected a list of chain names")
	}
	c.Chains = chains
	return nil
}
