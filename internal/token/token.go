// Package token holds the records the scanner moves through a cycle.
package token

import (
	"encoding/json"
	"time"
)

// Token 是单个链上代币的快照，由数据源产出，扫描与过滤只读。
type Token struct {
	Chain            string             `json:"chain"`
	Address          string             `json:"address"`
	Symbol           string             `json:"symbol"`
	Name             string             `json:"name,omitempty"`
	MarketCap        float64            `json:"marketCap"`
	TotalSupply      float64            `json:"totalSupply"`
	Liquidity        float64            `json:"liquidity"`
	CreatorOwnership float64            `json:"creatorOwnership"`
	MintDate         time.Time          `json:"mintDate"`
	PriceChange      map[string]float64 `json:"priceChange,omitempty"`
	Volume           map[string]float64 `json:"volume,omitempty"`

	// Raw is the provider payload the record was decoded from.
	Raw json.RawMessage `json:"-"`
}

// Key identifies the token across chains.
func (t Token) Key() string {
	return t.Chain + ":" + t.Address
}

// MintDateOrEpoch returns the mint date, or the unix epoch when the provider did not report one.
func (t Token) MintDateOrEpoch() time.Time {
	if t.MintDate.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return t.MintDate
}

// Volume24h returns the 24h volume reported on the token record itself.
func (t Token) Volume24h() float64 {
	if t.Volume == nil {
		return 0
	}
	return t.Volume["h24"]
}

// PriceChange24h returns the 24h price change reported on the token record itself.
func (t Token) PriceChange24h() float64 {
	if t.PriceChange == nil {
		return 0
	}
	return t.PriceChange["h24"]
}

// Security 是代币安全检查结果。
type Security struct {
	CreatorOwnership float64 `json:"creator_ownership"`
	IsSecure         bool    `json:"is_secure"`
}

// DefaultCreatorOwnership is assumed when the provider omits ownership, so the check fails closed.
const DefaultCreatorOwnership = 100.0

// UnknownSecurity is the record used when the provider returned nothing usable.
func UnknownSecurity() Security {
	return Security{CreatorOwnership: DefaultCreatorOwnership}
}
