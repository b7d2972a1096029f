package filter

import (
	"tokenscout/internal/token"
)

// Check names, as reported in Decision.Failed.
const (
	CheckValidVolume      = "valid_volume"
	CheckVolumeUSD        = "volume_usd"
	CheckLiquidity        = "liquidity"
	CheckMarketCap        = "market_cap"
	CheckPriceChange      = "price_change"
	CheckCreatorOwnership = "creator_ownership"
	CheckSupplyTraded     = "supply_traded"
	CheckTokenSecurity    = "token_security"
	CheckMintDate         = "mint_date"
	CheckMaxSupply        = "max_supply"
)

// Input bundles one enriched token.
type Input struct {
	Token    token.Token
	Series   token.Series
	Security token.Security
}

// Check is one independent accept/reject rule.
type Check interface {
	Name() string
	Pass(in Input, c Criteria) bool
}

type checkFunc struct {
	name string
	fn   func(Input, Criteria) bool
}

func (f checkFunc) Name() string                   { return f.name }
func (f checkFunc) Pass(in Input, c Criteria) bool { return f.fn(in, c) }

// NewCheck adapts a function into a Check.
func NewCheck(name string, fn func(Input, Criteria) bool) Check {
	return checkFunc{name: name, fn: fn}
}

// DefaultChecks returns the full rule set in evaluation order.
func DefaultChecks() []Check {
	return []Check{
		NewCheck(CheckValidVolume, passValidVolume),
		NewCheck(CheckVolumeUSD, passVolumeUSD),
		NewCheck(CheckLiquidity, passLiquidity),
		NewCheck(CheckMarketCap, passMarketCap),
		NewCheck(CheckPriceChange, passPriceChange),
		NewCheck(CheckCreatorOwnership, passCreatorOwnership),
		NewCheck(CheckSupplyTraded, passSupplyTraded),
		NewCheck(CheckTokenSecurity, passTokenSecurity),
		NewCheck(CheckMintDate, passMintDate),
		NewCheck(CheckMaxSupply, passMaxSupply),
	}
}

func passValidVolume(in Input, c Criteria) bool {
	for p, min := range c.MinVolume {
		if in.Series.Get(p).ValidVolume() < min {
			return false
		}
	}
	return true
}

func passVolumeUSD(in Input, c Criteria) bool {
	for p, min := range c.MinVolumeUSD {
		if in.Series.Get(p).VolumeUSD < min {
			return false
		}
	}
	return true
}

func passLiquidity(in Input, c Criteria) bool {
	return in.Token.Liquidity >= c.MinLiquidity
}

func passMarketCap(in Input, c Criteria) bool {
	mc := in.Token.MarketCap
	return c.MinMarketCap <= mc && mc <= c.MaxMarketCap
}

func passPriceChange(in Input, c Criteria) bool {
	for p, min := range c.MinPriceChange {
		if in.Series.Get(p).PriceChangePercent < min {
			return false
		}
	}
	return true
}

func passCreatorOwnership(in Input, c Criteria) bool {
	return in.Security.CreatorOwnership <= c.MaxCreatorOwnership
}

// passSupplyTraded fails closed on a zero supply since no ratio exists.
func passSupplyTraded(in Input, c Criteria) bool {
	supply := in.Token.TotalSupply
	if supply == 0 {
		return false
	}
	traded := in.Series.Get(token.Period24h).Volume / supply * 100
	return traded >= c.MinSupplyTraded
}

func passTokenSecurity(in Input, c Criteria) bool {
	return !c.TokenSecurity || in.Security.IsSecure
}

func passMintDate(in Input, c Criteria) bool {
	return !in.Token.MintDateOrEpoch().Before(c.FirstMintDate)
}

// passMaxSupply treats a zero limit as unlimited.
func passMaxSupply(in Input, c Criteria) bool {
	return c.MaxSupply <= 0 || in.Token.TotalSupply <= c.MaxSupply
}
