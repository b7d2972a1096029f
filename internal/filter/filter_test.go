package filter

import (
	"testing"
	"time"

	"tokenscout/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summary(volume, volumeUSD, change float64) token.PeriodSummary {
	return token.PeriodSummary{
		Candles: []token.Candle{
			{Volume: 100, PriceChangePercent: 0},
			{Volume: 50, PriceChangePercent: 0},
			{Volume: 30, PriceChangePercent: 5},
		},
		Volume:             volume,
		VolumeUSD:          volumeUSD,
		PriceChangePercent: change,
	}
}

// passingInput satisfies every check under DefaultCriteria.
func passingInput() Input {
	return Input{
		Token: token.Token{
			Chain:       "solana",
			Address:     "So11111111111111111111111111111111111111112",
			Symbol:      "TEST",
			Liquidity:   5000,
			MarketCap:   100000,
			TotalSupply: 1000,
			MintDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Series: token.Series{
			token.Period5m:  summary(10, 100, 1),
			token.Period10m: summary(20, 200, 2),
			token.Period1h:  summary(50, 500, 5),
			token.Period24h: summary(500, 5000, 10),
		},
		Security: token.Security{CreatorOwnership: 10, IsSecure: true},
	}
}

func TestEvaluate_AllChecksPass(t *testing.T) {
	f := New()
	d := f.Evaluate(passingInput(), DefaultCriteria())
	assert.True(t, d.Accepted)
	assert.Empty(t, d.Failed)
	assert.Empty(t, f.Explain(passingInput(), DefaultCriteria()))
}

func TestEvaluate_SingleViolationRejects(t *testing.T) {
	cases := []struct {
		check  string
		mutate func(*Input, *Criteria)
	}{
		{CheckValidVolume, func(_ *Input, c *Criteria) { c.MinVolume[token.Period5m] = 31 }},
		{CheckVolumeUSD, func(_ *Input, c *Criteria) { c.MinVolumeUSD[token.Period1h] = 501 }},
		{CheckLiquidity, func(_ *Input, c *Criteria) { c.MinLiquidity = 5001 }},
		{CheckMarketCap, func(_ *Input, c *Criteria) { c.MinMarketCap = 100001 }},
		{CheckMarketCap, func(_ *Input, c *Criteria) { c.MaxMarketCap = 99999 }},
		{CheckPriceChange, func(_ *Input, c *Criteria) { c.MinPriceChange[token.Period24h] = 10.5 }},
		{CheckCreatorOwnership, func(_ *Input, c *Criteria) { c.MaxCreatorOwnership = 9.99 }},
		{CheckSupplyTraded, func(_ *Input, c *Criteria) { c.MinSupplyTraded = 50.1 }},
		{CheckSupplyTraded, func(in *Input, _ *Criteria) { in.Token.TotalSupply = 0 }},
		{CheckTokenSecurity, func(in *Input, c *Criteria) {
			c.TokenSecurity = true
			in.Security.IsSecure = false
		}},
		{CheckMintDate, func(_ *Input, c *Criteria) { c.FirstMintDate = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) }},
		{CheckMaxSupply, func(_ *Input, c *Criteria) { c.MaxSupply = 999 }},
	}

	f := New()
	for _, tc := range cases {
		t.Run(tc.check, func(t *testing.T) {
			in := passingInput()
			c := DefaultCriteria()
			tc.mutate(&in, &c)

			d := f.Evaluate(in, c)
			assert.False(t, d.Accepted)
			assert.Equal(t, tc.check, d.Failed)
			assert.Equal(t, []string{tc.check}, f.Explain(in, c))
		})
	}
}

func TestEvaluate_BoundariesAreInclusive(t *testing.T) {
	f := New()
	in := passingInput()
	c := DefaultCriteria()
	c.MinVolume[token.Period5m] = 30
	c.MinVolumeUSD[token.Period1h] = 500
	c.MinLiquidity = 5000
	c.MinMarketCap = 100000
	c.MaxMarketCap = 100000
	c.MinPriceChange[token.Period24h] = 10
	c.MaxCreatorOwnership = 10
	c.MinSupplyTraded = 50
	c.FirstMintDate = in.Token.MintDate
	c.MaxSupply = 1000

	assert.True(t, f.Accept(in, c))
}

func TestEvaluate_ZeroSupplyAlwaysRejects(t *testing.T) {
	f := New()
	in := passingInput()
	in.Token.TotalSupply = 0
	in.Series[token.Period24h] = token.PeriodSummary{Volume: 1e12}

	c := DefaultCriteria()
	d := f.Evaluate(in, c)
	assert.False(t, d.Accepted)
	assert.Equal(t, CheckSupplyTraded, d.Failed)
}

func TestEvaluate_MissingOwnershipFailsClosed(t *testing.T) {
	f := New()
	in := passingInput()
	in.Security = token.UnknownSecurity()

	c := DefaultCriteria()
	assert.True(t, f.Accept(in, c), "max 100 tolerates the default")

	c.MaxCreatorOwnership = 99
	d := f.Evaluate(in, c)
	assert.Equal(t, CheckCreatorOwnership, d.Failed)
}

func TestEvaluate_MissingMintDateDefaultsToEpoch(t *testing.T) {
	f := New()
	in := passingInput()
	in.Token.MintDate = time.Time{}

	assert.True(t, f.Accept(in, DefaultCriteria()))

	c := DefaultCriteria()
	c.FirstMintDate = time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, CheckMintDate, f.Evaluate(in, c).Failed)
}

func TestEvaluate_MissingPeriodReadsAsZero(t *testing.T) {
	f := New()
	in := passingInput()
	delete(in.Series, token.Period10m)

	c := DefaultCriteria()
	c.MinVolumeUSD[token.Period10m] = 1
	assert.Equal(t, CheckVolumeUSD, f.Evaluate(in, c).Failed)

	var empty Criteria
	assert.NotPanics(t, func() { f.Evaluate(Input{}, empty) })
}

func TestEvaluate_EndToEndScenario(t *testing.T) {
	c := DefaultCriteria()
	c.MinLiquidity = 1000
	c.MinMarketCap = 0
	c.MaxMarketCap = 1e12
	c.TokenSecurity = false
	c.MaxCreatorOwnership = 50
	c.MinSupplyTraded = 0
	c.FirstMintDate = time.Unix(0, 0).UTC()

	mint, err := ParseMintDate("2024-01-01")
	require.NoError(t, err)
	in := Input{
		Token: token.Token{
			Liquidity:   5000,
			MarketCap:   100000,
			TotalSupply: 1000,
			MintDate:    mint,
		},
		Series:   token.Series{token.Period24h: {Volume: 0}},
		Security: token.Security{CreatorOwnership: 10},
	}

	assert.True(t, New().Accept(in, c))
}

func TestNew_CustomChecks(t *testing.T) {
	always := NewCheck("never", func(Input, Criteria) bool { return false })
	f := New(nil, always)
	assert.Equal(t, []string{"never"}, f.CheckNames())
	assert.Equal(t, "never", f.Evaluate(passingInput(), DefaultCriteria()).Failed)
	assert.Len(t, New().CheckNames(), 10)
}
