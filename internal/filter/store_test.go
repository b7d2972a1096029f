package filter

import (
	"math"
	"sync"
	"testing"
	"time"

	"tokenscout/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SnapshotIsIsolated(t *testing.T) {
	s, err := NewStore(DefaultCriteria())
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.MinVolume[token.Period5m] = 42
	snap.Chains[0] = "mutated"

	fresh := s.Snapshot()
	assert.NotContains(t, fresh.MinVolume, token.Period5m)
	assert.Equal(t, []string{AllChains}, fresh.Chains)
}

func TestStore_UpdateValidates(t *testing.T) {
	s, err := NewStore(DefaultCriteria())
	require.NoError(t, err)

	_, err = s.Update(func(c *Criteria) error {
		c.MinMarketCap = 10
		c.MaxMarketCap = 5
		return nil
	})
	assert.Error(t, err)
	assert.Zero(t, s.Snapshot().MinMarketCap, "rejected update must not leak")

	got, err := s.Update(func(c *Criteria) error {
		c.MinLiquidity = 1000
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, got.MinLiquidity)
	assert.Equal(t, 1000.0, s.Snapshot().MinLiquidity)
}

func TestNewStore_RejectsInvalid(t *testing.T) {
	c := DefaultCriteria()
	c.MinVolume[token.Period("4h")] = 1
	_, err := NewStore(c)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestStore_ConcurrentReadersAndWriters(t *testing.T) {
	s, err := NewStore(DefaultCriteria())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(v float64) {
			defer wg.Done()
			_, _ = s.Update(func(c *Criteria) error {
				c.MinVolume[token.Period1h] = v
				c.MinLiquidity = v
				return nil
			})
		}(float64(i))
		go func() {
			defer wg.Done()
			snap := s.Snapshot()
			if v, ok := snap.MinVolume[token.Period1h]; ok {
				assert.Equal(t, v, snap.MinLiquidity, "snapshot must not be torn")
			}
		}()
	}
	wg.Wait()
}

func TestStore_ApplyPatch(t *testing.T) {
	s, err := NewStore(DefaultCriteria())
	require.NoError(t, err)

	got, err := s.ApplyPatch(map[string]any{
		"min_volume":             map[string]any{"5m": 100.0, "24H": "250"},
		"min_liquidity":          1000,
		"token_security":         "on",
		"scan_new_listings_only": true,
		"first_mint_date":        "2024-03-01",
		"chains":                 []any{"Solana", "base"},
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.MinVolume[token.Period5m])
	assert.Equal(t, 250.0, got.MinVolume[token.Period24h])
	assert.Equal(t, 1000.0, got.MinLiquidity)
	assert.True(t, got.TokenSecurity)
	assert.True(t, got.ScanNewListingsOnly)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got.FirstMintDate)
	assert.Equal(t, []string{"solana", "base"}, got.Chains)

	got, err = s.ApplyPatch(map[string]any{"min_volume": map[string]any{"5m": nil}})
	require.NoError(t, err)
	assert.NotContains(t, got.MinVolume, token.Period5m)
	assert.Contains(t, got.MinVolume, token.Period24h)
}

func TestApplyPatch_ZeroMaxMarketCapIsUnlimited(t *testing.T) {
	s, err := NewStore(DefaultCriteria())
	require.NoError(t, err)

	got, err := s.ApplyPatch(map[string]any{"max_market_cap": 5e6})
	require.NoError(t, err)
	assert.Equal(t, 5e6, got.MaxMarketCap)

	got, err = s.ApplyPatch(map[string]any{"max_market_cap": 0})
	require.NoError(t, err)
	assert.Equal(t, math.MaxFloat64, got.MaxMarketCap)

	_, err = s.ApplyPatch(map[string]any{"max_market_cap": -1})
	assert.Error(t, err)
}

func TestApplyPatch_Rejects(t *testing.T) {
	cases := map[string]map[string]any{
		"unknown key":    {"min_holders": 5},
		"bad number":     {"min_liquidity": "lots"},
		"bad period":     {"min_volume": map[string]any{"4h": 1}},
		"bad bool":       {"token_security": "maybe"},
		"bad date":       {"first_mint_date": "01/02/2024"},
		"bad map":        {"min_volume_usd": 5},
		"negative floor": {"min_liquidity": -1},
		"empty":          {},
	}
	for name, patch := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := NewStore(DefaultCriteria())
			require.NoError(t, err)
			before := s.Snapshot()
			_, err = s.ApplyPatch(patch)
			assert.Error(t, err)
			assert.Equal(t, before, s.Snapshot())
		})
	}
}

func TestCriteria_ResolveChains(t *testing.T) {
	configured := []string{"solana", "ethereum"}
	c := DefaultCriteria()
	assert.Equal(t, configured, c.ResolveChains(configured))

	c.Chains = []string{"base"}
	assert.Equal(t, []string{"base"}, c.ResolveChains(configured))

	c.Chains = nil
	assert.Equal(t, configured, c.ResolveChains(configured))
}

func TestParseMintDate(t *testing.T) {
	d, err := ParseMintDate("2024-01-01T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 12, d.Hour())

	d, err = ParseMintDate("")
	require.NoError(t, err)
	assert.Equal(t, int64(0), d.Unix())

	_, err = ParseMintDate("yesterday")
	assert.Error(t, err)
}
