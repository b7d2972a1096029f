package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenscout/internal/filter"
	"tokenscout/internal/token"
)

type countingObserver struct{ n int }

func (o *countingObserver) ObserveCriteriaUpdate(source string) {
	if source == "config" {
		o.n++
	}
}

func writeConfig(t *testing.T, path, filterBody string) {
	t.Helper()
	body := "birdeye:\n  api_key: k\nfilter:\n" + filterBody
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestCriteriaWatcherReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "  min_liquidity: 1000\n")

	st, err := filter.NewStore(filter.DefaultCriteria())
	require.NoError(t, err)
	obs := &countingObserver{}
	w, err := NewCriteriaWatcher(path, st, obs)
	require.NoError(t, err)
	assert.Equal(t, int64(1), w.Snapshot().Version)
	assert.Equal(t, 1000.0, w.Snapshot().Criteria.MinLiquidity)

	// untouched filter section: runtime edits survive
	_, err = st.ApplyPatch(map[string]any{"min_market_cap": 50.0})
	require.NoError(t, err)
	applied, err := w.Reload()
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 50.0, st.Snapshot().MinMarketCap)

	writeConfig(t, path, "  min_liquidity: 2500\n  min_volume:\n    10m: 300\n  token_security: true\n")
	applied, err = w.Reload()
	require.NoError(t, err)
	assert.True(t, applied)

	c := st.Snapshot()
	assert.Equal(t, 2500.0, c.MinLiquidity)
	assert.Equal(t, 300.0, c.MinVolume[token.Period10m])
	assert.True(t, c.TokenSecurity)
	assert.Zero(t, c.MinMarketCap, "file replaces runtime edits")
	assert.Equal(t, int64(2), w.Snapshot().Version)
	assert.Equal(t, 1, obs.n)
}

func TestCriteriaWatcherRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "  min_liquidity: 1000\n")
	st, err := filter.NewStore(filter.DefaultCriteria())
	require.NoError(t, err)
	require.NoError(t, st.Replace(filter.Criteria{MinLiquidity: 1000}))

	w, err := NewCriteriaWatcher(path, st, nil)
	require.NoError(t, err)

	writeConfig(t, path, "  min_volume:\n    3m: 10\n")
	applied, err := w.Reload()
	assert.Error(t, err)
	assert.False(t, applied)
	assert.Equal(t, 1000.0, st.Snapshot().MinLiquidity)
	assert.Equal(t, int64(1), w.Snapshot().Version)
}

func TestNewCriteriaWatcherArgs(t *testing.T) {
	st, err := filter.NewStore(filter.DefaultCriteria())
	require.NoError(t, err)
	_, err = NewCriteriaWatcher("", st, nil)
	assert.Error(t, err)
	_, err = NewCriteriaWatcher("config.yaml", nil, nil)
	assert.Error(t, err)
	_, err = NewCriteriaWatcher(filepath.Join(t.TempDir(), "missing.yaml"), st, nil)
	assert.Error(t, err)
}
