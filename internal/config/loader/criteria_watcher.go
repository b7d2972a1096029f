// Package loader 监听配置文件，把 filter 段热更新到运行中的阈值。
package loader

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"tokenscout/internal/config"
	"tokenscout/internal/filter"
	"tokenscout/internal/logger"
	"tokenscout/internal/token"
)

// CriteriaTarget receives reloaded criteria; *filter.Store satisfies it.
type CriteriaTarget interface {
	Replace(c filter.Criteria) error
}

// Observer counts accepted criteria changes.
type Observer interface {
	ObserveCriteriaUpdate(source string)
}

// CriteriaSnapshot describes the last successful reload.
type CriteriaSnapshot struct {
	Version  int64
	LoadedAt time.Time
	Criteria filter.Criteria
}

// CriteriaWatcher 监听配置文件变化，校验 filter 段后整体替换阈值。
// 文件中的阈值覆盖运行期通过 Telegram/admin 做的修改。
type CriteriaWatcher struct {
	path   string
	target CriteriaTarget
	obs    Observer
	v      *viper.Viper

	mu       sync.RWMutex
	snapshot CriteriaSnapshot
	lastHash string
}

// NewCriteriaWatcher reads path once and records the current filter section without
// pushing it; the caller seeds the store from the same config at startup.
func NewCriteriaWatcher(path string, target CriteriaTarget, obs Observer) (*CriteriaWatcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("criteria watcher requires path")
	}
	if target == nil {
		return nil, fmt.Errorf("criteria watcher requires a target")
	}
	w := &CriteriaWatcher{path: path, target: target, obs: obs}
	crit, err := w.load()
	if err != nil {
		return nil, err
	}
	w.snapshot = CriteriaSnapshot{Version: 1, LoadedAt: time.Now(), Criteria: crit}
	w.lastHash = fingerprint(crit)
	return w, nil
}

// Start begins watching the file for changes.
func (w *CriteriaWatcher) Start() error {
	v := viper.New()
	v.SetConfigFile(w.path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config failed: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		if _, err := w.Reload(); err != nil {
			logger.Errorf("criteria reload failed (%s): %v", evt.Name, err)
		}
	})
	v.WatchConfig()
	w.v = v
	logger.Infof("[config] 监听 %s 的 filter 段变更", filepath.Base(w.path))
	return nil
}

// Reload re-reads the config and replaces the target's criteria when the filter
// section changed. It reports whether anything was applied.
func (w *CriteriaWatcher) Reload() (bool, error) {
	crit, err := w.load()
	if err != nil {
		return false, err
	}
	hash := fingerprint(crit)
	w.mu.Lock()
	defer w.mu.Unlock()
	if hash == w.lastHash {
		return false, nil
	}
	if err := w.target.Replace(crit); err != nil {
		return false, fmt.Errorf("apply reloaded criteria: %w", err)
	}
	w.lastHash = hash
	w.snapshot = CriteriaSnapshot{
		Version:  w.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Criteria: crit.Clone(),
	}
	if w.obs != nil {
		w.obs.ObserveCriteriaUpdate("config")
	}
	logger.Infof("[config] filter 段已热更新 (v%d) from %s", w.snapshot.Version, filepath.Base(w.path))
	return true, nil
}

// Snapshot returns the last applied reload.
func (w *CriteriaWatcher) Snapshot() CriteriaSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	snap := w.snapshot
	snap.Criteria = snap.Criteria.Clone()
	return snap
}

func (w *CriteriaWatcher) load() (filter.Criteria, error) {
	cfg, err := config.Load(w.path)
	if err != nil {
		return filter.Criteria{}, err
	}
	return cfg.Filter.Criteria()
}

// fingerprint is order-independent; only a changed filter section is applied.
func fingerprint(c filter.Criteria) string {
	var sb strings.Builder
	writePeriods := func(name string, m map[string]float64) {
		sb.WriteString(name)
		for _, k := range sortedKeys(m) {
			fmt.Fprintf(&sb, "|%s=%g", k, m[k])
		}
		sb.WriteString(";")
	}
	writePeriods("vol", stringKeys(c.MinVolume))
	writePeriods("usd", stringKeys(c.MinVolumeUSD))
	writePeriods("chg", stringKeys(c.MinPriceChange))
	fmt.Fprintf(&sb, "%g|%g|%g|%g|%g|%g|%d|%t|%t|%s",
		c.MinLiquidity, c.MinMarketCap, c.MaxMarketCap, c.MaxCreatorOwnership,
		c.MinSupplyTraded, c.MaxSupply, c.FirstMintDate.Unix(),
		c.TokenSecurity, c.ScanNewListingsOnly, strings.Join(c.Chains, ","))
	return sb.String()
}

func stringKeys(m map[token.Period]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
