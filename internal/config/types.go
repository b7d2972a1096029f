package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"tokenscout/internal/filter"
	"tokenscout/internal/scheduler"
	"tokenscout/internal/token"
)

// Config 是 tokenscout 的主配置载体。
type Config struct {
	App     AppConfig     `toml:"app"`
	Birdeye BirdeyeConfig `toml:"birdeye"`
	Scan    ScanConfig    `toml:"scan"`
	Filter  FilterConfig  `toml:"filter"`
	Notify  NotifyConfig  `toml:"notify"`
	Store   StoreConfig   `toml:"store"`
	Metrics MetricsConfig `toml:"metrics"`
	Admin   AdminConfig   `toml:"admin"`
}

type AppConfig struct {
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogPath   string `toml:"log_path"`
}

// BirdeyeConfig 描述行情数据源的访问方式。
type BirdeyeConfig struct {
	APIKey             string  `toml:"api_key"`
	BaseURL            string  `toml:"base_url"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
	MaxRetries         int     `toml:"max_retries"`
	RetryBackoffMillis int     `toml:"retry_backoff_ms"`
	RateLimitPerSecond float64 `toml:"rate_limit_per_second"` // 0 关闭限速
	RateLimitBurst     int     `toml:"rate_limit_burst"`
	LookbackSeconds    int     `toml:"lookback_seconds"` // 首个增量窗口回看的时长
}

func (b BirdeyeConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

func (b BirdeyeConfig) RetryBackoff() time.Duration {
	return time.Duration(b.RetryBackoffMillis) * time.Millisecond
}

func (b BirdeyeConfig) Lookback() time.Duration {
	return time.Duration(b.LookbackSeconds) * time.Second
}

// ScanConfig 控制轮询周期与并发。
type ScanConfig struct {
	IntervalSeconds        int      `toml:"interval_seconds"`
	Chains                 []string `toml:"chains"` // "all" 展开后的链列表
	ChainWorkers           int      `toml:"chain_workers"`
	TokenWorkers           int      `toml:"token_workers"`
	ChainTimeoutSeconds    int      `toml:"chain_timeout_seconds"`
	BreakerThreshold       int      `toml:"breaker_threshold"`
	BreakerCooldownSeconds int      `toml:"breaker_cooldown_seconds"`
	ValidateAddresses      bool     `toml:"validate_addresses"`
	AlertCooldownMinutes   int      `toml:"alert_cooldown_minutes"` // 0 = 每轮都告警
}

func (s ScanConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

func (s ScanConfig) ChainTimeout() time.Duration {
	return time.Duration(s.ChainTimeoutSeconds) * time.Second
}

func (s ScanConfig) BreakerCooldown() time.Duration {
	return time.Duration(s.BreakerCooldownSeconds) * time.Second
}

func (s ScanConfig) AlertCooldown() time.Duration {
	return time.Duration(s.AlertCooldownMinutes) * time.Minute
}

// FilterConfig 是启动时的过滤阈值；运行期可被 Telegram/admin 修改。
type FilterConfig struct {
	MinVolume           map[string]float64 `toml:"min_volume"`
	MinVolumeUSD        map[string]float64 `toml:"min_volume_usd"`
	MinPriceChange      map[string]float64 `toml:"min_price_change"`
	MinLiquidity        float64            `toml:"min_liquidity"`
	MinMarketCap        float64            `toml:"min_market_cap"`
	MaxMarketCap        float64            `toml:"max_market_cap"` // 0 = 不限
	MaxCreatorOwnership float64            `toml:"max_creator_ownership"`
	MinSupplyTraded     float64            `toml:"min_supply_traded"`
	MaxSupply           float64            `toml:"max_supply"` // 0 = 不限
	FirstMintDate       string             `toml:"first_mint_date"`
	TokenSecurity       bool               `toml:"token_security"`
	ScanNewListingsOnly bool               `toml:"scan_new_listings_only"`
	Chains              []string           `toml:"chains"`
	Watch               bool               `toml:"watch"` // 配置文件变更时热更新阈值
}

// Criteria converts the section into filter thresholds.
func (f FilterConfig) Criteria() (filter.Criteria, error) {
	c := filter.DefaultCriteria()
	var err error
	if c.MinVolume, err = periodThresholds("filter.min_volume", f.MinVolume); err != nil {
		return c, err
	}
	if c.MinVolumeUSD, err = periodThresholds("filter.min_volume_usd", f.MinVolumeUSD); err != nil {
		return c, err
	}
	if c.MinPriceChange, err = periodThresholds("filter.min_price_change", f.MinPriceChange); err != nil {
		return c, err
	}
	c.MinLiquidity = f.MinLiquidity
	c.MinMarketCap = f.MinMarketCap
	if f.MaxMarketCap > 0 {
		c.MaxMarketCap = f.MaxMarketCap
	} else {
		c.MaxMarketCap = math.MaxFloat64
	}
	c.MaxCreatorOwnership = f.MaxCreatorOwnership
	c.MinSupplyTraded = f.MinSupplyTraded
	c.MaxSupply = f.MaxSupply
	if c.FirstMintDate, err = filter.ParseMintDate(f.FirstMintDate); err != nil {
		return c, fmtKeyErr("filter.first_mint_date", err)
	}
	c.TokenSecurity = f.TokenSecurity
	c.ScanNewListingsOnly = f.ScanNewListingsOnly
	if len(f.Chains) > 0 {
		c.Chains = append([]string(nil), f.Chains...)
	}
	if err := c.Validate(); err != nil {
		return c, fmtKeyErr("filter", err)
	}
	return c, nil
}

func periodThresholds(key string, in map[string]float64) (map[token.Period]float64, error) {
	out := make(map[token.Period]float64, len(in))
	for raw, v := range in {
		p, err := token.ParsePeriod(raw)
		if err != nil {
			return nil, fmtKeyErr(key, err)
		}
		out[p] = v
	}
	return out, nil
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	APIBase  string `toml:"api_base"`
	// ChatID 用于运行状态通知（启动/停止）。
	ChatID string `toml:"chat_id"`
	// AlertChatIDs 总是收到告警，另加 /subscribe 的会话。
	AlertChatIDs []int64 `toml:"alert_chat_ids"`
	// AllowedChatIDs 可以下发指令。
	AllowedChatIDs     []int64 `toml:"allowed_chat_ids"`
	Commands           bool    `toml:"commands"`
	PollTimeoutSeconds int     `toml:"poll_timeout_seconds"`
}

// StoreConfig 描述告警日志库。
type StoreConfig struct {
	Path      string `toml:"path"`
	Retention string `toml:"retention"` // 如 "30d"，空字符串表示不清理
}

// RetentionDuration parses Retention; zero means keep forever.
func (s StoreConfig) RetentionDuration() (time.Duration, error) {
	if strings.TrimSpace(s.Retention) == "" {
		return 0, nil
	}
	d, ok := scheduler.ParseIntervalDuration(s.Retention)
	if !ok || d <= 0 {
		return 0, fmt.Errorf("store.retention %q: use forms like 12h, 7d, 2w", s.Retention)
	}
	return d, nil
}

type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
}

// AdminConfig 控制运维 HTTP 接口。
type AdminConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
	Token   string `toml:"token"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
