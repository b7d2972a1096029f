package config

import (
	"os"
	"strings"
)

// 默认值常量
const (
	defaultAppEnv              = "dev"
	defaultAppLogLevel         = "info"
	defaultAppLogFormat        = "text"
	defaultAppLogPath          = "data/logs/tokenscout.log"
	defaultBirdeyeBaseURL      = "https://public-api.birdeye.so"
	defaultBirdeyeTimeout      = 15
	defaultBirdeyeRetries      = 3
	defaultBirdeyeBackoffMs    = 500
	defaultBirdeyeRatePerSec   = 10
	defaultBirdeyeLookback     = 300
	defaultScanInterval        = 60
	defaultScanChainWorkers    = 4
	defaultScanTokenWorkers    = 8
	defaultScanChainTimeout    = 120
	defaultBreakerThreshold    = 3
	defaultBreakerCooldown     = 300
	defaultMaxCreatorOwnership = 100
	defaultTelegramPollTimeout = 30
	defaultStorePath           = "data/tokenscout.db"
	defaultStoreRetention      = "30d"
	defaultMetricsNamespace    = "tokenscout"
	defaultAdminAddr           = ":9991"

	envBirdeyeAPIKey    = "BIRDEYE_API_KEY"
	envTelegramBotToken = "TELEGRAM_BOT_TOKEN"
)

var defaultScanChains = []string{"solana"}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Birdeye.applyDefaults(keys)
	c.Scan.applyDefaults(keys)
	c.Filter.applyDefaults(keys)
	c.Notify.Telegram.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Metrics.applyDefaults(keys)
	c.Admin.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (b *BirdeyeConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	if strings.TrimSpace(b.APIKey) == "" {
		b.APIKey = strings.TrimSpace(os.Getenv(envBirdeyeAPIKey))
	}
	applyFieldDefaults(keys,
		stringFieldDefault("birdeye.base_url", &b.BaseURL, defaultBirdeyeBaseURL),
		intFieldDefault("birdeye.timeout_seconds", &b.TimeoutSeconds, defaultBirdeyeTimeout),
		intFieldDefault("birdeye.max_retries", &b.MaxRetries, defaultBirdeyeRetries),
		intFieldDefault("birdeye.retry_backoff_ms", &b.RetryBackoffMillis, defaultBirdeyeBackoffMs),
		intFieldDefault("birdeye.lookback_seconds", &b.LookbackSeconds, defaultBirdeyeLookback),
		fieldDefault{
			key:   "birdeye.rate_limit_per_second",
			need:  func() bool { return b.RateLimitPerSecond <= 0 },
			apply: func() { b.RateLimitPerSecond = defaultBirdeyeRatePerSec },
		},
	)
	if b.RateLimitBurst <= 0 {
		b.RateLimitBurst = int(b.RateLimitPerSecond)
		if b.RateLimitBurst < 1 {
			b.RateLimitBurst = 1
		}
	}
}

func (s *ScanConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("scan.interval_seconds", &s.IntervalSeconds, defaultScanInterval),
		intFieldDefault("scan.chain_workers", &s.ChainWorkers, defaultScanChainWorkers),
		intFieldDefault("scan.token_workers", &s.TokenWorkers, defaultScanTokenWorkers),
		intFieldDefault("scan.chain_timeout_seconds", &s.ChainTimeoutSeconds, defaultScanChainTimeout),
		intFieldDefault("scan.breaker_threshold", &s.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("scan.breaker_cooldown_seconds", &s.BreakerCooldownSeconds, defaultBreakerCooldown),
		boolFieldDefault("scan.validate_addresses", &s.ValidateAddresses, true),
	)
	s.Chains = normalizeList(s.Chains)
	if len(s.Chains) == 0 {
		s.Chains = append([]string(nil), defaultScanChains...)
	}
}

func (f *FilterConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "filter.max_creator_ownership",
			need:  func() bool { return f.MaxCreatorOwnership <= 0 },
			apply: func() { f.MaxCreatorOwnership = defaultMaxCreatorOwnership },
		},
	)
	f.Chains = normalizeList(f.Chains)
}

func (t *TelegramConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	if strings.TrimSpace(t.BotToken) == "" {
		t.BotToken = strings.TrimSpace(os.Getenv(envTelegramBotToken))
	}
	applyFieldDefaults(keys,
		intFieldDefault("notify.telegram.poll_timeout_seconds", &t.PollTimeoutSeconds, defaultTelegramPollTimeout),
		boolFieldDefault("notify.telegram.commands", &t.Commands, true),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
		stringFieldDefault("store.retention", &s.Retention, defaultStoreRetention),
	)
}

func (m *MetricsConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("metrics.enabled", &m.Enabled, true),
		stringFieldDefault("metrics.namespace", &m.Namespace, defaultMetricsNamespace),
	)
}

func (a *AdminConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("admin.enabled", &a.Enabled, true),
		stringFieldDefault("admin.addr", &a.Addr, defaultAdminAddr),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, item := range in {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
