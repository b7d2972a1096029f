package config

import (
	"fmt"
	"net/url"
	"strings"

	"tokenscout/internal/logger"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Birdeye.validate(); err != nil {
		return err
	}
	if err := c.Scan.validate(); err != nil {
		return err
	}
	if _, err := c.Filter.Criteria(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if _, err := c.Store.RetentionDuration(); err != nil {
		return err
	}
	if c.Admin.Enabled && strings.TrimSpace(c.Admin.Addr) == "" {
		return fmt.Errorf("admin.addr cannot be empty when admin is enabled")
	}
	switch strings.ToLower(c.App.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json, got %q", c.App.LogFormat)
	}
	return nil
}

func (b *BirdeyeConfig) validate() error {
	if strings.TrimSpace(b.APIKey) == "" {
		return fmt.Errorf("birdeye.api_key is required (or set %s)", envBirdeyeAPIKey)
	}
	u, err := url.Parse(b.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("birdeye.base_url is not a valid url: %q", b.BaseURL)
	}
	if b.MaxRetries < 0 {
		return fmt.Errorf("birdeye.max_retries must be >= 0")
	}
	if b.RateLimitPerSecond < 0 {
		return fmt.Errorf("birdeye.rate_limit_per_second must be >= 0")
	}
	if b.TimeoutSeconds <= 0 {
		return fmt.Errorf("birdeye.timeout_seconds must be > 0")
	}
	return nil
}

func (s *ScanConfig) validate() error {
	if s.IntervalSeconds <= 0 {
		return fmt.Errorf("scan.interval_seconds must be > 0")
	}
	if s.ChainWorkers <= 0 || s.TokenWorkers <= 0 {
		return fmt.Errorf("scan.chain_workers and scan.token_workers must be > 0")
	}
	if s.AlertCooldownMinutes < 0 {
		return fmt.Errorf("scan.alert_cooldown_minutes must be >= 0")
	}
	for _, ch := range s.Chains {
		if ch == "all" {
			return fmt.Errorf("scan.chains lists concrete chains; \"all\" belongs in filter.chains")
		}
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	t := n.Telegram
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.BotToken) == "" {
		return fmt.Errorf("telegram notification enabled but missing bot_token (or set %s)", envTelegramBotToken)
	}
	if t.Commands && len(t.AllowedChatIDs) == 0 {
		return fmt.Errorf("notify.telegram.allowed_chat_ids is required when commands are enabled")
	}
	if len(t.AlertChatIDs) == 0 && !t.Commands {
		logger.Warnf("telegram enabled without alert_chat_ids or commands; alerts reach nobody")
	}
	return nil
}

func fmtKeyErr(key string, err error) error {
	return fmt.Errorf("%s: %w", key, err)
}
