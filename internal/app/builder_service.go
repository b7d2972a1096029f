package app

import (
	"strings"

	"tokenscout/internal/alert"
	brcfg "tokenscout/internal/config"
	"tokenscout/internal/gateway/birdeye"
	"tokenscout/internal/gateway/notifier"
	"tokenscout/internal/logger"
	"tokenscout/internal/metrics"
	"tokenscout/internal/scanner"
)

func buildBirdeyeClient(cfg brcfg.BirdeyeConfig, m *metrics.Metrics) scanner.Source {
	opts := []birdeye.Option{
		birdeye.WithBaseURL(cfg.BaseURL),
		birdeye.WithTimeout(cfg.Timeout()),
		birdeye.WithRetries(cfg.MaxRetries, cfg.RetryBackoff()),
		birdeye.WithLookback(cfg.Lookback()),
	}
	if cfg.RateLimitPerSecond > 0 {
		opts = append(opts, birdeye.WithRateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}
	if m != nil {
		opts = append(opts, birdeye.WithRequestHook(m.ObserveRequest))
	}
	logger.Infof("✓ Birdeye 数据源 %s (rate=%.1f/s, retries=%d)", cfg.BaseURL, cfg.RateLimitPerSecond, cfg.MaxRetries)
	return birdeye.New(cfg.APIKey, opts...)
}

func buildDispatcher(cfg *brcfg.Config, tg *notifier.Telegram, st persistentStore, m *metrics.Metrics) *alert.Dispatcher {
	acfg := alert.Config{Cooldown: cfg.Scan.AlertCooldown()}
	if tg == nil {
		// no transport: matches are only written to the alert log
		return alert.NewDispatcher(acfg, nil, nil, st.Alerts(), m)
	}
	acfg.ChatIDs = cfg.Notify.Telegram.AlertChatIDs
	acfg.AllowedChatIDs = cfg.Notify.Telegram.AllowedChatIDs
	return alert.NewDispatcher(acfg, tg, st.Subscribers(), st.Alerts(), m)
}

func newTelegram(cfg brcfg.NotifyConfig) *notifier.Telegram {
	if !cfg.Telegram.Enabled {
		return nil
	}
	tg := notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if base := strings.TrimSpace(cfg.Telegram.APIBase); base != "" {
		tg.BaseURL = base
	}
	return tg
}
