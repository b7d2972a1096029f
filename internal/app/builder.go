package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"tokenscout/internal/bot"
	brcfg "tokenscout/internal/config"
	cfgloader "tokenscout/internal/config/loader"
	"tokenscout/internal/filter"
	"tokenscout/internal/gateway/notifier"
	"tokenscout/internal/logger"
	"tokenscout/internal/metrics"
	"tokenscout/internal/scanner"
	"tokenscout/internal/store"
	"tokenscout/internal/store/sqlite"
	adminhttp "tokenscout/internal/transport/http/admin"
)

// persistentStore is the store plus retention pruning.
type persistentStore interface {
	store.Store
	Pruner
}

type AppBuilder struct {
	cfg        *brcfg.Config
	configPath string

	storeFn  func(path string) (persistentStore, error)
	sourceFn func(brcfg.BirdeyeConfig, *metrics.Metrics) scanner.Source
	adminFn  func(adminhttp.ServerConfig) (*adminhttp.Server, error)

	telegramOverride *notifier.Telegram
}

type AppBuilderOption func(*AppBuilder)

// WithConfigPath enables filter hot reload from path.
func WithConfigPath(path string) AppBuilderOption {
	return func(b *AppBuilder) { b.configPath = path }
}

// WithSource replaces the data provider client, e.g. with a fake in tests.
func WithSource(src scanner.Source) AppBuilderOption {
	return func(b *AppBuilder) {
		b.sourceFn = func(brcfg.BirdeyeConfig, *metrics.Metrics) scanner.Source { return src }
	}
}

// WithStorePath overrides store.path, e.g. ":memory:".
func WithStorePath(path string) AppBuilderOption {
	return func(b *AppBuilder) {
		b.storeFn = func(string) (persistentStore, error) { return openStore(path) }
	}
}

// WithTelegram injects a preconfigured Telegram client.
func WithTelegram(tg *notifier.Telegram) AppBuilderOption {
	return func(b *AppBuilder) { b.telegramOverride = tg }
}

func NewAppBuilder(cfg *brcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:      cfg,
		storeFn:  openStore,
		sourceFn: buildBirdeyeClient,
		adminFn:  adminhttp.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func openStore(path string) (persistentStore, error) {
	st, err := sqlite.NewSqliteStore(path)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)
	logger.SetFormat(cfg.App.LogFormat)

	initial, err := cfg.Filter.Criteria()
	if err != nil {
		return nil, err
	}
	criteria, err := filter.NewStore(initial)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
		metricsHandler = m.Handler()
	}

	st, err := b.storeFn(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}
	retention, err := cfg.Store.RetentionDuration()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	src := b.sourceFn(cfg.Birdeye, m)
	sc := scanner.New(scanner.Config{
		ChainWorkers:     cfg.Scan.ChainWorkers,
		TokenWorkers:     cfg.Scan.TokenWorkers,
		ChainTimeout:     cfg.Scan.ChainTimeout(),
		BreakerThreshold: cfg.Scan.BreakerThreshold,
		BreakerCooldown:  cfg.Scan.BreakerCooldown(),
		ValidateAddress:  cfg.Scan.ValidateAddresses,
	}, src, criteria, scanner.WithObserver(m))

	tg := b.telegramOverride
	if tg == nil {
		tg = newTelegram(cfg.Notify)
	}
	dispatcher := buildDispatcher(cfg, tg, st, m)

	var tgBot *bot.Bot
	if tg != nil && cfg.Notify.Telegram.Commands {
		tgBot = bot.New(bot.Config{
			AllowedChatIDs: cfg.Notify.Telegram.AllowedChatIDs,
			PollTimeout:    cfg.Notify.Telegram.PollTimeoutSeconds,
		}, tg, tg, criteria, st.Subscribers(), m)
	}

	var admin *adminhttp.Server
	if cfg.Admin.Enabled {
		admin, err = b.adminFn(adminhttp.ServerConfig{
			Addr:     cfg.Admin.Addr,
			Token:    cfg.Admin.Token,
			Criteria: criteria,
			Alerts:   st.Alerts(),
			Cycles:   st.Cycles(),
			Scanner:  sc,
			Metrics:  metricsHandler,
			Observer: m,
		})
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("初始化 admin HTTP 失败: %w", err)
		}
	}

	var watcher *cfgloader.CriteriaWatcher
	if cfg.Filter.Watch && strings.TrimSpace(b.configPath) != "" {
		watcher, err = cfgloader.NewCriteriaWatcher(b.configPath, criteria, m)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	svc := NewScanService(ScanServiceConfig{
		Scanner:    sc,
		Criteria:   criteria,
		Dispatcher: dispatcher,
		Cycles:     st.Cycles(),
		Pruner:     st,
		Chains:     cfg.Scan.Chains,
		Interval:   cfg.Scan.Interval(),
		Retention:  retention,
	})

	return &App{
		cfg:      cfg,
		criteria: criteria,
		scanner:  sc,
		scan:     svc,
		bot:      tgBot,
		admin:    admin,
		watcher:  watcher,
		store:    st,
		tg:       tg,
		Summary:  buildSummary(cfg, criteria.Snapshot(), tg != nil, tgBot != nil, admin, watcher != nil),
	}, nil
}
