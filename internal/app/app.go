package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tokenscout/internal/bot"
	brcfg "tokenscout/internal/config"
	cfgloader "tokenscout/internal/config/loader"
	"tokenscout/internal/filter"
	"tokenscout/internal/gateway/notifier"
	"tokenscout/internal/logger"
	"tokenscout/internal/scanner"
	adminhttp "tokenscout/internal/transport/http/admin"
)

// App 负责应用级编排：加载配置→初始化依赖→启动轮询、机器人与 admin 接口。
type App struct {
	cfg      *brcfg.Config
	criteria *filter.Store
	scanner  *scanner.Scanner
	scan     *ScanService
	bot      *bot.Bot
	admin    *adminhttp.Server
	watcher  *cfgloader.CriteriaWatcher
	store    persistentStore
	tg       *notifier.Telegram
	Summary  *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *brcfg.Config, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg, opts)
}

// Run 启动所有服务，直到 ctx 取消或某个服务失败。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.scan == nil {
		return fmt.Errorf("scan service not initialized")
	}
	defer a.Close()

	if a.Summary != nil {
		a.Summary.Print()
	}
	if a.watcher != nil {
		if err := a.watcher.Start(); err != nil {
			return fmt.Errorf("criteria watcher: %w", err)
		}
	}
	a.notifyStatus("tokenscout 已启动 ✅")
	defer a.notifyStatus("tokenscout 已停止 ⏹")

	group, ctx := errgroup.WithContext(ctx)
	if a.admin != nil {
		group.Go(func() error {
			if err := a.admin.Start(ctx); err != nil {
				return fmt.Errorf("admin http server error: %w", err)
			}
			return nil
		})
	}
	if a.bot != nil {
		group.Go(func() error {
			return a.bot.Run(ctx)
		})
	}
	group.Go(func() error {
		return a.scan.Run(ctx)
	})
	return group.Wait()
}

// Close releases the store.
func (a *App) Close() {
	if a == nil || a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		logger.Warnf("close store: %v", err)
	}
	a.store = nil
}

// Criteria exposes the live thresholds.
func (a *App) Criteria() *filter.Store {
	if a == nil {
		return nil
	}
	return a.criteria
}

// Scanner exposes the scanner for status queries.
func (a *App) Scanner() *scanner.Scanner {
	if a == nil {
		return nil
	}
	return a.scanner
}

// ScanService exposes the poll loop (for tests and one-shot runs).
func (a *App) ScanService() *ScanService {
	if a == nil {
		return nil
	}
	return a.scan
}

func (a *App) notifyStatus(text string) {
	if a.tg == nil || a.cfg.Notify.Telegram.ChatID == "" {
		return
	}
	if err := a.tg.SendText(text); err != nil {
		logger.Warnf("telegram status notify: %v", err)
	}
}
