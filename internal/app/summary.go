package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	brcfg "tokenscout/internal/config"
	"tokenscout/internal/filter"
	"tokenscout/internal/token"
	adminhttp "tokenscout/internal/transport/http/admin"
)

// StartupSummary 是启动时打印的配置快照。
type StartupSummary struct {
	Source   SourceSummary
	Scan     ScanSummary
	Criteria filter.Criteria
	Outputs  OutputSummary
}

type SourceSummary struct {
	BaseURL   string
	RateLimit float64
	Retries   int
	Lookback  time.Duration
}

type ScanSummary struct {
	Chains       []string
	Interval     time.Duration
	ChainWorkers int
	TokenWorkers int
	Retention    string
}

type OutputSummary struct {
	Telegram bool
	Commands bool
	Admin    string
	Watch    bool
	Store    string
}

func buildSummary(cfg *brcfg.Config, crit filter.Criteria, telegram, commands bool, admin *adminhttp.Server, watch bool) *StartupSummary {
	s := &StartupSummary{
		Source: SourceSummary{
			BaseURL:   cfg.Birdeye.BaseURL,
			RateLimit: cfg.Birdeye.RateLimitPerSecond,
			Retries:   cfg.Birdeye.MaxRetries,
			Lookback:  cfg.Birdeye.Lookback(),
		},
		Scan: ScanSummary{
			Chains:       cfg.Scan.Chains,
			Interval:     cfg.Scan.Interval(),
			ChainWorkers: cfg.Scan.ChainWorkers,
			TokenWorkers: cfg.Scan.TokenWorkers,
			Retention:    cfg.Store.Retention,
		},
		Criteria: crit,
		Outputs: OutputSummary{
			Telegram: telegram,
			Commands: commands,
			Watch:    watch,
			Store:    cfg.Store.Path,
		},
	}
	if admin != nil {
		s.Outputs.Admin = admin.Addr()
	}
	return s
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[数据源 (DATA SOURCE)]")
	fmt.Printf("  地址: %s\n", s.Source.BaseURL)
	fmt.Printf("  限速: %.1f/s  重试: %d\n", s.Source.RateLimit, s.Source.Retries)
	fmt.Printf("  回看窗口: %s\n", s.Source.Lookback)
	fmt.Println()

	fmt.Println("[扫描 (SCAN)]")
	fmt.Printf("  链: %s\n", formatList(s.Scan.Chains))
	fmt.Printf("  周期: %s\n", s.Scan.Interval)
	fmt.Printf("  并发: chains=%d tokens=%d\n", s.Scan.ChainWorkers, s.Scan.TokenWorkers)
	fmt.Println()

	c := s.Criteria
	fmt.Println("[过滤条件 (CRITERIA)]")
	fmt.Printf("  链选择: %s\n", formatList(c.Chains))
	fmt.Printf("  仅新上线: %s\n", onOff(c.ScanNewListingsOnly))
	fmt.Printf("  最小成交量: %s\n", formatPeriods(c.MinVolume))
	fmt.Printf("  最小成交额(USD): %s\n", formatPeriods(c.MinVolumeUSD))
	fmt.Printf("  最小涨幅(%%): %s\n", formatPeriods(c.MinPriceChange))
	fmt.Printf("  最小流动性: %s\n", formatFloat(c.MinLiquidity))
	fmt.Printf("  市值区间: %s ~ %s\n", formatFloat(c.MinMarketCap), formatLimit(c.MaxMarketCap, c.MaxMarketCap >= math.MaxFloat64))
	fmt.Printf("  最大供应量: %s\n", formatLimit(c.MaxSupply, c.MaxSupply <= 0))
	fmt.Printf("  创建者持仓上限: %s%%\n", formatFloat(c.MaxCreatorOwnership))
	fmt.Printf("  最小换手: %s%%\n", formatFloat(c.MinSupplyTraded))
	fmt.Printf("  安全检查: %s\n", onOff(c.TokenSecurity))
	fmt.Printf("  首次铸造不早于: %s\n", c.FirstMintDate.UTC().Format("2006-01-02"))
	fmt.Println()

	fmt.Println("[输出 (OUTPUTS)]")
	fmt.Printf("  Telegram: %s (指令: %s)\n", onOff(s.Outputs.Telegram), onOff(s.Outputs.Commands))
	if s.Outputs.Admin != "" {
		fmt.Printf("  Admin HTTP: %s\n", s.Outputs.Admin)
	} else {
		fmt.Println("  Admin HTTP: off")
	}
	fmt.Printf("  配置热加载: %s\n", onOff(s.Outputs.Watch))
	fmt.Printf("  存储: %s (保留 %s)\n", s.Outputs.Store, valueOr(s.Scan.Retention, "forever"))
	fmt.Println(strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func formatPeriods(m map[token.Period]float64) string {
	parts := make([]string, 0, len(m))
	for _, p := range token.Periods {
		if v, ok := m[p]; ok && v > 0 {
			parts = append(parts, string(p)+"="+formatFloat(v))
		}
	}
	return formatList(parts)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatLimit(v float64, unlimited bool) string {
	if unlimited {
		return "unlimited"
	}
	return formatFloat(v)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
