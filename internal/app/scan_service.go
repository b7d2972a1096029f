package app

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"tokenscout/internal/alert"
	"tokenscout/internal/logger"
	"tokenscout/internal/scanner"
	"tokenscout/internal/scheduler"
	"tokenscout/internal/store"
	"tokenscout/internal/store/model"
)

// CycleScanner runs one scan cycle.
type CycleScanner interface {
	Scan(ctx context.Context, chains []string) scanner.Report
}

// MatchDispatcher delivers a cycle's matches.
type MatchDispatcher interface {
	Dispatch(ctx context.Context, cycleID string, matches []scanner.Match) alert.Summary
}

// Pruner drops persisted rows older than retention.
type Pruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// ScanServiceConfig 描述轮询服务依赖。
type ScanServiceConfig struct {
	Scanner    CycleScanner
	Criteria   scanner.CriteriaSource
	Dispatcher MatchDispatcher
	Cycles     store.CycleRepository
	Pruner     Pruner
	// Chains is what the "all" selection expands to.
	Chains     []string
	Interval   time.Duration
	Retention  time.Duration
	PruneEvery time.Duration
}

// ScanService 周期性执行扫描→告警→落库，单轮失败不会中断循环。
type ScanService struct {
	cfg       ScanServiceConfig
	now       func() time.Time
	lastPrune time.Time
}

func NewScanService(cfg ScanServiceConfig) *ScanService {
	if cfg.PruneEvery <= 0 {
		cfg.PruneEvery = time.Hour
	}
	return &ScanService{cfg: cfg, now: time.Now}
}

// Run blocks until ctx is cancelled, starting a cycle right away and then every Interval.
func (s *ScanService) Run(ctx context.Context) error {
	sch := scheduler.New(ctx, "scan", s.cfg.Interval)
	sch.RunImmediately = true
	logger.Infof("[scan] 轮询启动 interval=%s chains=%s", s.cfg.Interval, strings.Join(s.cfg.Chains, ","))
	sch.Start(func(ctx context.Context) {
		s.RunOnce(ctx)
	})
	logger.Infof("[scan] 轮询停止")
	return nil
}

// RunOnce executes one cycle and returns its report.
func (s *ScanService) RunOnce(ctx context.Context) scanner.Report {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[scan] cycle panic: %v", r)
		}
	}()
	chains := s.cfg.Criteria.Snapshot().ResolveChains(s.cfg.Chains)
	if len(chains) == 0 {
		logger.Warnf("[scan] 没有可扫描的链，跳过本轮")
		return scanner.Report{}
	}
	rep := s.cfg.Scanner.Scan(ctx, chains)
	if ctx.Err() != nil {
		return rep
	}

	var sum alert.Summary
	if s.cfg.Dispatcher != nil && len(rep.Matches) > 0 {
		sum = s.cfg.Dispatcher.Dispatch(ctx, rep.CycleID, rep.Matches)
	}
	s.record(ctx, rep)
	s.prune(ctx)
	logger.Infof("Scanned and found %d matching tokens (cycle=%s sent=%d failed=%d suppressed=%d)",
		len(rep.Matches), rep.CycleID, sum.Sent, sum.Failed, sum.Suppressed)
	return rep
}

func (s *ScanService) record(ctx context.Context, rep scanner.Report) {
	if s.cfg.Cycles == nil {
		return
	}
	raw, err := json.Marshal(rep)
	if err != nil {
		logger.Warnf("[scan] encode cycle %s: %v", rep.CycleID, err)
		raw = nil
	}
	t := rep.Totals()
	row := &model.CycleModel{
		CycleID:        rep.CycleID,
		StartedAtUnix:  rep.StartedAt.UnixMilli(),
		FinishedAtUnix: rep.FinishedAt.UnixMilli(),
		Candidates:     t.Candidates,
		Matches:        len(rep.Matches),
		FailedChains:   strings.Join(rep.FailedChains(), ","),
		Report:         datatypes.JSON(raw),
	}
	if err := s.cfg.Cycles.Insert(ctx, row); err != nil {
		logger.Warnf("[scan] record cycle %s: %v", rep.CycleID, err)
	}
}

func (s *ScanService) prune(ctx context.Context) {
	if s.cfg.Pruner == nil || s.cfg.Retention <= 0 {
		return
	}
	now := s.now()
	if !s.lastPrune.IsZero() && now.Sub(s.lastPrune) < s.cfg.PruneEvery {
		return
	}
	s.lastPrune = now
	n, err := s.cfg.Pruner.Prune(ctx, s.cfg.Retention)
	if err != nil {
		logger.Warnf("[scan] prune: %v", err)
		return
	}
	if n > 0 {
		logger.Infof("[scan] pruned %d rows older than %s", n, s.cfg.Retention)
	}
}
