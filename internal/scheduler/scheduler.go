// Package scheduler 驱动周期任务：固定间隔执行，可选对齐到整点间隔，任务之间不重叠。
package scheduler

import (
	"context"
	"time"

	"tokenscout/internal/logger"
)

// Scheduler runs a task every Interval until its context ends. A run that overruns
// the interval skips the missed ticks instead of queueing them.
type Scheduler struct {
	Name           string
	Interval       time.Duration
	Align          bool
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
}

func New(ctx context.Context, name string, interval time.Duration) *Scheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Scheduler{
		Name:     name,
		Interval: interval,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

func (s *Scheduler) prefix() string {
	if s.Name == "" {
		return "Scheduler"
	}
	return "Scheduler[" + s.Name + "]"
}

// Start blocks, invoking task with the scheduler context on every tick.
func (s *Scheduler) Start(task func(ctx context.Context)) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("%s: task is nil, exit", s.prefix())
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("%s: invalid interval=%s, exit", s.prefix(), s.Interval)
		return
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	startAt := s.nowFn().UTC()
	anchor := startAt
	if s.Align {
		anchor = startAt.Truncate(s.Interval)
	}
	logger.Infof("%s: started interval=%s align=%v run_immediately=%v at=%s",
		s.prefix(), s.Interval, s.Align, s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		if s.ctx.Err() != nil {
			return
		}
		task(s.ctx)
	}

	for {
		now := s.nowFn().UTC()
		nextAt := nextFixedTimeAfter(anchor, s.Interval, now)
		logger.Debugf("%s: next run at=%s (in %s) uptime=%s",
			s.prefix(), nextAt.Format(time.RFC3339), nextAt.Sub(now).Truncate(time.Millisecond),
			now.Sub(startAt).Truncate(time.Second))
		if !s.waitUntil(nextAt) {
			return
		}
		task(s.ctx)
	}
}

func (s *Scheduler) waitUntil(target time.Time) bool {
	wait := target.Sub(s.nowFn().UTC())
	if wait <= 0 {
		select {
		case <-s.ctx.Done():
			logger.Infof("%s: ctx done, exit", s.prefix())
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
		logger.Infof("%s: ctx done, exit", s.prefix())
		return false
	case <-timer.C:
		return true
	}
}

// nextFixedTimeAfter returns the first anchor + k*interval strictly after now.
func nextFixedTimeAfter(anchor time.Time, interval time.Duration, now time.Time) time.Time {
	anchor = anchor.UTC()
	now = now.UTC()
	if interval <= 0 {
		return now
	}
	delta := now.Sub(anchor)
	if delta < 0 {
		return anchor
	}
	k := delta / interval
	return anchor.Add((k + 1) * interval)
}
