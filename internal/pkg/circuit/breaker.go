// Package circuit 提供按名称隔离的熔断器，连续失败达到阈值后暂停调用一段时间。
package circuit

import (
	"sort"
	"sync"
	"time"

	"tokenscout/internal/logger"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// StateHandler is notified synchronously after every transition.
type StateHandler func(name string, from, to State)

// Breaker trips after threshold consecutive failures and lets a single probe through
// once cooldown has elapsed. A threshold <= 0 disables it.
type Breaker struct {
	mu          sync.Mutex
	name        string
	state       State
	failures    int
	threshold   int
	cooldown    time.Duration
	lastFailure time.Time
	now         func() time.Time
	onChange    StateHandler
}

func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

func (b *Breaker) Name() string { return b.name }

// State returns the state, resolving an expired open period to half-open lazily.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expire()
	return b.state
}

// expire moves an open breaker whose cooldown has passed to half-open. Caller holds mu.
func (b *Breaker) expire() {
	if b.state == StateOpen && b.now().Sub(b.lastFailure) >= b.cooldown {
		b.transition(StateHalfOpen)
	}
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	if b.threshold <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.expire()
	return b.state != StateOpen
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

func (b *Breaker) RecordFailure() {
	if b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()

	switch b.state {
	case StateClosed:
		if b.failures >= b.threshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

// Record is RecordSuccess for a nil err and RecordFailure otherwise.
func (b *Breaker) Record(err error) {
	if err == nil {
		b.RecordSuccess()
		return
	}
	b.RecordFailure()
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if b.onChange != nil {
		b.onChange(b.name, from, to)
		return
	}
	logger.Warnf("[circuit] %s: %s -> %s (failures=%d/%d, cooldown=%s)",
		b.name, from, to, b.failures, b.threshold, b.cooldown)
}

// Group lazily creates one breaker per name with shared settings.
type Group struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	onChange  StateHandler
	breakers  map[string]*Breaker
}

func NewGroup(threshold int, cooldown time.Duration) *Group {
	return &Group{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		breakers:  make(map[string]*Breaker),
	}
}

// SetClock replaces time.Now for breakers created afterwards.
func (g *Group) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if now != nil {
		g.now = now
	}
}

// SetStateChangeHandler installs h for breakers created afterwards.
func (g *Group) SetStateChangeHandler(h StateHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onChange = h
}

func (g *Group) Get(name string) *Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	if b, ok := g.breakers[name]; ok {
		return b
	}
	b := NewBreaker(name, g.threshold, g.cooldown)
	b.now = g.now
	b.onChange = g.onChange
	g.breakers[name] = b
	return b
}

// States snapshots every breaker's state keyed by name.
func (g *Group) States() map[string]State {
	g.mu.Lock()
	names := make([]string, 0, len(g.breakers))
	for name := range g.breakers {
		names = append(names, name)
	}
	g.mu.Unlock()
	sort.Strings(names)

	out := make(map[string]State, len(names))
	for _, name := range names {
		out[name] = g.Get(name).State()
	}
	return out
}
