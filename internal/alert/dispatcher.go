// Package alert turns scan matches into chat notifications and records them.
package alert

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"tokenscout/internal/gateway/notifier"
	"tokenscout/internal/logger"
	"tokenscout/internal/metrics"
	"tokenscout/internal/scanner"
	"tokenscout/internal/store"
	"tokenscout/internal/store/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SubscriberSource lists the chats that asked for alerts.
type SubscriberSource interface {
	List(ctx context.Context) ([]int64, error)
}

// Observer counts alert outcomes.
type Observer interface {
	ObserveAlert(outcome string)
}

// Summary counts what one Dispatch call did.
type Summary struct {
	Sent       int
	Failed     int
	Suppressed int
}

// Dispatcher sends one message per match to every recipient. With a positive cooldown
// a token alerted within that window is not alerted again.
type Dispatcher struct {
	sender   notifier.ChatSender
	subs     SubscriberSource
	alerts   store.AlertRepository
	chats    []int64
	allowed  map[int64]struct{}
	cooldown time.Duration
	obs      Observer
	now      func() time.Time
}

// Config holds dispatcher settings.
type Config struct {
	ChatIDs []int64 // always notified, in addition to subscribers
	// AllowedChatIDs gates subscribers: a stored subscription outside this list is ignored.
	AllowedChatIDs []int64
	Cooldown       time.Duration // 0 = alert on every match
}

func NewDispatcher(cfg Config, sender notifier.ChatSender, subs SubscriberSource, alerts store.AlertRepository, obs Observer) *Dispatcher {
	if sender == nil {
		sender = notifier.Discard{}
	}
	allowed := make(map[int64]struct{}, len(cfg.AllowedChatIDs))
	for _, id := range cfg.AllowedChatIDs {
		allowed[id] = struct{}{}
	}
	return &Dispatcher{
		sender:   sender,
		subs:     subs,
		alerts:   alerts,
		chats:    append([]int64(nil), cfg.ChatIDs...),
		allowed:  allowed,
		cooldown: cfg.Cooldown,
		obs:      obs,
		now:      time.Now,
	}
}

// recipients merges configured chats with allowed subscribers, without duplicates.
func (d *Dispatcher) recipients(ctx context.Context) []int64 {
	set := make(map[int64]struct{}, len(d.chats))
	for _, id := range d.chats {
		set[id] = struct{}{}
	}
	if d.subs != nil {
		ids, err := d.subs.List(ctx)
		if err != nil {
			logger.Warnf("[alert] list subscribers: %v", err)
		}
		for _, id := range ids {
			if _, ok := d.allowed[id]; !ok {
				logger.Debugf("[alert] skip subscriber %d: not in allowed_chat_ids", id)
				continue
			}
			set[id] = struct{}{}
		}
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dispatch alerts every match of cycleID.
func (d *Dispatcher) Dispatch(ctx context.Context, cycleID string, matches []scanner.Match) Summary {
	var sum Summary
	if len(matches) == 0 {
		return sum
	}
	to := d.recipients(ctx)
	if len(to) == 0 {
		logger.Infof("[alert] %d matches but no recipients", len(matches))
	}
	for _, m := range matches {
		if ctx.Err() != nil {
			break
		}
		if d.suppressed(ctx, m) {
			sum.Suppressed++
			d.observe(metrics.AlertSuppressed)
			continue
		}
		at := d.now()
		text := Format(m, at).RenderMarkdown()
		delivered := 0
		for _, chatID := range to {
			if err := d.sender.SendTo(ctx, chatID, text); err != nil {
				logger.Warnf("[alert] send %s to %d: %v", m.Token.Key(), chatID, err)
				continue
			}
			delivered++
		}
		switch {
		case len(to) == 0:
			// recorded only
		case delivered == 0:
			sum.Failed++
			d.observe(metrics.AlertFailed)
		default:
			sum.Sent++
			d.observe(metrics.AlertSent)
		}
		d.record(ctx, cycleID, m, text, len(to), delivered, at)
	}
	logger.Infof("[alert] cycle %s: sent=%d failed=%d suppressed=%d recipients=%d",
		cycleID, sum.Sent, sum.Failed, sum.Suppressed, len(to))
	return sum
}

func (d *Dispatcher) suppressed(ctx context.Context, m scanner.Match) bool {
	if d.cooldown <= 0 || d.alerts == nil {
		return false
	}
	last, ok, err := d.alerts.LastAlertAt(ctx, m.Token.Chain, m.Token.Address)
	if err != nil {
		logger.Warnf("[alert] cooldown lookup %s: %v", m.Token.Key(), err)
		return false
	}
	return ok && d.now().Sub(last) < d.cooldown
}

func (d *Dispatcher) record(ctx context.Context, cycleID string, m scanner.Match, text string, recipients, delivered int, at time.Time) {
	if d.alerts == nil {
		return
	}
	payload, err := json.Marshal(m)
	if err != nil {
		logger.Warnf("[alert] encode %s: %v", m.Token.Key(), err)
		payload = []byte("{}")
	}
	rec := &model.AlertModel{
		AlertID:       uuid.NewString(),
		CycleID:       cycleID,
		Chain:         m.Token.Chain,
		Address:       m.Token.Address,
		Symbol:        m.Token.Symbol,
		Message:       text,
		Payload:       datatypes.JSON(payload),
		Recipients:    recipients,
		Delivered:     delivered,
		CreatedAtUnix: at.UnixMilli(),
	}
	if err := d.alerts.Insert(ctx, rec); err != nil {
		logger.Warnf("[alert] record %s: %v", m.Token.Key(), err)
	}
}

func (d *Dispatcher) observe(outcome string) {
	if d.obs != nil {
		d.obs.ObserveAlert(outcome)
	}
}
