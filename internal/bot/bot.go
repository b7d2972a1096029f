// Package bot 处理 Telegram 指令：修改过滤阈值、订阅告警、查看状态。
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tokenscout/internal/filter"
	"tokenscout/internal/gateway/notifier"
	"tokenscout/internal/logger"
	"tokenscout/internal/store"
)

const (
	msgWelcome      = "Welcome to the Token Scanning Bot! Use /help to see available commands."
	msgUnauthorized = "You are not authorized to use this bot."
	msgInvalidValue = "Invalid value. Please enter a number."
	msgUnknown      = "Unknown command. Use /help to see available commands."
)

// CriteriaStore is the part of filter.Store the bot writes through.
type CriteriaStore interface {
	Snapshot() filter.Criteria
	ApplyPatch(patch map[string]any) (filter.Criteria, error)
}

// Observer counts accepted criteria changes.
type Observer interface {
	ObserveCriteriaUpdate(source string)
}

// Config holds bot behaviour settings.
type Config struct {
	AllowedChatIDs []int64
	// PollTimeout is the long-poll timeout handed to getUpdates, in seconds.
	PollTimeout int
	// ErrorBackoff is the pause after a failed poll.
	ErrorBackoff time.Duration
}

// Bot long-polls updates and answers commands from allowed chats.
type Bot struct {
	updates  notifier.UpdateSource
	sender   notifier.ChatSender
	criteria CriteriaStore
	subs     store.SubscriberRepository
	obs      Observer

	allowed      map[int64]struct{}
	pollTimeout  int
	errorBackoff time.Duration
	commands     map[string]command
	offset       int64
}

// New wires a bot. subs and obs may be nil.
func New(cfg Config, updates notifier.UpdateSource, sender notifier.ChatSender, criteria CriteriaStore, subs store.SubscriberRepository, obs Observer) *Bot {
	b := &Bot{
		updates:      updates,
		sender:       sender,
		criteria:     criteria,
		subs:         subs,
		obs:          obs,
		allowed:      make(map[int64]struct{}, len(cfg.AllowedChatIDs)),
		pollTimeout:  cfg.PollTimeout,
		errorBackoff: cfg.ErrorBackoff,
	}
	for _, id := range cfg.AllowedChatIDs {
		b.allowed[id] = struct{}{}
	}
	if b.pollTimeout <= 0 {
		b.pollTimeout = 30
	}
	if b.errorBackoff <= 0 {
		b.errorBackoff = 3 * time.Second
	}
	b.commands = b.commandTable()
	return b
}

// Run polls until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	logger.Infof("[bot] 开始轮询 Telegram 指令，允许的会话=%d", len(b.allowed))
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		updates, err := b.updates.GetUpdates(ctx, b.offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warnf("[bot] 拉取更新失败: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(b.errorBackoff):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= b.offset {
				b.offset = u.UpdateID + 1
			}
			if u.Message == nil {
				continue
			}
			b.reply(ctx, *u.Message)
		}
	}
}

func (b *Bot) reply(ctx context.Context, msg notifier.Message) {
	text := b.Handle(ctx, msg)
	if text == "" {
		return
	}
	if err := b.sender.SendTo(ctx, msg.Chat.ID, text); err != nil {
		logger.Warnf("[bot] 回复 chat=%d 失败: %v", msg.Chat.ID, err)
	}
}

// Handle executes one message and returns the Markdown reply, or "" when nothing
// should be sent back.
func (b *Bot) Handle(ctx context.Context, msg notifier.Message) string {
	name, args, ok := parseCommand(msg.Text)
	if !ok {
		return ""
	}
	chatID := msg.Chat.ID
	if !b.Allowed(chatID) {
		logger.Warnf("[bot] 拒绝未授权会话 chat=%d cmd=%s", chatID, name)
		if name == "start" {
			return notifier.EscapeMarkdown(msgUnauthorized)
		}
		return ""
	}
	cmd, ok := b.commands[name]
	if !ok {
		return notifier.EscapeMarkdown(msgUnknown)
	}
	out, err := cmd.run(ctx, chatID, args)
	if err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			return notifier.EscapeMarkdown(ue.Error())
		}
		logger.Warnf("[bot] 指令 /%s 失败: %v", name, err)
		return notifier.EscapeMarkdown(fmt.Sprintf("Update rejected: %v", err))
	}
	if cmd.raw {
		return out
	}
	return notifier.EscapeMarkdown(out)
}

// Allowed reports whether chatID may issue commands.
func (b *Bot) Allowed(chatID int64) bool {
	_, ok := b.allowed[chatID]
	return ok
}

// parseCommand splits "/cmd@BotName a b" into ("cmd", ["a", "b"]).
func parseCommand(text string) (string, []string, bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	name = strings.ToLower(name)
	if name == "" {
		return "", nil, false
	}
	return name, fields[1:], true
}

func (b *Bot) patch(patch map[string]any) error {
	if _, err := b.criteria.ApplyPatch(patch); err != nil {
		return err
	}
	if b.obs != nil {
		b.obs.ObserveCriteriaUpdate("telegram")
	}
	return nil
}

func (b *Bot) subscribed(ctx context.Context, chatID int64) (bool, error) {
	if b.subs == nil {
		return false, nil
	}
	ids, err := b.subs.List(ctx)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == chatID {
			return true, nil
		}
	}
	return false, nil
}
