package notifier

import "context"

// TextNotifier defines a minimal text notification interface.
type TextNotifier interface {
	SendText(text string) error
}

// ChatSender delivers text to a specific chat.
type ChatSender interface {
	SendTo(ctx context.Context, chatID int64, text string) error
}

// UpdateSource long-polls incoming chat updates.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error)
}

// Discard drops every message; used when no transport is configured.
type Discard struct{}

func (Discard) SendText(string) error { return nil }

func (Discard) SendTo(context.Context, int64, string) error { return nil }

func (Discard) GetUpdates(ctx context.Context, _ int64, _ int) ([]Update, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
