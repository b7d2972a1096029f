package store

import (
	"context"
	"time"

	"tokenscout/internal/store/model"
)

// Store is the entry point for database access.
type Store interface {
	Alerts() AlertRepository
	Cycles() CycleRepository
	Subscribers() SubscriberRepository
	// Close closes the store connection.
	Close() error
}

// AlertRepository handles alert history.
type AlertRepository interface {
	Insert(ctx context.Context, alert *model.AlertModel) error
	ListRecent(ctx context.Context, limit int) ([]model.AlertModel, error)
	// LastAlertAt returns when chain/address was last alerted; ok is false if never.
	LastAlertAt(ctx context.Context, chain, address string) (at time.Time, ok bool, err error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CycleRepository handles scan cycle summaries.
type CycleRepository interface {
	Insert(ctx context.Context, cycle *model.CycleModel) error
	Latest(ctx context.Context) (*model.CycleModel, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SubscriberRepository handles alert subscriptions.
type SubscriberRepository interface {
	Add(ctx context.Context, chatID int64) error
	Remove(ctx context.Context, chatID int64) error
	List(ctx context.Context) ([]int64, error)
}
