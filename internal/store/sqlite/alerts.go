package sqlite

import (
	"context"
	"errors"
	"time"

	"tokenscout/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type alertRepo struct {
	db *gorm.DB
}

func NewAlertRepo(db *gorm.DB) *alertRepo {
	return &alertRepo{db: db}
}

func (r *alertRepo) Insert(ctx context.Context, alert *model.AlertModel) error {
	if alert == nil {
		return errors.New("alert cannot be nil")
	}
	if alert.CreatedAtUnix == 0 {
		alert.CreatedAtUnix = time.Now().UnixMilli()
	}
	return r.db.WithContext(ctx).Create(alert).Error
}

// ListRecent lists the newest alerts first.
func (r *alertRepo) ListRecent(ctx context.Context, limit int) ([]model.AlertModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var alerts []model.AlertModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *alertRepo) LastAlertAt(ctx context.Context, chain, address string) (time.Time, bool, error) {
	var alert model.AlertModel
	err := r.db.WithContext(ctx).
		Where("chain = ? AND address = ?", chain, address).
		Order("created_at DESC").
		First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(alert.CreatedAtUnix), true, nil
}

func (r *alertRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff.UnixMilli()).Delete(&model.AlertModel{})
	return res.RowsAffected, res.Error
}

type cycleRepo struct {
	db *gorm.DB
}

func NewCycleRepo(db *gorm.DB) *cycleRepo {
	return &cycleRepo{db: db}
}

func (r *cycleRepo) Insert(ctx context.Context, cycle *model.CycleModel) error {
	if cycle == nil {
		return errors.New("cycle cannot be nil")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cycle_id"}},
		UpdateAll: true,
	}).Create(cycle).Error
}

// Latest returns the most recent cycle, or nil when none was recorded.
func (r *cycleRepo) Latest(ctx context.Context) (*model.CycleModel, error) {
	var cycle model.CycleModel
	err := r.db.WithContext(ctx).Order("started_at DESC, id DESC").First(&cycle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (r *cycleRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("started_at < ?", cutoff.UnixMilli()).Delete(&model.CycleModel{})
	return res.RowsAffected, res.Error
}

type subscriberRepo struct {
	db *gorm.DB
}

func NewSubscriberRepo(db *gorm.DB) *subscriberRepo {
	return &subscriberRepo{db: db}
}

func (r *subscriberRepo) Add(ctx context.Context, chatID int64) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.SubscriberModel{ChatID: chatID, CreatedAtUnix: time.Now().UnixMilli()}).Error
}

func (r *subscriberRepo) Remove(ctx context.Context, chatID int64) error {
	return r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&model.SubscriberModel{}).Error
}

func (r *subscriberRepo) List(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&model.SubscriberModel{}).
		Order("created_at ASC").
		Pluck("chat_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
