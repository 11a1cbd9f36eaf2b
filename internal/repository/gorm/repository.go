package gormrepository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tokenwatch/internal/models"
	"tokenwatch/internal/repository"
)

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ repository.Repository = (*Repository)(nil)

func (r *Repository) InsertAlert(ctx context.Context, item *models.AlertRecord) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *Repository) InsertRound(ctx context.Context, item *models.RoundRecord) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *Repository) ListAlerts(ctx context.Context, params repository.ListAlertsParams) ([]models.AlertRecord, error) {
	q := r.alertsQuery(ctx, params)
	limit := params.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var items []models.AlertRecord
	err := q.Order("sent_at DESC").Limit(limit).Offset(params.Offset).Find(&items).Error
	return items, err
}

func (r *Repository) CountAlerts(ctx context.Context, params repository.ListAlertsParams) (int64, error) {
	var n int64
	err := r.alertsQuery(ctx, params).Count(&n).Error
	return n, err
}

func (r *Repository) alertsQuery(ctx context.Context, params repository.ListAlertsParams) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.AlertRecord{})
	if params.Tier != nil {
		q = q.Where("tier = ?", *params.Tier)
	}
	if params.Since != nil {
		q = q.Where("sent_at >= ?", *params.Since)
	}
	return q
}

func (r *Repository) ListRounds(ctx context.Context, limit int) ([]models.RoundRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var items []models.RoundRecord
	err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&items).Error
	return items, err
}

func (r *Repository) DeleteAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("sent_at < ?", cutoff).Delete(&models.AlertRecord{})
	return res.RowsAffected, res.Error
}

func (r *Repository) DeleteRoundsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("started_at < ?", cutoff).Delete(&models.RoundRecord{})
	return res.RowsAffected, res.Error
}
