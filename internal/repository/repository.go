package repository

import (
	"context"
	"time"

	"tokenwatch/internal/models"
)

type ListAlertsParams struct {
	Limit  int
	Offset int
	Tier   *string
	Since  *time.Time
}

// Repository is the append-only activity sink. The pipeline writes through
// it and the status API reads; pipeline decisions never depend on it.
type Repository interface {
	InsertAlert(ctx context.Context, item *models.AlertRecord) error
	InsertRound(ctx context.Context, item *models.RoundRecord) error

	ListAlerts(ctx context.Context, params ListAlertsParams) ([]models.AlertRecord, error)
	CountAlerts(ctx context.Context, params ListAlertsParams) (int64, error)
	ListRounds(ctx context.Context, limit int) ([]models.RoundRecord, error)

	DeleteAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteRoundsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
