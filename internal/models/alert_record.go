package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AlertRecord is an append-only row written after a notification was
// delivered. The pipeline never reads these back; they exist for operators.
type AlertRecord struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement"`
	Address   string          `gorm:"type:varchar(64);not null;index"`
	Symbol    string          `gorm:"type:varchar(32)"`
	Tier      string          `gorm:"type:varchar(10);not null;index"`
	MarketCap decimal.Decimal `gorm:"type:numeric(30,10)"`
	Payload   datatypes.JSON  `gorm:"type:jsonb"`
	SentAt    time.Time       `gorm:"type:timestamptz;not null;index"`
	CreatedAt time.Time       `gorm:"type:timestamptz;autoCreateTime"`
}

func (AlertRecord) TableName() string {
	return "alerts"
}
