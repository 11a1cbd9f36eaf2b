package models

import "time"

// RoundRecord is the activity-sink row for one completed round.
type RoundRecord struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	StartedAt      time.Time `gorm:"type:timestamptz;not null;index"`
	DurationMs     int64     `gorm:"not null"`
	Candidates     int       `gorm:"not null"`
	Prefiltered    int       `gorm:"not null"`
	SnapshotMisses int       `gorm:"not null"`
	Suppressed     int       `gorm:"not null"`
	MidNotified    int       `gorm:"not null"`
	HighNotified   int       `gorm:"not null"`
	NotifyFailed   int       `gorm:"not null"`
	NextIntervalMs int64     `gorm:"not null"`
	CreatedAt      time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (RoundRecord) TableName() string {
	return "rounds"
}
