// internal/service/scheduling/infrastructure/gorm_model.go
package infrastructure

import (
	"database/sql"
	"time"
)

// ScheduledDealModel 对应数据库中的 scheduled_deal 表。
type ScheduledDealModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	ChannelID string `gorm:"size:36;index:idx_channel_slot"`
	RuleID    string `gorm:"size:36;index"`
	ASIN      string `gorm:"size:16;index"`

	Title    string
	Price    float64 `gorm:"type:decimal(10,2)"`
	OldPrice float64 `gorm:"type:decimal(10,2)"`
	Discount int
	Category string `gorm:"size:64"`
	DealType string `gorm:"size:32"`
	Score    float64

	ScheduledFor time.Time `gorm:"index:idx_channel_slot;index:idx_due"`
	Status       string    `gorm:"size:16;index:idx_due;default:pending"`
	Reason       string    `gorm:"size:32"`
	DealEndTime  sql.NullTime

	RetryCount int
	MaxRetries int `gorm:"default:3"`

	PublishedAt  sql.NullTime
	CancelledAt  sql.NullTime
	FailedAt     sql.NullTime
	CancelReason string `gorm:"size:64"`
	LastError    string `gorm:"type:text"`

	ExternalMessageID  string `gorm:"size:64"`
	TrackingIdentifier string `gorm:"size:64"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ScheduledDealModel) TableName() string {
	return "scheduled_deal"
}
