// internal/service/tracking/infrastructure/gorm_model.go
package infrastructure

import (
	"database/sql"
	"time"
)

// TrackingIdentifierModel 是池记录的持久化对象。
type TrackingIdentifierModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	UserID     string `gorm:"size:64;index:idx_user_status"`
	Identifier string `gorm:"size:64"`
	Status     string `gorm:"size:16;index:idx_user_status"`

	TotalUses  int
	LastUsedAt sql.NullTime

	LeaseID       sql.NullString `gorm:"size:36;index:idx_lease"`
	AssignedAt    sql.NullTime
	ExpiresAt     sql.NullTime   `gorm:"index:idx_expires"`
	DealHistoryID sql.NullString `gorm:"size:36"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TrackingIdentifierModel) TableName() string {
	return "tracking_identifier"
}
