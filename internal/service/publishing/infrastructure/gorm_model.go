// internal/service/publishing/infrastructure/gorm_model.go
package infrastructure

import (
	"database/sql"
	"time"
)

// PublicationHistoryModel 是发布历史的持久化对象（只追加表）。
type PublicationHistoryModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	DealID    string `gorm:"size:36;index:idx_deal"`
	ChannelID string `gorm:"size:36;index:idx_channel_published"`
	RuleID    string `gorm:"size:36"`
	ASIN      string `gorm:"size:20"`

	Title    string `gorm:"size:512"`
	Price    float64
	OldPrice float64
	Discount int
	Score    float64

	MessageText        string `gorm:"type:text"`
	CopySource         string `gorm:"size:16"`
	TrackingIdentifier string `gorm:"size:64"`
	OutboundLink       string `gorm:"size:512"`
	ExternalMessageID  string `gorm:"size:64"`

	PublishedAt   time.Time `gorm:"index:idx_channel_published"`
	Invalidated   bool
	InvalidatedAt sql.NullTime

	CreatedAt time.Time
}

func (PublicationHistoryModel) TableName() string {
	return "publication_history"
}
