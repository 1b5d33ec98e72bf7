// internal/service/rules/infrastructure/gorm_model.go
package infrastructure

import (
	"database/sql"
	"time"
)

// ChannelModel 对应数据库中的 publish_channel 表。
type ChannelModel struct {
	ID                  string `gorm:"primaryKey;size:36"`
	UserID              string `gorm:"size:36;index"`
	Name                string
	Platform            string `gorm:"size:32"`
	ChatID              string `gorm:"size:128"`
	EncryptedCredential string `gorm:"type:text"`
	AffiliateTag        string `gorm:"size:64"`
	MaxDealsPerHour     int
	BestHours           string `gorm:"type:varchar(255)"` // 逗号分隔的小时列表，按历史表现降序
	Active              bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (ChannelModel) TableName() string {
	return "publish_channel"
}

// PublishRuleModel 对应数据库中的 publish_rule 表。
type PublishRuleModel struct {
	ID              string `gorm:"primaryKey;size:36"`
	ChannelID       string `gorm:"size:36;index"`
	Name            string
	Active          bool
	Mode            string `gorm:"size:16;default:smart"`
	MaxRetries      int    `gorm:"default:3"`
	CopyStyle       string `gorm:"size:32"`
	FilterExpr      string `gorm:"type:text"`
	TotalPublished  int64
	LastPublishedAt sql.NullTime
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (PublishRuleModel) TableName() string {
	return "publish_rule"
}
