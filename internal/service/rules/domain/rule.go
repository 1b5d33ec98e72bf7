// internal/service/rules/domain/rule.go
package domain

import (
	"errors"
	"time"
)

var (
	ErrRuleNotFound    = errors.New("publish rule not found")
	ErrChannelNotFound = errors.New("channel not found")
)

// PublishMode 决定调度器如何为该规则下的 deal 选择发布时间。
type PublishMode string

const (
	ModeImmediate PublishMode = "immediate" // 立即发布（只保留最小延迟）
	ModeSmart     PublishMode = "smart"     // 按历史最佳时段智能排期
)

// Channel 是一个消息投递目标（例如一个 Telegram 频道）。
// 凭据以密文存储，只有发布流水线在投递前才解密。
type Channel struct {
	ID                  string
	UserID              string
	Name                string
	Platform            string // "telegram" 等，决定使用哪个投递适配器
	ChatID              string
	EncryptedCredential string
	AffiliateTag        string // 池子为空时兜底使用的联盟标签
	MaxDealsPerHour     int
	BestHours           []int // 按历史表现降序排列的发布小时
	Active              bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasCredential 判断该频道是否配置了投递凭据。
func (c *Channel) HasCredential() bool {
	return c.EncryptedCredential != ""
}

// PublishRule 定义一个频道上的发布策略。
type PublishRule struct {
	ID              string
	ChannelID       string
	Name            string
	Active          bool
	Mode            PublishMode
	MaxRetries      int
	CopyStyle       string // 文案风格，透传给文案生成器
	FilterExpr      string // 可选的 CEL 过滤表达式，空串表示不过滤
	TotalPublished  int64
	LastPublishedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
