// internal/service/publishing/domain/history.go
package domain

import (
	"errors"
	"time"
)

var ErrHistoryNotFound = errors.New("publication history not found")

// PublicationHistory 是一次成功发布的不可变存档：发布时刻的文案、
// 评分和价格快照。调度记录日后可能被清理，历史记录永久保留。
type PublicationHistory struct {
	ID        string
	DealID    string
	ChannelID string
	RuleID    string
	ASIN      string

	Title    string
	Price    float64
	OldPrice float64
	Discount int
	Score    float64

	MessageText        string
	CopySource         string
	TrackingIdentifier string
	OutboundLink       string
	ExternalMessageID  string

	PublishedAt   time.Time
	Invalidated   bool
	InvalidatedAt *time.Time

	CreatedAt time.Time
}

// Invalidate 标记该历史对应的 deal 已提前失效（例如限时价撤回）。
// 记录本身不删除，只打标。
func (h *PublicationHistory) Invalidate(at time.Time) {
	if h.Invalidated {
		return
	}
	h.Invalidated = true
	h.InvalidatedAt = &at
}
