// internal/service/scheduling/domain/deal.go
package domain

import (
	"errors"
	"time"
)

var (
	ErrDealNotFound   = errors.New("scheduled deal not found")
	ErrNotTerminable  = errors.New("deal is already in a terminal state")
	ErrNotProcessing  = errors.New("deal is not claimed for processing")
	ErrDealNotQualify = errors.New("deal rejected by rule filter")
)

// Status 是调度任务的生命周期状态。
// pending 的任务被 worker 认领后短暂进入 processing，
// 之后要么回到 pending（可重试失败），要么进入某个终态。
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPublished  Status = "published"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
	StatusExpired    Status = "expired"
)

// IsTerminal 判断状态是否为终态。
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPublished, StatusCancelled, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// Priority 是 deal 类型映射出的调度优先级。
type Priority string

const (
	PriorityCritical Priority = "critical" // 硬过期的限时类 deal，走紧急通道
	PriorityNormal   Priority = "normal"
)

// dealTypePriority 是静态的 deal 类型到优先级映射。
// 新类型是数据而不是新子类——未登记的类型一律按 normal 处理。
var dealTypePriority = map[string]Priority{
	"lightning":  PriorityCritical,
	"deal":       PriorityNormal,
	"coupon":     PriorityNormal,
	"price_drop": PriorityNormal,
}

// PriorityFor 返回 deal 类型对应的优先级。
func PriorityFor(dealType string) Priority {
	if p, ok := dealTypePriority[dealType]; ok {
		return p
	}
	return PriorityNormal
}

// 调度原因常量，记录在任务上便于排查"为什么选了这个时间"。
const (
	ReasonImmediate = "immediate"
	ReasonLightning = "lightning_priority"
	ReasonBestHour  = "best_hour"
	ReasonNextSlot  = "next_slot"
	ReasonFallback  = "fallback"
)

// ScheduledDeal 是一条待发布的调度任务（聚合根）。
// 任务从不删除，只会被置为终态，保留完整的审计轨迹。
type ScheduledDeal struct {
	ID        string
	ChannelID string
	RuleID    string
	ASIN      string

	// 冗余的展示字段，发布时不再回查商品源
	Title    string
	Price    float64
	OldPrice float64
	Discount int
	Category string
	DealType string
	Score    float64 // 外部打分管道产出的质量分，这里只透传

	ScheduledFor time.Time
	Status       Status
	Reason       string // 调度原因
	DealEndTime  *time.Time

	RetryCount int
	MaxRetries int

	PublishedAt  *time.Time
	CancelledAt  *time.Time
	FailedAt     *time.Time
	CancelReason string
	LastError    string

	// 发布成功后回填
	ExternalMessageID  string
	TrackingIdentifier string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarkPublished 在投递成功后把任务置为 published。
func (d *ScheduledDeal) MarkPublished(now time.Time, externalMessageID, trackingIdentifier string) error {
	if d.Status != StatusProcessing {
		return ErrNotProcessing
	}
	d.Status = StatusPublished
	d.ExternalMessageID = externalMessageID
	d.TrackingIdentifier = trackingIdentifier
	d.PublishedAt = &now
	d.UpdatedAt = now
	return nil
}

// RegisterFailure 记录一次发布失败。
// 未达重试上限时重新排期并返回 true；达到上限则进入终态 failed。
// retryCount 永远不会超过 maxRetries。
func (d *ScheduledDeal) RegisterFailure(now time.Time, errMsg string, retryDelay time.Duration) (retried bool) {
	d.RetryCount++
	d.LastError = errMsg
	d.UpdatedAt = now

	if d.RetryCount < d.MaxRetries {
		d.Status = StatusPending
		d.ScheduledFor = now.Add(retryDelay)
		return true
	}
	d.Status = StatusFailed
	d.FailedAt = &now
	return false
}

// Cancel 取消任务。只有非终态的任务可以取消。
func (d *ScheduledDeal) Cancel(now time.Time, reason string) error {
	if d.Status.IsTerminal() {
		return ErrNotTerminable
	}
	d.Status = StatusCancelled
	d.CancelReason = reason
	d.CancelledAt = &now
	d.UpdatedAt = now
	return nil
}

// Expire 把滞留过久的 pending 任务终态化为 expired（安全网）。
func (d *ScheduledDeal) Expire(now time.Time) error {
	if d.Status != StatusPending {
		return ErrNotTerminable
	}
	d.Status = StatusExpired
	d.UpdatedAt = now
	return nil
}
