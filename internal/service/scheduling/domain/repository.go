// internal/service/scheduling/domain/repository.go
package domain

import (
	"context"
	"time"
)

// ScheduledDealRepository 定义调度任务的持久化接口。
// Claim/ReleaseClaim 必须是条件更新（带状态前置检查的原子 UPDATE），
// 这是防止两次 worker 触发重叠时重复处理同一任务的关键。
type ScheduledDealRepository interface {
	Save(ctx context.Context, deal *ScheduledDeal) error
	FindByID(ctx context.Context, id string) (*ScheduledDeal, error)

	// DueForPublish 返回 scheduledFor 已到期的 pending 任务，按时间升序。
	DueForPublish(ctx context.Context, now time.Time, limit int) ([]*ScheduledDeal, error)

	// Claim 原子地把任务从 pending 翻转到 processing。
	// 返回 false 表示任务已被别的周期认领或已不在 pending。
	Claim(ctx context.Context, id string, now time.Time) (bool, error)

	// ReleaseClaim 把 processing 的任务放回 pending（认领后未产生副作用的失败路径）。
	ReleaseClaim(ctx context.Context, id string, now time.Time) (bool, error)

	// CountInWindow 统计频道在 [from, to) 窗口内未终态的任务数，用于时段容量判断。
	CountInWindow(ctx context.Context, channelID string, from, to time.Time) (int64, error)

	// CancelPendingByASIN 批量取消某频道某商品的全部 pending 任务，返回取消数量。
	CancelPendingByASIN(ctx context.Context, channelID, asin, reason string, now time.Time) (int64, error)

	// ExpireStalePending 把 scheduledFor 早于 cutoff 的 pending 任务终态化为 expired。
	ExpireStalePending(ctx context.Context, cutoff, now time.Time) (int64, error)

	// ReclaimStaleProcessing 把 updatedAt 早于 cutoff 的 processing 任务放回
	// pending，返回回收数量。覆盖 worker 认领后崩溃留下的孤儿任务。
	ReclaimStaleProcessing(ctx context.Context, cutoff, now time.Time) (int64, error)
}
