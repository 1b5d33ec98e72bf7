// internal/service/tracking/domain/repository.go
package domain

import (
	"context"
	"time"
)

// Repository 定义池记录的持久化接口。
//
// AcquireLease 必须是单条原子的读改写（带 status='available' 前置条件的
// UPDATE），绝不允许"先查再改"两步走——两个并发调用者可能选中同一条记录，
// 靠存储层的条件更新裁决胜负。
type Repository interface {
	Insert(ctx context.Context, record *Record) error

	// NextAvailable 按 FIFO 公平性返回候选：lastUsedAt 为空的最先
	//（从未用过视为最旧），其次按 lastUsedAt 升序，再按创建顺序。
	NextAvailable(ctx context.Context, userID string) (*Record, error)

	// AcquireLease 条件翻转 available → in_use，写入租约字段并累加使用计数。
	// 返回 false 表示竞争失败（记录已被别人租走）。
	AcquireLease(ctx context.Context, recordID, leaseID, historyID string, now, expiresAt time.Time) (bool, error)

	FindByLeaseID(ctx context.Context, leaseID string) (*Record, error)

	// ClearLease 条件翻转 in_use → available 并清空租约字段。
	// 返回 false 表示该租约已不存在（重复释放）。
	ClearLease(ctx context.Context, leaseID string, now time.Time) (bool, error)

	// LinkHistory 把当前租约关联到发布历史记录。
	LinkHistory(ctx context.Context, leaseID, historyID string) error

	// FindExpired 返回租约已过期的 in_use 记录。
	FindExpired(ctx context.Context, now time.Time) ([]*Record, error)

	// Delete 仅删除 available 状态的记录，in_use 的删除请求返回 false。
	Delete(ctx context.Context, recordID string) (bool, error)

	Stats(ctx context.Context, userID string) (*Stats, error)
}
