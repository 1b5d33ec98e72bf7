// internal/service/publishing/domain/repository.go
package domain

import (
	"context"
	"time"
)

// HistoryRepository 持久化发布历史。表是只追加的：记录只插入、
// 打失效标，从不更新内容或删除。
type HistoryRepository interface {
	Insert(ctx context.Context, history *PublicationHistory) error
	FindByID(ctx context.Context, id string) (*PublicationHistory, error)

	// Invalidate 给已发布的历史打失效标。已失效的记录再次调用是无害的。
	Invalidate(ctx context.Context, id string, at time.Time) error
}
