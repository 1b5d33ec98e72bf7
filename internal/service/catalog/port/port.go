// internal/service/catalog/port/port.go
package port

import (
	"context"

	"dealwire/internal/service/catalog/domain"
)

// UpstreamAPI 是上游商品数据 API 的出站端口。
// 401/400/429 等 HTTP 级错误由适配器翻译成带状态码的错误类型。
type UpstreamAPI interface {
	FetchProduct(ctx context.Context, asin string) (*domain.Product, error)
}

// BudgetGate 是每月配额的检查并扣减门禁。
// Spend 在配额耗尽时返回 domain.ErrBudgetExhausted，不产生任何副作用。
// Refund 退还一次没有换来成功刷新的扣减（拉取失败的补偿）。
type BudgetGate interface {
	Spend(ctx context.Context, userID string, units int64) error
	Refund(ctx context.Context, userID string, units int64) error
}
