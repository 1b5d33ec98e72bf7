// internal/service/catalog/domain/repository.go
package domain

import "context"

// ProductRepository 持久化缓存记录。缓存条目只升级不删除，
// 旧数据被新刷新覆盖。
type ProductRepository interface {
	FindByASIN(ctx context.Context, asin string) (*Product, error)
	Upsert(ctx context.Context, product *Product) error
}

// BudgetRepository 镜像每月配额到持久层，供对账查询。
type BudgetRepository interface {
	Find(ctx context.Context, userID, monthKey string) (*MonthlyBudget, error)
	Upsert(ctx context.Context, budget *MonthlyBudget) error
}
