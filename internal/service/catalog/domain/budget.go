// internal/service/catalog/domain/budget.go
package domain

import (
	"errors"
	"time"
)

// ErrBudgetExhausted 表示当月配额已用完，刷新请求快速失败。
var ErrBudgetExhausted = errors.New("monthly token budget exhausted")

// MonthlyBudget 是每用户每月的上游 API 消耗配额。
// tokensUsed <= tokensLimit 是软门禁：取用前检查，不做事务级强约束，
// 并发下的轻微超卖可以接受。
type MonthlyBudget struct {
	UserID      string
	MonthKey    string // 形如 2026-08
	TokensUsed  int64
	TokensLimit int64
	ResetAt     time.Time
	UpdatedAt   time.Time
}

// MonthKeyOf 返回 t 所在月份的配额键。
func MonthKeyOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}
