// internal/service/catalog/infrastructure/budget_redis_adapter.go
package infrastructure

import (
	"context"
	"fmt"
	"time"

	"dealwire/internal/pkg/clock"
	"dealwire/internal/pkg/logger"
	redisclient "dealwire/internal/pkg/redis"
	"dealwire/internal/service/catalog/domain"
)

const (
	budgetScriptName       = "catalog_budget_spend"
	budgetRefundScriptName = "catalog_budget_refund"
)

// budgetSpendScript 原子地"检查并扣减"当月配额。
// KEYS[1] 配额计数键；ARGV[1] 本次扣减；ARGV[2] 上限；ARGV[3] 键过期秒数。
// 返回 1 表示扣减成功，0 表示配额已满。
const budgetSpendScript = `
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
local units = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
if used + units > limit then
    return 0
end
redis.call('INCRBY', KEYS[1], units)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[3]))
return 1
`

// budgetRefundScript 退还扣减，下界钳在 0（键不存在或已过期时不会变成负数）。
// KEYS[1] 配额计数键；ARGV[1] 退还数量。返回实际退还的数量。
const budgetRefundScript = `
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
local units = tonumber(ARGV[1])
if used <= 0 then
    return 0
end
if units > used then
    units = used
end
redis.call('DECRBY', KEYS[1], units)
return units
`

// RedisBudgetGate 用 Redis Lua 脚本做每月配额的软门禁。
// 计数的事实源在 Redis（月末键自然过期），MySQL 侧只做异步镜像供对账。
type RedisBudgetGate struct {
	redis  *redisclient.Client
	mirror domain.BudgetRepository
	limit  int64
	clock  clock.Clock
}

func NewRedisBudgetGate(redis *redisclient.Client, mirror domain.BudgetRepository, limit int64, clk clock.Clock) (*RedisBudgetGate, error) {
	if err := redis.LoadScriptFromContent(budgetScriptName, budgetSpendScript); err != nil {
		return nil, err
	}
	if err := redis.LoadScriptFromContent(budgetRefundScriptName, budgetRefundScript); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 1000
	}
	return &RedisBudgetGate{redis: redis, mirror: mirror, limit: limit, clock: clk}, nil
}

func budgetKey(userID, monthKey string) string {
	return fmt.Sprintf("budget:%s:%s", userID, monthKey)
}

// Spend 检查并扣减配额。配额耗尽返回 domain.ErrBudgetExhausted 且不产生副作用。
func (g *RedisBudgetGate) Spend(ctx context.Context, userID string, units int64) error {
	now := g.clock.Now()
	monthKey := domain.MonthKeyOf(now)
	key := budgetKey(userID, monthKey)

	// 键保留到下月初之后一点，自然完成月度重置
	resetAt := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	ttlSeconds := int64(resetAt.Sub(now).Seconds()) + 86400

	result, err := g.redis.RunScript(ctx, budgetScriptName, []string{key}, units, g.limit, ttlSeconds)
	if err != nil {
		return err
	}
	if granted, ok := result.(int64); !ok || granted != 1 {
		return domain.ErrBudgetExhausted
	}

	g.mirrorSpend(ctx, userID, monthKey, units, resetAt, now)
	return nil
}

// Refund 退还扣减（刷新没有成功时的补偿）。
func (g *RedisBudgetGate) Refund(ctx context.Context, userID string, units int64) error {
	now := g.clock.Now()
	monthKey := domain.MonthKeyOf(now)
	key := budgetKey(userID, monthKey)

	result, err := g.redis.RunScript(ctx, budgetRefundScriptName, []string{key}, units)
	if err != nil {
		return err
	}
	refunded, _ := result.(int64)
	if refunded > 0 {
		g.mirrorSpend(ctx, userID, monthKey, -refunded, time.Time{}, now)
	}
	return nil
}

// mirrorSpend 把扣减结果镜像进 MySQL。镜像失败只记日志，不影响门禁结论。
func (g *RedisBudgetGate) mirrorSpend(ctx context.Context, userID, monthKey string, units int64, resetAt, now time.Time) {
	if g.mirror == nil {
		return
	}
	budget, err := g.mirror.Find(ctx, userID, monthKey)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("budget mirror read failed")
		return
	}
	if budget == nil {
		if units < 0 {
			// 没有镜像行可退，说明之前的扣减镜像就没写成功
			return
		}
		budget = &domain.MonthlyBudget{
			UserID:      userID,
			MonthKey:    monthKey,
			TokensLimit: g.limit,
			ResetAt:     resetAt,
		}
	}
	budget.TokensUsed += units
	if budget.TokensUsed < 0 {
		budget.TokensUsed = 0
	}
	budget.UpdatedAt = now
	if err := g.mirror.Upsert(ctx, budget); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("budget mirror write failed")
	}
}
