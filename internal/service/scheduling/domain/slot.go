// internal/service/scheduling/domain/slot.go
package domain

import "time"

// SlotConfig 收拢时段选择算法的全部调参常量。
// 这些值来自线上长期调优，没有文档化的推导过程——
// 可以按需覆盖，但没有业务理由不要改默认值。
type SlotConfig struct {
	// MinDelay 是任何任务离创建时刻的最小延迟下限。
	MinDelay time.Duration
	// UrgentMaxDelay 是紧急通道（critical 优先级）的最大延迟。
	UrgentMaxDelay time.Duration
	// NearImmediateDelay 在 deal 的硬过期时间早于紧急延迟时使用。
	NearImmediateDelay time.Duration

	// LookaheadHours 是智能排期向后看的小时窗口。
	LookaheadHours int
	// DeadHours 是跳过的低活跃时段（夜间）。
	DeadHours map[int]bool
	// MaxPerHourDefault 是频道未配置时的每小时任务上限。
	MaxPerHourDefault int

	// RankScores 是历史最佳小时前五名的得分（按名次）。
	RankScores []int
	// ListedHourScore 是进入最佳小时列表但排名五名开外的得分。
	ListedHourScore int
	// BaseScore 是不在最佳小时列表中的候选时段的基础分。
	BaseScore int
	// FarFutureAfter/FarFuturePenalty：时段距今超过该阈值则扣分。
	FarFutureAfter   time.Duration
	FarFuturePenalty int
	// EmptySlotBonus 给当前还没有任务的时段加分，鼓励分散。
	EmptySlotBonus int

	// RetryDelay 是可重试失败的重新排期延迟。
	RetryDelay time.Duration
	// StaleAfter 是 pending 任务的滞留上限，超过则被清理为 expired。
	StaleAfter time.Duration
	// ReclaimAfter 是 processing 任务的滞留上限。worker 在认领后崩溃
	// 会把任务孤儿在 processing，超过该阈值由清扫放回 pending 重试。
	ReclaimAfter time.Duration

	// DefaultBestHours 是频道没有历史数据时的兜底小时排行。
	DefaultBestHours []int
}

// DefaultSlotConfig 返回生产默认值。
func DefaultSlotConfig() SlotConfig {
	return SlotConfig{
		MinDelay:           2 * time.Minute,
		UrgentMaxDelay:     15 * time.Minute,
		NearImmediateDelay: 3 * time.Minute,
		LookaheadHours:     24,
		DeadHours:          map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true},
		MaxPerHourDefault:  3,
		RankScores:         []int{100, 90, 80, 70, 60},
		ListedHourScore:    50,
		BaseScore:          30,
		FarFutureAfter:     12 * time.Hour,
		FarFuturePenalty:   20,
		EmptySlotBonus:     5,
		RetryDelay:         10 * time.Minute,
		StaleAfter:         24 * time.Hour,
		ReclaimAfter:       30 * time.Minute,
		DefaultBestHours:   []int{12, 18, 20, 9, 15, 21},
	}
}

// StartOfNextHour 返回 t 之后的下一个整点。
func StartOfNextHour(t time.Time) time.Time {
	return t.Truncate(time.Hour).Add(time.Hour)
}
