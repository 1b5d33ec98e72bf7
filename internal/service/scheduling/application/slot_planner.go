// internal/service/scheduling/application/slot_planner.go
package application

import (
	"context"
	"sort"
	"time"

	"dealwire/internal/service/scheduling/domain"
)

// OccupancyFn 返回某个整点时段内已排任务数。由服务层绑定到仓储查询。
type OccupancyFn func(ctx context.Context, slotStart time.Time) (int64, error)

// SlotPlanner 实现智能排期：在向后看的窗口内给每个候选整点打分，取最高分。
// 打分规则见 SlotConfig；没有任何候选时退化为"下一个整点"。
type SlotPlanner struct {
	cfg domain.SlotConfig
}

func NewSlotPlanner(cfg domain.SlotConfig) *SlotPlanner {
	return &SlotPlanner{cfg: cfg}
}

type candidate struct {
	at    time.Time
	score int
}

// PlanSmart 为一个 smart 模式的 deal 选择发布时间。
// bestHours 是频道的历史最佳小时（降序），为空时使用默认排行。
// maxPerHour <= 0 时使用默认上限。
func (p *SlotPlanner) PlanSmart(ctx context.Context, now time.Time, bestHours []int, maxPerHour int, occupancy OccupancyFn) (time.Time, string, error) {
	if len(bestHours) == 0 {
		bestHours = p.cfg.DefaultBestHours
	}
	if maxPerHour <= 0 {
		maxPerHour = p.cfg.MaxPerHourDefault
	}

	// 小时 -> 历史排名（0 为最佳）
	rankOf := make(map[int]int, len(bestHours))
	for i, h := range bestHours {
		if _, seen := rankOf[h]; !seen {
			rankOf[h] = i
		}
	}

	base := domain.StartOfNextHour(now)
	var candidates []candidate

	for offset := 0; offset < p.cfg.LookaheadHours; offset++ {
		slotStart := base.Add(time.Duration(offset) * time.Hour)
		hour := slotStart.Hour()

		if p.cfg.DeadHours[hour] {
			continue
		}

		count, err := occupancy(ctx, slotStart)
		if err != nil {
			return time.Time{}, "", err
		}
		if count >= int64(maxPerHour) {
			continue // 容量已满，公平性优先
		}

		score := p.cfg.BaseScore
		if rank, ok := rankOf[hour]; ok {
			if rank < len(p.cfg.RankScores) {
				score = p.cfg.RankScores[rank]
			} else {
				score = p.cfg.ListedHourScore
			}
		}
		if slotStart.Sub(now) > p.cfg.FarFutureAfter {
			score -= p.cfg.FarFuturePenalty
		}
		if count == 0 {
			score += p.cfg.EmptySlotBonus
		}

		candidates = append(candidates, candidate{at: slotStart, score: score})
	}

	if len(candidates) == 0 {
		// 所有时段都不可用：退化为下一个整点，绝不静默丢弃
		return base, domain.ReasonFallback, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	best := candidates[0]

	reason := domain.ReasonNextSlot
	if _, ok := rankOf[best.at.Hour()]; ok {
		reason = domain.ReasonBestHour
	}
	return best.at, reason, nil
}
