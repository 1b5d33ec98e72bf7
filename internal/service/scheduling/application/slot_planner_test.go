package application

import (
	"context"
	"testing"
	"time"

	"dealwire/internal/service/scheduling/domain"
)

func emptyOccupancy(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestPlanSmartPrefersBestHour(t *testing.T) {
	planner := NewSlotPlanner(domain.DefaultSlotConfig())
	// 10:30，下一个整点是 11:00；最佳小时 12 在窗口内
	now := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)

	at, reason, err := planner.PlanSmart(context.Background(), now, []int{12, 18, 20}, 3, emptyOccupancy)
	if err != nil {
		t.Fatal(err)
	}
	if at.Hour() != 12 {
		t.Fatalf("scheduled hour = %d, want 12", at.Hour())
	}
	if reason != domain.ReasonBestHour {
		t.Fatalf("reason = %s, want best_hour", reason)
	}
}

func TestPlanSmartDefaultBestHoursWhenNoHistory(t *testing.T) {
	cfg := domain.DefaultSlotConfig()
	planner := NewSlotPlanner(cfg)
	now := time.Date(2026, 8, 20, 8, 15, 0, 0, time.UTC)

	at, reason, err := planner.PlanSmart(context.Background(), now, nil, 3, emptyOccupancy)
	if err != nil {
		t.Fatal(err)
	}
	if reason != domain.ReasonBestHour && reason != domain.ReasonNextSlot {
		t.Fatalf("reason = %s", reason)
	}
	found := false
	for _, h := range cfg.DefaultBestHours {
		if at.Hour() == h {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("scheduled hour %d not in default best hours %v", at.Hour(), cfg.DefaultBestHours)
	}
	if at.Sub(now) > time.Duration(cfg.LookaheadHours)*time.Hour {
		t.Fatalf("slot %v outside lookahead window", at)
	}
}

func TestPlanSmartSkipsFullSlot(t *testing.T) {
	planner := NewSlotPlanner(domain.DefaultSlotConfig())
	now := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)

	// 12 点档已满（3/3），13 点为次优历史小时
	occupancy := func(_ context.Context, slotStart time.Time) (int64, error) {
		if slotStart.Hour() == 12 {
			return 3, nil
		}
		return 0, nil
	}

	at, _, err := planner.PlanSmart(context.Background(), now, []int{12, 13}, 3, occupancy)
	if err != nil {
		t.Fatal(err)
	}
	if at.Hour() == 12 {
		t.Fatal("planner selected a slot at capacity")
	}
	if at.Hour() != 13 {
		t.Fatalf("scheduled hour = %d, want 13", at.Hour())
	}
}

func TestPlanSmartSkipsDeadHours(t *testing.T) {
	cfg := domain.DefaultSlotConfig()
	planner := NewSlotPlanner(cfg)
	// 凌晨 00:10：1~6 点是死区，候选不应落在里面
	now := time.Date(2026, 8, 20, 0, 10, 0, 0, time.UTC)

	at, _, err := planner.PlanSmart(context.Background(), now, []int{2, 3}, 3, emptyOccupancy)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DeadHours[at.Hour()] {
		t.Fatalf("planner selected dead hour %d", at.Hour())
	}
}

func TestPlanSmartFallbackWhenEverythingFull(t *testing.T) {
	planner := NewSlotPlanner(domain.DefaultSlotConfig())
	now := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)

	full := func(context.Context, time.Time) (int64, error) { return 99, nil }

	at, reason, err := planner.PlanSmart(context.Background(), now, []int{12}, 3, full)
	if err != nil {
		t.Fatal(err)
	}
	if reason != domain.ReasonFallback {
		t.Fatalf("reason = %s, want fallback", reason)
	}
	if !at.Equal(domain.StartOfNextHour(now)) {
		t.Fatalf("fallback slot = %v, want next hour %v", at, domain.StartOfNextHour(now))
	}
}
