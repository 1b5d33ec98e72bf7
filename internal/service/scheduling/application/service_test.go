package application

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"

	"dealwire/internal/pkg/clock"
	rulesdomain "dealwire/internal/service/rules/domain"
	"dealwire/internal/service/scheduling/domain"
)

// fakeDealRepo 是内存版的任务仓储。
type fakeDealRepo struct {
	deals map[string]*domain.ScheduledDeal
}

func newFakeDealRepo() *fakeDealRepo {
	return &fakeDealRepo{deals: make(map[string]*domain.ScheduledDeal)}
}

func (r *fakeDealRepo) Save(_ context.Context, deal *domain.ScheduledDeal) error {
	copied := *deal
	r.deals[deal.ID] = &copied
	return nil
}

func (r *fakeDealRepo) FindByID(_ context.Context, id string) (*domain.ScheduledDeal, error) {
	deal, ok := r.deals[id]
	if !ok {
		return nil, domain.ErrDealNotFound
	}
	copied := *deal
	return &copied, nil
}

func (r *fakeDealRepo) DueForPublish(_ context.Context, now time.Time, limit int) ([]*domain.ScheduledDeal, error) {
	var due []*domain.ScheduledDeal
	for _, deal := range r.deals {
		if deal.Status == domain.StatusPending && !deal.ScheduledFor.After(now) {
			copied := *deal
			due = append(due, &copied)
		}
		if len(due) >= limit {
			break
		}
	}
	return due, nil
}

func (r *fakeDealRepo) Claim(_ context.Context, id string, now time.Time) (bool, error) {
	deal, ok := r.deals[id]
	if !ok || deal.Status != domain.StatusPending {
		return false, nil
	}
	deal.Status = domain.StatusProcessing
	deal.UpdatedAt = now
	return true, nil
}

func (r *fakeDealRepo) ReleaseClaim(_ context.Context, id string, now time.Time) (bool, error) {
	deal, ok := r.deals[id]
	if !ok || deal.Status != domain.StatusProcessing {
		return false, nil
	}
	deal.Status = domain.StatusPending
	deal.UpdatedAt = now
	return true, nil
}

func (r *fakeDealRepo) CountInWindow(_ context.Context, channelID string, from, to time.Time) (int64, error) {
	var count int64
	for _, deal := range r.deals {
		active := deal.Status == domain.StatusPending || deal.Status == domain.StatusProcessing
		if deal.ChannelID == channelID && active &&
			!deal.ScheduledFor.Before(from) && deal.ScheduledFor.Before(to) {
			count++
		}
	}
	return count, nil
}

func (r *fakeDealRepo) CancelPendingByASIN(_ context.Context, channelID, asin, reason string, now time.Time) (int64, error) {
	var count int64
	for _, deal := range r.deals {
		if deal.ChannelID == channelID && deal.ASIN == asin && deal.Status == domain.StatusPending {
			deal.Cancel(now, reason)
			count++
		}
	}
	return count, nil
}

func (r *fakeDealRepo) ExpireStalePending(_ context.Context, cutoff, now time.Time) (int64, error) {
	var count int64
	for _, deal := range r.deals {
		if deal.Status == domain.StatusPending && deal.ScheduledFor.Before(cutoff) {
			deal.Expire(now)
			count++
		}
	}
	return count, nil
}

func (r *fakeDealRepo) ReclaimStaleProcessing(_ context.Context, cutoff, now time.Time) (int64, error) {
	var count int64
	for _, deal := range r.deals {
		if deal.Status == domain.StatusProcessing && deal.UpdatedAt.Before(cutoff) {
			deal.Status = domain.StatusPending
			deal.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

// fakeDirectory 返回固定的规则/频道，过滤永远放行。
type fakeDirectory struct {
	rule    *rulesdomain.PublishRule
	channel *rulesdomain.Channel
	qualify bool
}

func (d *fakeDirectory) RuleContext(context.Context, string) (*rulesdomain.PublishRule, *rulesdomain.Channel, error) {
	return d.rule, d.channel, nil
}

func (d *fakeDirectory) Qualify(context.Context, *rulesdomain.PublishRule, map[string]interface{}) bool {
	return d.qualify
}

func newTestService(repo *fakeDealRepo, dir *fakeDirectory, now time.Time) *SchedulerService {
	return NewSchedulerService(repo, dir, domain.DefaultSlotConfig(), clock.NewFixed(now), otel.Tracer("test"))
}

func smartDirectory() *fakeDirectory {
	return &fakeDirectory{
		rule: &rulesdomain.PublishRule{
			ID: "rule-1", ChannelID: "chan-1", Active: true,
			Mode: rulesdomain.ModeSmart, MaxRetries: 3,
		},
		channel: &rulesdomain.Channel{
			ID: "chan-1", UserID: "user-1", MaxDealsPerHour: 3,
			BestHours: []int{12, 18, 20},
		},
		qualify: true,
	}
}

func TestScheduleLightningDeal(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeDealRepo()
	svc := newTestService(repo, smartDirectory(), now)

	dealEnd := now.Add(10 * time.Minute)
	result, err := svc.Schedule(context.Background(), &ScheduleInput{
		RuleID:      "rule-1",
		ASIN:        "B00TEST",
		DealType:    "lightning",
		DealEndTime: &dealEnd,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != domain.ReasonLightning {
		t.Fatalf("reason = %s, want lightning_priority", result.Reason)
	}
	if result.ScheduledFor.After(dealEnd) {
		t.Fatalf("scheduledFor %v is after dealEnd %v", result.ScheduledFor, dealEnd)
	}
}

func TestScheduleUrgentWithoutNearExpiry(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeDealRepo()
	svc := newTestService(repo, smartDirectory(), now)

	// dealEnd 远在紧急延迟之后，走标准紧急路径
	dealEnd := now.Add(6 * time.Hour)
	result, err := svc.Schedule(context.Background(), &ScheduleInput{
		RuleID:      "rule-1",
		ASIN:        "B00TEST",
		DealType:    "lightning",
		DealEndTime: &dealEnd,
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg := domain.DefaultSlotConfig()
	if !result.ScheduledFor.Equal(now.Add(cfg.UrgentMaxDelay)) {
		t.Fatalf("scheduledFor = %v, want now+%v", result.ScheduledFor, cfg.UrgentMaxDelay)
	}
}

func TestScheduleUrgentIgnoresSlotCap(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeDealRepo()
	svc := newTestService(repo, smartDirectory(), now)

	// 把紧急目标时段塞满
	for i := 0; i < 5; i++ {
		repo.deals[string(rune('a'+i))] = &domain.ScheduledDeal{
			ID: string(rune('a' + i)), ChannelID: "chan-1",
			Status: domain.StatusPending, ScheduledFor: now.Add(10 * time.Minute),
		}
	}

	dealEnd := now.Add(5 * time.Minute)
	result, err := svc.Schedule(context.Background(), &ScheduleInput{
		RuleID:      "rule-1",
		ASIN:        "B00URGENT",
		DealType:    "lightning",
		DealEndTime: &dealEnd,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.ScheduledFor.After(dealEnd) {
		t.Fatalf("urgent deal scheduled at %v, after hard expiry %v", result.ScheduledFor, dealEnd)
	}
	if result.Reason != domain.ReasonLightning {
		t.Fatalf("reason = %s", result.Reason)
	}
}

func TestScheduleImmediateMode(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeDealRepo()
	dir := smartDirectory()
	dir.rule.Mode = rulesdomain.ModeImmediate
	svc := newTestService(repo, dir, now)

	result, err := svc.Schedule(context.Background(), &ScheduleInput{
		RuleID: "rule-1", ASIN: "B00TEST", DealType: "deal",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != domain.ReasonImmediate {
		t.Fatalf("reason = %s, want immediate", result.Reason)
	}
	cfg := domain.DefaultSlotConfig()
	if !result.ScheduledFor.Equal(now.Add(cfg.MinDelay)) {
		t.Fatalf("scheduledFor = %v, want now+%v", result.ScheduledFor, cfg.MinDelay)
	}
}

func TestScheduleRejectsUnqualifiedDeal(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeDealRepo()
	dir := smartDirectory()
	dir.qualify = false
	svc := newTestService(repo, dir, now)

	_, err := svc.Schedule(context.Background(), &ScheduleInput{RuleID: "rule-1", ASIN: "B00TEST"})
	if err != domain.ErrDealNotQualify {
		t.Fatalf("err = %v, want ErrDealNotQualify", err)
	}
	if len(repo.deals) != 0 {
		t.Fatal("rejected deal was persisted")
	}
}

func TestScheduleSmartRespectsSlotCapacity(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeDealRepo()
	svc := newTestService(repo, smartDirectory(), now)

	// 12 点档已有 3 条（达到频道上限）
	slot := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		id := string(rune('x' + i))
		repo.deals[id] = &domain.ScheduledDeal{
			ID: id, ChannelID: "chan-1",
			Status: domain.StatusPending, ScheduledFor: slot.Add(time.Duration(i) * time.Minute),
		}
	}

	result, err := svc.Schedule(context.Background(), &ScheduleInput{
		RuleID: "rule-1", ASIN: "B00NEW", DealType: "deal",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.ScheduledFor.Hour() == 12 && result.ScheduledFor.Day() == 20 {
		t.Fatalf("new deal scheduled into a full slot: %v", result.ScheduledFor)
	}
}

func TestClaimAndRelease(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeDealRepo()
	svc := newTestService(repo, smartDirectory(), now)

	repo.deals["d1"] = &domain.ScheduledDeal{ID: "d1", Status: domain.StatusPending}

	claimed, err := svc.ClaimForPublish(context.Background(), "d1")
	if err != nil || !claimed {
		t.Fatalf("first claim = (%v, %v), want (true, nil)", claimed, err)
	}
	claimed, err = svc.ClaimForPublish(context.Background(), "d1")
	if err != nil || claimed {
		t.Fatalf("second claim = (%v, %v), want (false, nil)", claimed, err)
	}

	released, err := svc.ReleaseClaim(context.Background(), "d1")
	if err != nil || !released {
		t.Fatalf("release = (%v, %v), want (true, nil)", released, err)
	}
	if repo.deals["d1"].Status != domain.StatusPending {
		t.Fatalf("status after release = %s", repo.deals["d1"].Status)
	}
}

func TestMarkAsFailedDrivesRetryThenTerminal(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeDealRepo()
	svc := newTestService(repo, smartDirectory(), now)

	repo.deals["d1"] = &domain.ScheduledDeal{ID: "d1", Status: domain.StatusProcessing, MaxRetries: 2}

	retried, err := svc.MarkAsFailed(context.Background(), "d1", "send failed")
	if err != nil || !retried {
		t.Fatalf("first failure = (%v, %v), want retry", retried, err)
	}

	repo.deals["d1"].Status = domain.StatusProcessing
	retried, err = svc.MarkAsFailed(context.Background(), "d1", "send failed again")
	if err != nil || retried {
		t.Fatalf("second failure = (%v, %v), want terminal", retried, err)
	}
	if repo.deals["d1"].Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", repo.deals["d1"].Status)
	}
}

func TestCleanupReclaimsOrphanedProcessingDeals(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeDealRepo()
	svc := newTestService(repo, smartDirectory(), now)

	// d1 在 1 小时前被认领后 worker 死掉；d2 刚被认领，还在正常处理中
	repo.deals["d1"] = &domain.ScheduledDeal{
		ID: "d1", Status: domain.StatusProcessing,
		ScheduledFor: now.Add(-90 * time.Minute), UpdatedAt: now.Add(-time.Hour),
	}
	repo.deals["d2"] = &domain.ScheduledDeal{
		ID: "d2", Status: domain.StatusProcessing,
		ScheduledFor: now.Add(-5 * time.Minute), UpdatedAt: now.Add(-time.Minute),
	}

	count, err := svc.CleanupStaleDeals(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("cleanup handled %d deals, want 1", count)
	}
	if repo.deals["d1"].Status != domain.StatusPending {
		t.Fatalf("orphaned deal status = %s, want pending", repo.deals["d1"].Status)
	}
	if repo.deals["d2"].Status != domain.StatusProcessing {
		t.Fatalf("in-flight deal was touched: %s", repo.deals["d2"].Status)
	}

	// 放回 pending 后下一轮可以重新认领
	claimed, err := svc.ClaimForPublish(context.Background(), "d1")
	if err != nil || !claimed {
		t.Fatalf("reclaimed deal not claimable: (%v, %v)", claimed, err)
	}
}

func TestCleanupExpiresAncientPendingDeals(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeDealRepo()
	svc := newTestService(repo, smartDirectory(), now)

	repo.deals["old"] = &domain.ScheduledDeal{
		ID: "old", Status: domain.StatusPending, ScheduledFor: now.Add(-48 * time.Hour),
	}
	repo.deals["due"] = &domain.ScheduledDeal{
		ID: "due", Status: domain.StatusPending, ScheduledFor: now.Add(-time.Hour),
	}

	count, err := svc.CleanupStaleDeals(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("cleanup handled %d deals, want 1", count)
	}
	if repo.deals["old"].Status != domain.StatusExpired {
		t.Fatalf("old deal status = %s, want expired", repo.deals["old"].Status)
	}
	if repo.deals["due"].Status != domain.StatusPending {
		t.Fatalf("recent deal was expired: %s", repo.deals["due"].Status)
	}
}

func TestCancelDealsByASIN(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeDealRepo()
	svc := newTestService(repo, smartDirectory(), now)

	repo.deals["d1"] = &domain.ScheduledDeal{ID: "d1", ChannelID: "chan-1", ASIN: "B00X", Status: domain.StatusPending}
	repo.deals["d2"] = &domain.ScheduledDeal{ID: "d2", ChannelID: "chan-1", ASIN: "B00X", Status: domain.StatusPublished}
	repo.deals["d3"] = &domain.ScheduledDeal{ID: "d3", ChannelID: "chan-1", ASIN: "B00Y", Status: domain.StatusPending}

	count, err := svc.CancelDealsByASIN(context.Background(), "chan-1", "B00X", "deal_withdrawn")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("cancelled = %d, want 1", count)
	}
	if repo.deals["d1"].Status != domain.StatusCancelled {
		t.Fatalf("d1 status = %s", repo.deals["d1"].Status)
	}
	if repo.deals["d2"].Status != domain.StatusPublished || repo.deals["d3"].Status != domain.StatusPending {
		t.Fatal("unrelated deals were touched")
	}
}
