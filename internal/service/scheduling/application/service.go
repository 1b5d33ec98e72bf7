// internal/service/scheduling/application/service.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dealwire/internal/pkg/clock"
	"dealwire/internal/pkg/logger"
	rulesdomain "dealwire/internal/service/rules/domain"
	"dealwire/internal/service/scheduling/domain"
)

// RuleDirectory 是调度器需要的规则目录能力（只读）。
type RuleDirectory interface {
	RuleContext(ctx context.Context, ruleID string) (*rulesdomain.PublishRule, *rulesdomain.Channel, error)
	Qualify(ctx context.Context, rule *rulesdomain.PublishRule, facts map[string]interface{}) bool
}

// SchedulerService 负责把合格的 deal 变成带具体发布时间的调度任务，
// 并暴露发布 worker 驱动状态机所需的全部操作。
type SchedulerService struct {
	repo    domain.ScheduledDealRepository
	rules   RuleDirectory
	planner *SlotPlanner
	clock   clock.Clock
	cfg     domain.SlotConfig
	tracer  trace.Tracer
}

func NewSchedulerService(repo domain.ScheduledDealRepository, rules RuleDirectory, cfg domain.SlotConfig, clk clock.Clock, tracer trace.Tracer) *SchedulerService {
	return &SchedulerService{
		repo:    repo,
		rules:   rules,
		planner: NewSlotPlanner(cfg),
		clock:   clk,
		cfg:     cfg,
		tracer:  tracer,
	}
}

// Schedule 为候选 deal 计算发布时间并落一条 pending 任务。
func (s *SchedulerService) Schedule(ctx context.Context, input *ScheduleInput) (*ScheduleResult, error) {
	ctx, span := s.tracer.Start(ctx, "scheduler.Schedule")
	defer span.End()
	span.SetAttributes(
		attribute.String("deal.asin", input.ASIN),
		attribute.String("deal.type", input.DealType),
		attribute.String("rule.id", input.RuleID),
	)

	rule, channel, err := s.rules.RuleContext(ctx, input.RuleID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !s.rules.Qualify(ctx, rule, input.Facts()) {
		span.AddEvent("deal rejected by rule filter")
		return nil, domain.ErrDealNotQualify
	}

	now := s.clock.Now()
	priority := domain.PriorityFor(input.DealType)

	scheduledFor, reason, err := s.resolveTime(ctx, now, rule.Mode, priority, input.DealEndTime, channel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "slot planning failed")
		return nil, err
	}

	maxRetries := rule.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	deal := &domain.ScheduledDeal{
		ID:           uuid.New().String(),
		ChannelID:    channel.ID,
		RuleID:       rule.ID,
		ASIN:         input.ASIN,
		Title:        input.Title,
		Price:        input.Price,
		OldPrice:     input.OldPrice,
		Discount:     input.Discount,
		Category:     input.Category,
		DealType:     input.DealType,
		Score:        input.Score,
		ScheduledFor: scheduledFor,
		Status:       domain.StatusPending,
		Reason:       reason,
		DealEndTime:  input.DealEndTime,
		MaxRetries:   maxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Save(ctx, deal); err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Str("deal_id", deal.ID).
		Str("asin", deal.ASIN).
		Time("scheduled_for", scheduledFor).
		Str("reason", reason).
		Msg("deal scheduled")

	return &ScheduleResult{DealID: deal.ID, ScheduledFor: scheduledFor, Reason: reason}, nil
}

// resolveTime 实现时间决策：immediate 模式 > 紧急通道 > 智能排期。
func (s *SchedulerService) resolveTime(ctx context.Context, now time.Time, mode rulesdomain.PublishMode, priority domain.Priority, dealEnd *time.Time, channel *rulesdomain.Channel) (time.Time, string, error) {
	if mode == rulesdomain.ModeImmediate {
		return now.Add(s.cfg.MinDelay), domain.ReasonImmediate, nil
	}

	if priority == domain.PriorityCritical {
		// 紧急通道无视每小时容量上限：硬过期比公平性优先
		at := now.Add(s.cfg.UrgentMaxDelay)
		if dealEnd != nil && dealEnd.Before(at) {
			at = now.Add(s.cfg.NearImmediateDelay)
		}
		return at, domain.ReasonLightning, nil
	}

	occupancy := func(ctx context.Context, slotStart time.Time) (int64, error) {
		return s.repo.CountInWindow(ctx, channel.ID, slotStart, slotStart.Add(time.Hour))
	}
	return s.planner.PlanSmart(ctx, now, channel.BestHours, channel.MaxDealsPerHour, occupancy)
}

// DealsReadyToPublish 返回到期的 pending 任务及其规则/频道上下文，按时间升序。
func (s *SchedulerService) DealsReadyToPublish(ctx context.Context, limit int) ([]*ReadyDeal, error) {
	ctx, span := s.tracer.Start(ctx, "scheduler.DealsReadyToPublish")
	defer span.End()

	deals, err := s.repo.DueForPublish(ctx, s.clock.Now(), limit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ready := make([]*ReadyDeal, 0, len(deals))
	for _, deal := range deals {
		rule, channel, err := s.rules.RuleContext(ctx, deal.RuleID)
		if err != nil {
			// 规则上下文缺失不终止整批，留给下次周期（或清理任务）处理
			logger.Ctx(ctx).Warn().Err(err).Str("deal_id", deal.ID).Msg("missing rule context for due deal")
			continue
		}
		ready = append(ready, &ReadyDeal{Deal: deal, Rule: rule, Channel: channel})
	}
	span.SetAttributes(attribute.Int("deals.ready", len(ready)))
	return ready, nil
}

// ClaimForPublish 原子认领任务（pending → processing）。
func (s *SchedulerService) ClaimForPublish(ctx context.Context, dealID string) (bool, error) {
	return s.repo.Claim(ctx, dealID, s.clock.Now())
}

// ReleaseClaim 把 processing 的任务放回 pending。
func (s *SchedulerService) ReleaseClaim(ctx context.Context, dealID string) (bool, error) {
	return s.repo.ReleaseClaim(ctx, dealID, s.clock.Now())
}

// MarkAsPublished 在投递成功后终态化任务。
func (s *SchedulerService) MarkAsPublished(ctx context.Context, dealID, externalMessageID, trackingIdentifier string) error {
	deal, err := s.repo.FindByID(ctx, dealID)
	if err != nil {
		return err
	}
	if err := deal.MarkPublished(s.clock.Now(), externalMessageID, trackingIdentifier); err != nil {
		return err
	}
	return s.repo.Save(ctx, deal)
}

// MarkAsFailed 记录一次失败。返回是否安排了重试。
func (s *SchedulerService) MarkAsFailed(ctx context.Context, dealID, errMsg string) (bool, error) {
	deal, err := s.repo.FindByID(ctx, dealID)
	if err != nil {
		return false, err
	}
	retried := deal.RegisterFailure(s.clock.Now(), errMsg, s.cfg.RetryDelay)
	if err := s.repo.Save(ctx, deal); err != nil {
		return false, err
	}
	if !retried {
		logger.Ctx(ctx).Error().
			Str("deal_id", dealID).
			Str("last_error", errMsg).
			Msg("deal permanently failed after retries")
	}
	return retried, nil
}

// CancelScheduledDeal 取消单个任务（管理操作或配置类失败）。
func (s *SchedulerService) CancelScheduledDeal(ctx context.Context, dealID, reason string) error {
	deal, err := s.repo.FindByID(ctx, dealID)
	if err != nil {
		return err
	}
	if err := deal.Cancel(s.clock.Now(), reason); err != nil {
		return err
	}
	return s.repo.Save(ctx, deal)
}

// CancelDealsByASIN 批量取消某频道某商品的 pending 任务（deal 被撤回时）。
func (s *SchedulerService) CancelDealsByASIN(ctx context.Context, channelID, asin, reason string) (int64, error) {
	return s.repo.CancelPendingByASIN(ctx, channelID, asin, reason, s.clock.Now())
}

// CleanupStaleDeals 先把孤儿 processing 任务放回 pending，再把滞留超过
// 阈值的 pending 任务终态化为 expired。返回两步处理的总数。
func (s *SchedulerService) CleanupStaleDeals(ctx context.Context) (int64, error) {
	now := s.clock.Now()

	reclaimed, err := s.repo.ReclaimStaleProcessing(ctx, now.Add(-s.cfg.ReclaimAfter), now)
	if err != nil {
		return 0, err
	}
	if reclaimed > 0 {
		logger.Ctx(ctx).Warn().Int64("count", reclaimed).Msg("reclaimed orphaned processing deals")
	}

	expired, err := s.repo.ExpireStalePending(ctx, now.Add(-s.cfg.StaleAfter), now)
	if err != nil {
		return reclaimed, err
	}
	if expired > 0 {
		logger.Ctx(ctx).Warn().Int64("count", expired).Msg("expired stale pending deals")
	}
	return reclaimed + expired, nil
}
