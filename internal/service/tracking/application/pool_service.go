// internal/service/tracking/application/pool_service.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dealwire/internal/pkg/clock"
	"dealwire/internal/pkg/logger"
	"dealwire/internal/service/tracking/domain"
)

// HistoryInvalidator 在 deal_ended 释放时作废关联的发布历史记录。
// 由 publishing 服务的仓储实现，组装根负责接线。
type HistoryInvalidator interface {
	Invalidate(ctx context.Context, historyID string, at time.Time) error
}

// leaseAttempts 是一次 Lease 调用里 CAS 竞争失败后的换候选重试次数。
const leaseAttempts = 3

// PoolService 管理每个用户的跟踪标识池。
//
// 所有操作在常规路径上不抛错：调用方（发布流水线）必须能够在"拿不到
// 标识"时继续工作，所以存储层错误只记日志并当作失败返回。
type PoolService struct {
	repo        domain.Repository
	invalidator HistoryInvalidator
	leaseTTL    time.Duration
	clock       clock.Clock
	tracer      trace.Tracer
}

func NewPoolService(repo domain.Repository, invalidator HistoryInvalidator, leaseTTL time.Duration, clk clock.Clock, tracer trace.Tracer) *PoolService {
	if leaseTTL <= 0 {
		leaseTTL = 24 * time.Hour
	}
	return &PoolService{
		repo:        repo,
		invalidator: invalidator,
		leaseTTL:    leaseTTL,
		clock:       clk,
		tracer:      tracer,
	}
}

// Lease 按 FIFO 公平性租用一个标识，关联到 contextID（通常是 dealID）。
// 池子为空返回 (nil, false)——这不是错误，调用方按"无跟踪标识"继续。
func (s *PoolService) Lease(ctx context.Context, userID, contextID string) (*domain.Lease, bool) {
	ctx, span := s.tracer.Start(ctx, "pool.Lease")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	now := s.clock.Now()
	for attempt := 0; attempt < leaseAttempts; attempt++ {
		record, err := s.repo.NextAvailable(ctx, userID)
		if err != nil {
			span.RecordError(err)
			logger.Ctx(ctx).Error().Err(err).Str("user_id", userID).Msg("pool lookup failed")
			return nil, false
		}
		if record == nil {
			span.AddEvent("pool empty")
			return nil, false
		}

		leaseID := uuid.New().String()
		expiresAt := now.Add(s.leaseTTL)
		ok, err := s.repo.AcquireLease(ctx, record.ID, leaseID, contextID, now, expiresAt)
		if err != nil {
			span.RecordError(err)
			logger.Ctx(ctx).Error().Err(err).Str("record_id", record.ID).Msg("lease acquire failed")
			return nil, false
		}
		if !ok {
			// CAS 竞争失败：换下一个候选再试
			continue
		}

		span.SetAttributes(attribute.String("lease.id", leaseID))
		return &domain.Lease{
			LeaseID:    leaseID,
			RecordID:   record.ID,
			Identifier: record.Identifier,
			ExpiresAt:  expiresAt,
		}, true
	}

	span.AddEvent("lease contention exhausted")
	return nil, false
}

// Release 释放一个租约。重复释放或租约不存在返回 false。
// reason 为 deal_ended 时，先作废关联的发布历史再清理租约字段。
func (s *PoolService) Release(ctx context.Context, leaseID string, reason domain.ReleaseReason) bool {
	ctx, span := s.tracer.Start(ctx, "pool.Release")
	defer span.End()
	span.SetAttributes(
		attribute.String("lease.id", leaseID),
		attribute.String("release.reason", string(reason)),
	)

	record, err := s.repo.FindByLeaseID(ctx, leaseID)
	if err != nil {
		if err != domain.ErrRecordNotFound {
			span.RecordError(err)
			logger.Ctx(ctx).Error().Err(err).Str("lease_id", leaseID).Msg("release lookup failed")
		}
		return false
	}

	now := s.clock.Now()
	if reason == domain.ReleaseDealEnded && record.DealHistoryID != "" && s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, record.DealHistoryID, now); err != nil {
			// 作废失败不阻止释放，标识还回池子优先
			span.RecordError(err)
			logger.Ctx(ctx).Error().Err(err).Str("history_id", record.DealHistoryID).Msg("history invalidation failed")
		}
	}

	ok, err := s.repo.ClearLease(ctx, leaseID, now)
	if err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).Str("lease_id", leaseID).Msg("lease clear failed")
		return false
	}
	return ok
}

// LinkHistory 把租约关联到发布历史记录（发布成功后由流水线调用）。
func (s *PoolService) LinkHistory(ctx context.Context, leaseID, historyID string) bool {
	if err := s.repo.LinkHistory(ctx, leaseID, historyID); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("lease_id", leaseID).Msg("lease link failed")
		return false
	}
	return true
}

// SweepExpired 释放所有租约已过期的记录，返回释放数量。
// 由独立于发布周期的定时任务驱动。
func (s *PoolService) SweepExpired(ctx context.Context) int {
	ctx, span := s.tracer.Start(ctx, "pool.SweepExpired")
	defer span.End()

	expired, err := s.repo.FindExpired(ctx, s.clock.Now())
	if err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).Msg("expired lease scan failed")
		return 0
	}

	released := 0
	for _, record := range expired {
		if s.Release(ctx, record.LeaseID, domain.ReleaseExpired) {
			released++
		}
	}
	if released > 0 {
		logger.Ctx(ctx).Info().Int("released", released).Msg("expired leases reclaimed")
	}
	span.SetAttributes(attribute.Int("leases.released", released))
	return released
}

// Add 向用户的池子贡献一个标识，返回记录 ID。
func (s *PoolService) Add(ctx context.Context, userID, identifier string) (string, error) {
	now := s.clock.Now()
	record := &domain.Record{
		ID:         uuid.New().String(),
		UserID:     userID,
		Identifier: identifier,
		Status:     domain.StatusAvailable,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		return "", err
	}
	return record.ID, nil
}

// Remove 从池子撤回一个标识。in_use 的记录拒绝删除，返回 false。
func (s *PoolService) Remove(ctx context.Context, recordID string) bool {
	ok, err := s.repo.Delete(ctx, recordID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("record_id", recordID).Msg("pool remove failed")
		return false
	}
	return ok
}

// Stats 返回用户池子的概览。
func (s *PoolService) Stats(ctx context.Context, userID string) (*domain.Stats, error) {
	return s.repo.Stats(ctx, userID)
}
