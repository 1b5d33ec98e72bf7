// internal/service/publishing/application/worker.go
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dealwire/internal/pkg/clock"
	"dealwire/internal/pkg/logger"
	"dealwire/internal/service/publishing/application/pipeline"
	"dealwire/internal/service/publishing/domain"
	"dealwire/internal/service/publishing/port"
	schedapp "dealwire/internal/service/scheduling/application"
)

// Scheduler 是 worker 对调度服务的依赖面。
type Scheduler interface {
	DealsReadyToPublish(ctx context.Context, limit int) ([]*schedapp.ReadyDeal, error)
	ClaimForPublish(ctx context.Context, dealID string) (bool, error)
	MarkAsPublished(ctx context.Context, dealID, externalMessageID, trackingIdentifier string) error
	MarkAsFailed(ctx context.Context, dealID, errMsg string) (retried bool, err error)
	CancelScheduledDeal(ctx context.Context, dealID, reason string) error
}

// RuleRecorder 在发布成功后累加规则的发布计数。
// 计数是观测用途，实现内部吞掉存储错误。
type RuleRecorder interface {
	RecordPublication(ctx context.Context, ruleID string, at time.Time)
}

// PublicationEvent 推送给实时订阅方（websocket feed）。
type PublicationEvent struct {
	DealID            string    `json:"dealId"`
	ChannelID         string    `json:"channelId"`
	UserID            string    `json:"userId"`
	ASIN              string    `json:"asin"`
	Title             string    `json:"title"`
	ExternalMessageID string    `json:"externalMessageId"`
	PublishedAt       time.Time `json:"publishedAt"`
}

// EventSink 接收发布成功事件。实现必须非阻塞。
type EventSink interface {
	PublicationRecorded(event PublicationEvent)
}

// CycleStats 是一轮 worker 的聚合计数，任何任务失败都不会逃出批次循环。
type CycleStats struct {
	Processed int
	Published int
	Cancelled int
	Retried   int
	Failed    int
}

// Worker 驱动发布状态机：pending → (published | cancelled |
// failed-retry → pending | failed-terminal)。
//
// 任务在批次内严格串行处理，两次投递之间插入固定延迟——这是对下游
// 投递 API 限速的刻意吞吐上限，不是疏忽。
type Worker struct {
	scheduler   Scheduler
	rules       RuleRecorder
	history     domain.HistoryRepository
	pool        port.TrackingPool
	credentials port.CredentialStore
	copyGen     port.CopyGenerator
	delivery    port.DeliveryChannel

	batchSize     int
	interJobDelay time.Duration
	clock         clock.Clock
	tracer        trace.Tracer
	sink          EventSink // 可为 nil
}

func NewWorker(
	scheduler Scheduler,
	rules RuleRecorder,
	history domain.HistoryRepository,
	pool port.TrackingPool,
	credentials port.CredentialStore,
	copyGen port.CopyGenerator,
	delivery port.DeliveryChannel,
	batchSize int,
	interJobDelay time.Duration,
	clk clock.Clock,
	tracer trace.Tracer,
) *Worker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Worker{
		scheduler:     scheduler,
		rules:         rules,
		history:       history,
		pool:          pool,
		credentials:   credentials,
		copyGen:       copyGen,
		delivery:      delivery,
		batchSize:     batchSize,
		interJobDelay: interJobDelay,
		clock:         clk,
		tracer:        tracer,
	}
}

// SetEventSink 挂接实时事件订阅方（可选）。
func (w *Worker) SetEventSink(sink EventSink) { w.sink = sink }

// RunCycle 执行一轮：取到期批次，逐个认领并走发布链。
func (w *Worker) RunCycle(ctx context.Context) (*CycleStats, error) {
	ctx, span := w.tracer.Start(ctx, "worker.RunCycle")
	defer span.End()
	started := time.Now()
	defer func() { cycleDuration.Observe(time.Since(started).Seconds()) }()

	stats := &CycleStats{}
	ready, err := w.scheduler.DealsReadyToPublish(ctx, w.batchSize)
	if err != nil {
		span.RecordError(err)
		return stats, err
	}
	if len(ready) == 0 {
		return stats, nil
	}

	for i, rd := range ready {
		if i > 0 && w.interJobDelay > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(w.interJobDelay):
			}
		}

		// 原子认领关闭两轮 worker 重叠的窗口：抢不到说明别人已经在处理
		claimed, err := w.scheduler.ClaimForPublish(ctx, rd.Deal.ID)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("deal_id", rd.Deal.ID).Msg("claim failed")
			continue
		}
		if !claimed {
			continue
		}

		stats.Processed++
		jobsProcessed.Inc()
		w.processOne(ctx, rd, stats)
	}

	span.SetAttributes(
		attribute.Int("cycle.processed", stats.Processed),
		attribute.Int("cycle.published", stats.Published),
		attribute.Int("cycle.failed", stats.Failed),
	)
	logger.Ctx(ctx).Info().
		Int("processed", stats.Processed).
		Int("published", stats.Published).
		Int("cancelled", stats.Cancelled).
		Int("retried", stats.Retried).
		Int("failed", stats.Failed).
		Msg("publish cycle finished")
	return stats, nil
}

// processOne 驱动单个任务走完发布链并按结果收尾。
// 任何意外 panic 都被兜住转成普通失败，单个任务绝不拖垮整批。
func (w *Worker) processOne(ctx context.Context, rd *schedapp.ReadyDeal, stats *CycleStats) {
	pubCtx := &pipeline.PublishContext{
		Ctx:         ctx,
		Deal:        rd.Deal,
		Rule:        rd.Rule,
		Channel:     rd.Channel,
		Tracer:      w.tracer,
		Credentials: w.credentials,
		Pool:        w.pool,
		Copy:        w.copyGen,
		Delivery:    w.delivery,
	}

	err := w.runChain(pubCtx)

	var cancelErr *pipeline.CancelError
	switch {
	case err == nil:
		w.recordSuccess(ctx, rd, pubCtx, stats)
	case errors.As(err, &cancelErr):
		if cErr := w.scheduler.CancelScheduledDeal(ctx, rd.Deal.ID, cancelErr.Reason); cErr != nil {
			logger.Ctx(ctx).Error().Err(cErr).Str("deal_id", rd.Deal.ID).Msg("cancel failed")
		}
		stats.Cancelled++
		jobsCancelled.WithLabelValues(cancelErr.Reason).Inc()
		logger.Ctx(ctx).Info().Str("deal_id", rd.Deal.ID).Str("reason", cancelErr.Reason).Msg("deal cancelled at preflight")
	default:
		// 失败路径不在这里释放租约：到期清扫负责回收
		retried, mErr := w.scheduler.MarkAsFailed(ctx, rd.Deal.ID, err.Error())
		if mErr != nil {
			logger.Ctx(ctx).Error().Err(mErr).Str("deal_id", rd.Deal.ID).Msg("mark-as-failed itself failed")
			stats.Failed++
			jobsFailed.Inc()
			return
		}
		if retried {
			stats.Retried++
			jobsRetried.Inc()
		} else {
			stats.Failed++
			jobsFailed.Inc()
		}
		logger.Ctx(ctx).Warn().Err(err).Str("deal_id", rd.Deal.ID).Bool("retried", retried).Msg("publish failed")
	}
}

// runChain 执行发布链并把 panic 转成错误。
func (w *Worker) runChain(pubCtx *pipeline.PublishContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publish pipeline panic: %v", r)
		}
	}()
	return pipeline.NewChain().Handle(pubCtx)
}

// recordSuccess 落历史、终态化任务、回链租约、累加规则计数。
func (w *Worker) recordSuccess(ctx context.Context, rd *schedapp.ReadyDeal, pubCtx *pipeline.PublishContext, stats *CycleStats) {
	now := w.clock.Now()
	trackingID := ""
	if pubCtx.Lease != nil {
		trackingID = pubCtx.Lease.Identifier
	}

	history := &domain.PublicationHistory{
		ID:                 uuid.New().String(),
		DealID:             rd.Deal.ID,
		ChannelID:          rd.Channel.ID,
		RuleID:             rd.Rule.ID,
		ASIN:               rd.Deal.ASIN,
		Title:              rd.Deal.Title,
		Price:              rd.Deal.Price,
		OldPrice:           rd.Deal.OldPrice,
		Discount:           rd.Deal.Discount,
		Score:              rd.Deal.Score,
		MessageText:        pubCtx.MessageText,
		CopySource:         pubCtx.CopySource,
		TrackingIdentifier: trackingID,
		OutboundLink:       pubCtx.OutboundLink,
		ExternalMessageID:  pubCtx.ExternalMessageID,
		PublishedAt:        now,
		CreatedAt:          now,
	}
	if err := w.history.Insert(ctx, history); err != nil {
		// 投递已经发生，历史写失败只能记日志，不能回滚外部消息
		logger.Ctx(ctx).Error().Err(err).Str("deal_id", rd.Deal.ID).Msg("history insert failed after delivery")
	}

	if err := w.scheduler.MarkAsPublished(ctx, rd.Deal.ID, pubCtx.ExternalMessageID, trackingID); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("deal_id", rd.Deal.ID).Msg("mark-as-published failed")
	}

	if pubCtx.Lease != nil {
		w.pool.Link(ctx, pubCtx.Lease.LeaseID, history.ID)
	}

	w.rules.RecordPublication(ctx, rd.Rule.ID, now)

	stats.Published++
	jobsPublished.Inc()

	if w.sink != nil {
		w.sink.PublicationRecorded(PublicationEvent{
			DealID:            rd.Deal.ID,
			ChannelID:         rd.Channel.ID,
			UserID:            rd.Channel.UserID,
			ASIN:              rd.Deal.ASIN,
			Title:             rd.Deal.Title,
			ExternalMessageID: pubCtx.ExternalMessageID,
			PublishedAt:       now,
		})
	}
	logger.Ctx(ctx).Info().
		Str("deal_id", rd.Deal.ID).
		Str("external_message_id", pubCtx.ExternalMessageID).
		Str("copy_source", pubCtx.CopySource).
		Msg("deal published")
}
