// internal/service/catalog/application/cache_service.go
package application

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dealwire/internal/pkg/clock"
	"dealwire/internal/pkg/httpclient"
	"dealwire/internal/pkg/logger"
	"dealwire/internal/service/catalog/domain"
	"dealwire/internal/service/catalog/port"
)

// SleepFn 可注入的退避等待，测试里换成记录调用的假实现。
type SleepFn func(ctx context.Context, d time.Duration)

func defaultSleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// CacheService 实现商品数据的 stale-while-revalidate 读取。
//
// 命中且仍然新鲜：直接返回。命中但进入 expiring/critical/expired 档：
// 把 ASIN 丢进后台刷新队列，立即返回当前（可能过期的）记录。
// 未命中：同步拉取并落库，阻塞调用方——此时没有可退的旧数据。
type CacheService struct {
	products domain.ProductRepository
	upstream port.UpstreamAPI
	budget   port.BudgetGate
	queue    *RefreshQueue
	cfg      domain.FreshnessConfig

	maxRetries int
	clock      clock.Clock
	sleep      SleepFn
	tracer     trace.Tracer
}

func NewCacheService(
	products domain.ProductRepository,
	upstream port.UpstreamAPI,
	budget port.BudgetGate,
	queue *RefreshQueue,
	cfg domain.FreshnessConfig,
	maxRetries int,
	clk clock.Clock,
	tracer trace.Tracer,
) *CacheService {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &CacheService{
		products:   products,
		upstream:   upstream,
		budget:     budget,
		queue:      queue,
		cfg:        cfg,
		maxRetries: maxRetries,
		clock:      clk,
		sleep:      defaultSleep,
		tracer:     tracer,
	}
}

// SetSleep 替换退避等待函数，仅测试使用。
func (s *CacheService) SetSleep(fn SleepFn) { s.sleep = fn }

// Get 返回商品数据，永远立即返回（不等后台刷新）。
func (s *CacheService) Get(ctx context.Context, userID, asin string) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Get")
	defer span.End()
	span.SetAttributes(attribute.String("product.asin", asin))

	now := s.clock.Now()
	cached, err := s.products.FindByASIN(ctx, asin)
	if err != nil && err != domain.ErrProductNotFound {
		return nil, err
	}

	if cached == nil {
		// 首次读取：没有旧数据可退，同步拉取
		span.AddEvent("cache miss")
		return s.Refresh(ctx, userID, asin)
	}

	freshness := cached.Freshness(now, s.cfg)
	span.SetAttributes(attribute.String("product.freshness", string(freshness)))
	if cached.NeedsRefresh(now, s.cfg) {
		s.queue.Enqueue(ctx, refreshJob{UserID: userID, ASIN: asin})
	}
	return cached, nil
}

// Refresh 同步刷新一个 ASIN：先过配额门禁，再带退避拉上游，成功后落库。
func (s *CacheService) Refresh(ctx context.Context, userID, asin string) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Refresh")
	defer span.End()
	span.SetAttributes(attribute.String("product.asin", asin))

	if err := s.budget.Spend(ctx, userID, 1); err != nil {
		span.RecordError(err)
		return nil, err
	}

	fetched, err := s.fetchWithRetry(ctx, asin)
	if err != nil {
		span.RecordError(err)
		// 配额只为成功的刷新买单：拉取失败退还这次扣减，
		// 否则上游持续故障会把整月配额烧光而一无所获
		if rErr := s.budget.Refund(ctx, userID, 1); rErr != nil {
			logger.Ctx(ctx).Warn().Err(rErr).Str("asin", asin).Msg("budget refund failed")
		}
		return nil, err
	}

	now := s.clock.Now()
	fetched.LastCheckedAt = now
	fetched.TTLMinutes = s.cfg.TTLMinutes
	fetched.UpdatedAt = now
	if err := s.products.Upsert(ctx, fetched); err != nil {
		return nil, errors.Wrap(err, "upsert product cache")
	}
	logger.Ctx(ctx).Info().Str("asin", asin).Msg("product cache refreshed")
	return fetched, nil
}

// fetchWithRetry 对瞬态失败做 2^attempt 秒的指数退避，401 永不重试。
func (s *CacheService) fetchWithRetry(ctx context.Context, asin string) (*domain.Product, error) {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			s.sleep(ctx, backoff)
		}

		product, err := s.upstream.FetchProduct(ctx, asin)
		if err == nil {
			return product, nil
		}
		lastErr = err

		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == 401 {
			// 认证失败重试也没用，直接放弃
			return nil, errors.Wrap(err, "upstream authentication failed")
		}
		logger.Ctx(ctx).Warn().Err(err).Str("asin", asin).Int("attempt", attempt+1).Msg("upstream fetch failed")
	}
	return nil, errors.Wrapf(lastErr, "upstream fetch exhausted %d attempts", s.maxRetries)
}
