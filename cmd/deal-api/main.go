// cmd/deal-api/main.go
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"dealwire/internal/pkg/bootstrap"
	"dealwire/internal/pkg/clock"
	"dealwire/internal/pkg/httpclient"
	"dealwire/internal/pkg/logger"
	catalogapp "dealwire/internal/service/catalog/application"
	catalogdomain "dealwire/internal/service/catalog/domain"
	cataloginfra "dealwire/internal/service/catalog/infrastructure"
	catalogiface "dealwire/internal/service/catalog/interfaces"
	publishinginfra "dealwire/internal/service/publishing/infrastructure"
	rulesapp "dealwire/internal/service/rules/application"
	rulesinfra "dealwire/internal/service/rules/infrastructure"
	schedulingapp "dealwire/internal/service/scheduling/application"
	schedulingdomain "dealwire/internal/service/scheduling/domain"
	schedulinginfra "dealwire/internal/service/scheduling/infrastructure"
	schedulingiface "dealwire/internal/service/scheduling/interfaces"
	trackingapp "dealwire/internal/service/tracking/application"
	trackinginfra "dealwire/internal/service/tracking/infrastructure"
	trackingiface "dealwire/internal/service/tracking/interfaces"
)

const serviceName = "deal-api"

func main() {
	logger.Init(serviceName)
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db := bootstrap.MustOpenMySQL()
	if err := db.AutoMigrate(
		&rulesinfra.ChannelModel{},
		&rulesinfra.PublishRuleModel{},
		&schedulinginfra.ScheduledDealModel{},
		&trackinginfra.TrackingIdentifierModel{},
		&cataloginfra.ProductCacheModel{},
		&cataloginfra.MonthlyBudgetModel{},
		&publishinginfra.PublicationHistoryModel{},
	); err != nil {
		logger.L().Fatal().Err(err).Msg("auto-migration failed")
	}
	redisClient := bootstrap.MustOpenRedis()

	tracer := otel.Tracer(serviceName)
	clk := clock.NewSystem()

	// 规则目录
	qualifier, err := rulesinfra.NewCELQualifier()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to build rule qualifier")
	}
	directory := rulesapp.NewDirectory(
		rulesinfra.NewGormRuleRepository(db),
		rulesinfra.NewGormChannelRepository(db),
		qualifier,
		tracer,
	)

	// 调度服务
	slotCfg := schedulingdomain.DefaultSlotConfig()
	if cfg.App.Scheduling.MaxDealsPerHour > 0 {
		slotCfg.MaxPerHourDefault = cfg.App.Scheduling.MaxDealsPerHour
	}
	if cfg.App.Scheduling.StaleAfterHours > 0 {
		slotCfg.StaleAfter = time.Duration(cfg.App.Scheduling.StaleAfterHours) * time.Hour
	}
	scheduler := schedulingapp.NewSchedulerService(
		schedulinginfra.NewGormDealRepository(db),
		directory,
		slotCfg,
		clk,
		tracer,
	)

	// 跟踪标识池（历史作废由发布侧仓储实现）
	historyRepo := publishinginfra.NewGormHistoryRepository(db)
	pool := trackingapp.NewPoolService(
		trackinginfra.NewGormPoolRepository(db),
		historyRepo,
		time.Duration(cfg.App.Tracking.LeaseTTLHours)*time.Hour,
		clk,
		tracer,
	)

	// 商品缓存
	budgetGate, err := cataloginfra.NewRedisBudgetGate(
		redisClient,
		cataloginfra.NewGormBudgetRepository(db),
		cfg.App.Catalog.MonthlyTokenLimit,
		clk,
	)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to build budget gate")
	}
	freshCfg := catalogdomain.DefaultFreshnessConfig()
	if cfg.App.Catalog.TTLMinutes > 0 {
		freshCfg.TTLMinutes = cfg.App.Catalog.TTLMinutes
	}
	queue := catalogapp.NewRefreshQueue(cfg.App.Catalog.QueueSize, time.Duration(cfg.App.Catalog.PacingMS)*time.Millisecond)
	cache := catalogapp.NewCacheService(
		cataloginfra.NewGormProductRepository(db),
		cataloginfra.NewUpstreamHTTPAdapter(httpclient.NewClient(tracer), cfg.App.Catalog.UpstreamBaseURL, cfg.App.Catalog.UpstreamAPIKey),
		budgetGate,
		queue,
		freshCfg,
		cfg.App.Catalog.MaxRetries,
		clk,
		tracer,
	)
	queue.Bind(func(ctx context.Context, userID, asin string) error {
		_, err := cache.Refresh(ctx, userID, asin)
		return err
	})

	queueCtx, cancelQueue := context.WithCancel(context.Background())
	queue.Start(queueCtx)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8080,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			schedulingiface.NewSchedulerHandler(scheduler).RegisterRoutes(appCtx.Mux)
			trackingiface.NewPoolHandler(pool).RegisterRoutes(appCtx.Mux)
			catalogiface.NewCatalogHandler(cache).RegisterRoutes(appCtx.Mux)
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		},
		OnShutdown: func(ctx context.Context) {
			cancelQueue()
			redisClient.Close()
		},
	})
}
