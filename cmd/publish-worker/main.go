// cmd/publish-worker/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"dealwire/internal/pkg/bootstrap"
	"dealwire/internal/pkg/clock"
	"dealwire/internal/pkg/httpclient"
	"dealwire/internal/pkg/logger"
	"dealwire/internal/pkg/mq"
	publishingapp "dealwire/internal/service/publishing/application"
	publishinginfra "dealwire/internal/service/publishing/infrastructure"
	publishingiface "dealwire/internal/service/publishing/interfaces"
	"dealwire/internal/service/publishing/port"
	rulesapp "dealwire/internal/service/rules/application"
	rulesinfra "dealwire/internal/service/rules/infrastructure"
	schedulingapp "dealwire/internal/service/scheduling/application"
	schedulingdomain "dealwire/internal/service/scheduling/domain"
	schedulinginfra "dealwire/internal/service/scheduling/infrastructure"
	trackingapp "dealwire/internal/service/tracking/application"
	trackinginfra "dealwire/internal/service/tracking/infrastructure"
	"dealwire/internal/tracing"
	"dealwire/internal/zookeeper"
)

const (
	serviceName   = "publish-worker"
	metricsPort   = ":8090"
	sweepInterval = 5 * time.Minute
)

func main() {
	logger.Init(serviceName)
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to initialize tracer provider")
	}
	tracer := otel.Tracer(serviceName)
	clk := clock.NewSystem()

	db := bootstrap.MustOpenMySQL()

	// 规则目录与调度服务（与 deal-api 共用同一套仓储）
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
	slotCfg := schedulingdomain.DefaultSlotConfig()
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

	historyRepo := publishinginfra.NewGormHistoryRepository(db)
	pool := trackingapp.NewPoolService(
		trackinginfra.NewGormPoolRepository(db),
		historyRepo,
		time.Duration(cfg.App.Tracking.LeaseTTLHours)*time.Hour,
		clk,
		tracer,
	)

	// 投递适配器按部署形态选择：直连 Bot API 或经 Kafka 给投递网关
	var delivery port.DeliveryChannel
	if cfg.App.Publishing.DeliveryMode == "kafka" {
		writer := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OutboundTopic)
		defer writer.Close()
		delivery = publishinginfra.NewKafkaDeliveryAdapter(writer)
	} else {
		delivery = publishinginfra.NewTelegramDeliveryAdapter(httpclient.NewClient(tracer))
	}

	// 文案生成：配置了外部服务就走 AI（内部自带模板兜底），否则纯模板
	var copyGen port.CopyGenerator
	if cfg.App.Publishing.AICopyEndpoint != "" {
		copyGen = publishinginfra.NewAICopyAdapter(httpclient.NewClient(tracer), cfg.App.Publishing.AICopyEndpoint)
	} else {
		copyGen = publishinginfra.NewTemplateCopyGenerator()
	}

	worker := publishingapp.NewWorker(
		scheduler,
		directory,
		historyRepo,
		publishinginfra.NewPoolAdapter(pool),
		publishinginfra.NewAESCredentialStore(cfg.App.Publishing.CredentialKey),
		copyGen,
		delivery,
		cfg.App.Publishing.BatchSize,
		time.Duration(cfg.App.Publishing.InterJobDelayMS)*time.Millisecond,
		clk,
		tracer,
	)

	// 实时发布事件 feed
	feed := publishingiface.NewFeedHub()
	go feed.Run()
	worker.SetEventSink(feed)

	// 周期锁：多副本部署时同一时刻只有一个实例跑发布周期
	var cycleLock *zookeeper.CycleLock
	if len(cfg.Infra.Zookeeper.Servers) > 0 {
		zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, time.Duration(cfg.Infra.Zookeeper.SessionTimeoutMS)*time.Millisecond)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("failed to connect to zookeeper")
		}
		defer zkConn.Close()
		cycleLock, err = zookeeper.NewCycleLock(zkConn, "publish-cycle")
		if err != nil {
			logger.L().Fatal().Err(err).Msg("failed to create cycle lock")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// 发布周期循环
	g.Go(func() error {
		interval := time.Duration(cfg.App.Publishing.CycleIntervalSeconds) * time.Second
		if interval <= 0 {
			interval = time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		logger.L().Info().Dur("interval", interval).Msg("publish cycle loop started")
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				runCycle(ctx, worker, cycleLock)
			}
		}
	})

	// 清扫循环：回收过期租约、终态化滞留任务
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				pool.SweepExpired(ctx)
				if _, err := scheduler.CleanupStaleDeals(ctx); err != nil {
					logger.Ctx(ctx).Error().Err(err).Msg("stale deal cleanup failed")
				}
			}
		}
	})

	// 观测端口：指标、健康检查、实时 feed
	metricsServer := &http.Server{Addr: metricsPort}
	g.Go(func() error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		mux.HandleFunc("/ws", feed.ServeWS)
		metricsServer.Handler = mux
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		metricsServer.Shutdown(shutdownCtx)
		return tp.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.L().Error().Err(err).Msg("worker exited with error")
	}
	logger.L().Info().Msg("publish worker shut down")
}

// runCycle 在分布式锁保护下执行一轮发布。抢不到锁说明别的副本在跑。
func runCycle(ctx context.Context, worker *publishingapp.Worker, lock *zookeeper.CycleLock) {
	if lock != nil {
		if err := lock.TryLock(); err != nil {
			if errors.Is(err, zookeeper.ErrLockBusy) {
				return
			}
			logger.Ctx(ctx).Error().Err(err).Msg("cycle lock acquisition failed")
			return
		}
		defer lock.Unlock()
	}

	if _, err := worker.RunCycle(ctx); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("publish cycle failed")
	}
}
