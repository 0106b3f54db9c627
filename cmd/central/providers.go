package main

import (
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"

	"github.com/xiebiao/stockhub/internal/application/aggregation"
	"github.com/xiebiao/stockhub/internal/domain/central"
	"github.com/xiebiao/stockhub/internal/infrastructure/config"
	"github.com/xiebiao/stockhub/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/stockhub/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/stockhub/internal/interface/http/handler"
	"github.com/xiebiao/stockhub/internal/interface/http/middleware"
	"github.com/xiebiao/stockhub/internal/interface/http/router"
	"github.com/xiebiao/stockhub/pkg/jwt"
	"github.com/xiebiao/stockhub/pkg/mq"
)

// ingestService gRPC健康检查里代表消费端的服务名
const ingestService = "stockhub.central.Ingest"

// App 中心节点运行所需的对象
type App struct {
	Engine   *gin.Engine
	Consumer *mq.Supervisor
	Health   *health.Server
}

// provideDB 中心库：台账+门店投影+汇总
func provideDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, func(), error) {
	db, err := mysql.NewDB(cfg, mysql.SchemaCentral, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func provideRedis(cfg *config.Config, log *zap.Logger) (*goredis.Client, func(), error) {
	client, err := redis.NewClient(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// provideHealth 进程存活即SERVING，消费端状态单独上报
func provideHealth() *health.Server {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ingestService, healthpb.HealthCheckResponse_NOT_SERVING)
	return hs
}

func provideDedupCache(client *goredis.Client, cfg *config.Config) aggregation.DedupCache {
	return redis.NewProcessedEventCache(client, cfg.Central.DedupTTL)
}

func provideIngestUseCase(
	tx central.Transactor,
	stores central.StoreInventoryRepository,
	globals central.GlobalInventoryRepository,
	ledger central.EventLedger,
	cache aggregation.DedupCache,
	cfg *config.Config,
	log *zap.Logger,
) *aggregation.IngestUseCase {
	return aggregation.NewIngestUseCase(tx, stores, globals, ledger, cfg.Concurrency.Policy(), log,
		aggregation.WithDedupCache(cache),
	)
}

func provideLedgerAdmin(ledger central.EventLedger, log *zap.Logger) *aggregation.AdminUseCase {
	return aggregation.NewAdminUseCase(ledger, log, time.Now)
}

// provideDialer 按transport.driver创建消费端
// RabbitMQ绑定<channel>.#，接收所有门店的事件
func provideDialer(cfg *config.Config, log *zap.Logger) mq.Dialer {
	t := cfg.Transport
	if t.Driver == "kafka" {
		return func() (mq.Receiver, error) {
			return mq.NewKafkaReader(t.Kafka.Brokers, t.Kafka.Topic, t.Kafka.GroupID, log), nil
		}
	}
	return func() (mq.Receiver, error) {
		return mq.NewRabbitConsumer(t.RabbitMQ.URL, t.RabbitMQ.Exchange, t.RabbitMQ.Queue,
			[]string{mq.RoutingKey(t.Channel, "#")}, 0, log)
	}
}

func provideSupervisor(dial mq.Dialer, uc *aggregation.IngestUseCase, hs *health.Server, log *zap.Logger) *mq.Supervisor {
	return &mq.Supervisor{
		Dial:    dial,
		Handler: aggregation.MessageHandler(uc, log),
		OnState: func(connected bool) {
			status := healthpb.HealthCheckResponse_NOT_SERVING
			if connected {
				status = healthpb.HealthCheckResponse_SERVING
			}
			hs.SetServingStatus(ingestService, status)
		},
		Log: log,
	}
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire)
}

// provideLimiter rate_limit.requests<=0时不挂限流中间件
func provideLimiter(client *goredis.Client, cfg *config.Config) middleware.Limiter {
	if cfg.RateLimit.Requests <= 0 {
		return nil
	}
	return redis.NewRateLimiter(client, cfg.RateLimit.Requests, cfg.RateLimit.Window)
}

func provideGinEngine(
	cfg *config.Config,
	log *zap.Logger,
	limiter middleware.Limiter,
	auth *middleware.AuthMiddleware,
	logout *handler.AuthHandler,
	centralHandler *handler.CentralHandler,
	ledgerHandler *handler.LedgerHandler,
) *gin.Engine {
	return router.NewCentralEngine(router.Options{
		Mode:    cfg.Server.Mode,
		Log:     log,
		Limiter: limiter,
		Auth:    auth,
		Logout:  logout,
		Swagger: cfg.Server.Mode != gin.ReleaseMode,
	}, router.CentralHandlers{
		Central: centralHandler,
		Ledger:  ledgerHandler,
	})
}
