package main

import (
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xiebiao/stockhub/internal/application/publishing"
	"github.com/xiebiao/stockhub/internal/application/reservation"
	"github.com/xiebiao/stockhub/internal/domain/event"
	"github.com/xiebiao/stockhub/internal/domain/failedevent"
	"github.com/xiebiao/stockhub/internal/domain/inventory"
	"github.com/xiebiao/stockhub/internal/infrastructure/config"
	"github.com/xiebiao/stockhub/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/stockhub/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/stockhub/internal/interface/http/handler"
	"github.com/xiebiao/stockhub/internal/interface/http/middleware"
	"github.com/xiebiao/stockhub/internal/interface/http/router"
	"github.com/xiebiao/stockhub/pkg/circuitbreaker"
	"github.com/xiebiao/stockhub/pkg/jwt"
	"github.com/xiebiao/stockhub/pkg/mq"
)

// App 门店节点运行所需的对象
type App struct {
	Engine    *gin.Engine
	Scheduler *publishing.Scheduler
	JWT       *jwt.Manager
}

// provideDB 门店库：库存记录+失败事件
func provideDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, func(), error) {
	db, err := mysql.NewDB(cfg, mysql.SchemaStore, log)
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

// provideSender 按transport.driver选择RabbitMQ或Kafka
func provideSender(cfg *config.Config, log *zap.Logger) (mq.Sender, func(), error) {
	var sender mq.Sender
	switch cfg.Transport.Driver {
	case "kafka":
		sender = mq.NewKafkaWriter(cfg.Transport.Kafka.Brokers, cfg.Transport.Kafka.Topic)
	default:
		sender = mq.NewRabbitPublisher(cfg.Transport.RabbitMQ.URL, cfg.Transport.RabbitMQ.Exchange, log)
	}
	log.Info("事件传输", zap.String("driver", cfg.Transport.Driver), zap.String("channel", cfg.Transport.Channel))

	cleanup := func() {
		if err := sender.Close(); err != nil {
			log.Warn("关闭事件传输失败", zap.Error(err))
		}
	}
	return sender, cleanup, nil
}

// provideBreaker 发布通道的熔断器，状态变化写入指标
func provideBreaker(cfg *config.Config, log *zap.Logger) *circuitbreaker.CircuitBreaker {
	cb := circuitbreaker.NewCircuitBreaker("inventory-events", circuitbreaker.Config{
		MaxRequests: cfg.CircuitBreaker.MaxRequests,
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: circuitbreaker.ConsecutiveFailures(cfg.CircuitBreaker.FailureThreshold),
	})
	publishing.ObserveBreaker(cb, log)
	return cb
}

func provideInventoryService(repo inventory.Repository, cfg *config.Config, log *zap.Logger) inventory.Service {
	return inventory.NewService(repo, cfg.Concurrency.Policy(),
		inventory.WithRetryNotify(reservation.ConflictNotifier(log)),
	)
}

func provideEventFactory() *event.Factory {
	return event.NewFactory(time.Now)
}

func providePublisher(
	sender mq.Sender,
	cb *circuitbreaker.CircuitBreaker,
	store failedevent.Repository,
	cfg *config.Config,
	log *zap.Logger,
) *publishing.Publisher {
	return publishing.NewPublisher(sender, cb, store, publishing.Config{
		Channel:     cfg.Transport.Channel,
		Policy:      cfg.Publisher.Policy(),
		SendTimeout: cfg.Publisher.Timeout,
		MaxRetries:  cfg.Retry.MaxRetries,
		Backoff:     retryBackoff(cfg),
	}, log)
}

func provideScheduler(store failedevent.Repository, resender publishing.Resender, cfg *config.Config, log *zap.Logger) *publishing.Scheduler {
	return publishing.NewScheduler(store, resender, publishing.SchedulerConfig{
		Interval:     cfg.Retry.SchedulerInterval,
		BatchSize:    cfg.Retry.BatchSize,
		LeaseTimeout: cfg.Retry.LeaseTimeout,
		Backoff:      retryBackoff(cfg),
	}, log, time.Now)
}

func provideAdminUseCase(store failedevent.Repository, scheduler *publishing.Scheduler, log *zap.Logger) *publishing.AdminUseCase {
	return publishing.NewAdminUseCase(store, scheduler, log, time.Now)
}

func retryBackoff(cfg *config.Config) failedevent.Backoff {
	return failedevent.Backoff{Base: cfg.Retry.BaseDelay, Max: cfg.Retry.MaxDelay}
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
	inventoryHandler *handler.InventoryHandler,
	failedEventHandler *handler.FailedEventHandler,
) *gin.Engine {
	return router.NewStoreEngine(router.Options{
		Mode:    cfg.Server.Mode,
		Log:     log,
		Limiter: limiter,
		Auth:    auth,
		Logout:  logout,
		Swagger: cfg.Server.Mode != gin.ReleaseMode,
	}, router.StoreHandlers{
		Inventory:    inventoryHandler,
		FailedEvents: failedEventHandler,
	})
}
