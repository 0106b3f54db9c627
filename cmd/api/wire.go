//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
//
// 修改Provider后运行 `wire gen ./cmd/api` 重新生成wire_gen.go

package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/xiebiao/stockhub/internal/application/publishing"
	"github.com/xiebiao/stockhub/internal/application/reservation"
	"github.com/xiebiao/stockhub/internal/infrastructure/config"
	"github.com/xiebiao/stockhub/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/stockhub/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/stockhub/internal/interface/http/handler"
	"github.com/xiebiao/stockhub/internal/interface/http/middleware"
)

// infrastructureSet 数据库、Redis、消息传输、熔断器
var infrastructureSet = wire.NewSet(
	provideDB,
	provideRedis,
	provideSender,
	provideBreaker,
)

// repositorySet 仓储
var repositorySet = wire.NewSet(
	mysql.NewInventoryRepository,
	mysql.NewFailedEventRepository,
)

// domainSet 领域服务
var domainSet = wire.NewSet(
	provideInventoryService,
	provideEventFactory,
)

// applicationSet 用例
var applicationSet = wire.NewSet(
	providePublisher,
	provideScheduler,
	provideAdminUseCase,
	reservation.NewUseCase,
	wire.Bind(new(reservation.EventPublisher), new(*publishing.Publisher)),
	wire.Bind(new(publishing.Resender), new(*publishing.Publisher)),
)

// middlewareSet JWT、黑名单、限流
var middlewareSet = wire.NewSet(
	provideJWTManager,
	redis.NewTokenBlacklist,
	wire.Bind(new(middleware.RevocationChecker), new(*redis.TokenBlacklist)),
	wire.Bind(new(handler.TokenRevoker), new(*redis.TokenBlacklist)),
	middleware.NewAuthMiddleware,
	handler.NewAuthHandler,
	provideLimiter,
)

// handlerSet HTTP处理器
var handlerSet = wire.NewSet(
	handler.NewInventoryHandler,
	handler.NewFailedEventHandler,
)

// InitializeApp 组装门店节点
func InitializeApp(cfg *config.Config, log *zap.Logger) (*App, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		middlewareSet,
		handlerSet,
		provideGinEngine,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
