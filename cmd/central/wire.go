//go:build wireinject
// +build wireinject

// 修改Provider后运行 `wire gen ./cmd/central` 重新生成wire_gen.go

package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/xiebiao/stockhub/internal/application/aggregation"
	"github.com/xiebiao/stockhub/internal/domain/central"
	"github.com/xiebiao/stockhub/internal/infrastructure/config"
	"github.com/xiebiao/stockhub/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/stockhub/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/stockhub/internal/interface/http/handler"
	"github.com/xiebiao/stockhub/internal/interface/http/middleware"
)

// infrastructureSet 数据库、Redis、健康检查
var infrastructureSet = wire.NewSet(
	provideDB,
	provideRedis,
	provideHealth,
)

// repositorySet 台账、门店投影、汇总
var repositorySet = wire.NewSet(
	mysql.NewTxManager,
	wire.Bind(new(central.Transactor), new(*mysql.TxManager)),
	mysql.NewStoreInventoryRepository,
	mysql.NewGlobalInventoryRepository,
	mysql.NewEventLedger,
)

// applicationSet 入库、查询、台账运维
var applicationSet = wire.NewSet(
	provideDedupCache,
	provideIngestUseCase,
	aggregation.NewQueryUseCase,
	provideLedgerAdmin,
)

// consumerSet 消息消费
var consumerSet = wire.NewSet(
	provideDialer,
	provideSupervisor,
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
	handler.NewCentralHandler,
	handler.NewLedgerHandler,
)

// InitializeApp 组装中心节点
func InitializeApp(cfg *config.Config, log *zap.Logger) (*App, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		applicationSet,
		consumerSet,
		middlewareSet,
		handlerSet,
		provideGinEngine,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
