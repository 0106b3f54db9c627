// 门店节点：库存预留接口、事件可靠发布、失败事件补偿
//
// @title                      StockHub 多门店库存API
// @version                    1.0
// @description                门店库存预留与中心汇总
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
// @description                运维Token，格式: Bearer <token>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/xiebiao/stockhub/internal/infrastructure/config"
	"github.com/xiebiao/stockhub/pkg/jwt"
	"github.com/xiebiao/stockhub/pkg/logger"
	"github.com/xiebiao/stockhub/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，默认查找./config/config.yaml")
	issueToken := flag.String("issue-token", "", "为指定运维人员签发Token后退出")
	flag.Parse()

	// 1. 加载配置
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 签发Token不需要连接数据库和消息队列
	if *issueToken != "" {
		tok, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire).Issue(*issueToken, jwt.RoleOperator)
		if err != nil {
			log.Fatalf("签发Token失败: %v", err)
		}
		fmt.Printf("token: %s\ntoken_id: %s\nexpires_at: %s\n", tok.AccessToken, tok.TokenID, tok.ExpiresAt.Format("2006-01-02 15:04:05"))
		return
	}

	// 2. 日志
	zlog, err := logger.New(logger.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	zap.ReplaceGlobals(zlog)
	zlog = zlog.With(zap.String("node", cfg.Server.NodeID))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 链路追踪
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(ctx, tracing.Config{
			ServiceName:  "stockhub-store",
			CollectorURL: cfg.Tracing.CollectorURL,
		})
		if err != nil {
			zlog.Warn("链路追踪初始化失败，继续运行", zap.Error(err))
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	// 4. 依赖注入
	app, cleanup, err := InitializeApp(cfg, zlog)
	if err != nil {
		zlog.Fatal("初始化应用失败", zap.Error(err))
	}
	defer cleanup()

	// 5. 补偿任务随进程启停
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Scheduler.Start(ctx)
	}()

	// 6. 启动HTTP服务
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		zlog.Info("门店节点启动", zap.String("addr", srv.Addr), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("HTTP服务异常退出", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info("收到退出信号，开始优雅关闭")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("HTTP服务关闭失败", zap.Error(err))
	}
	wg.Wait()
	zlog.Info("门店节点已退出")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	if p := os.Getenv("STOCKHUB_CONFIG"); p != "" {
		return config.LoadFrom(p)
	}
	return config.Load()
}
