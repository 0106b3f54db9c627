// 中心节点：消费门店库存事件，幂等入库并跨门店汇总
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/xiebiao/stockhub/internal/infrastructure/config"
	"github.com/xiebiao/stockhub/pkg/logger"
	"github.com/xiebiao/stockhub/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，默认查找./config/config.yaml")
	flag.Parse()

	// 1. 加载配置
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
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
			ServiceName:  "stockhub-central",
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

	// 5. 消费端，断线自动重连
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Consumer.Run(ctx)
	}()

	// 6. gRPC健康检查
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, app.Health)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Central.GRPCPort))
	if err != nil {
		zlog.Error("监听gRPC端口失败", zap.Int("port", cfg.Central.GRPCPort), zap.Error(err))
		stop()
	} else {
		go func() {
			zlog.Info("gRPC健康检查启动", zap.String("addr", lis.Addr().String()))
			if err := grpcServer.Serve(lis); err != nil {
				zlog.Error("gRPC服务异常退出", zap.Error(err))
			}
		}()
	}

	// 7. HTTP服务
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		zlog.Info("中心节点启动", zap.String("addr", srv.Addr), zap.String("transport", cfg.Transport.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("HTTP服务异常退出", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info("收到退出信号，开始优雅关闭")

	app.Health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("HTTP服务关闭失败", zap.Error(err))
	}
	grpcServer.GracefulStop()
	wg.Wait()
	zlog.Info("中心节点已退出")
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
