// Package router 门店节点和中心节点的gin路由
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/xiebiao/stockhub/docs" // swagger文档
	"github.com/xiebiao/stockhub/internal/interface/http/handler"
	"github.com/xiebiao/stockhub/internal/interface/http/middleware"
	"github.com/xiebiao/stockhub/pkg/metrics"
	"github.com/xiebiao/stockhub/pkg/response"
)

// Options 两个节点共用的中间件
type Options struct {
	Mode    string
	Log     *zap.Logger
	Limiter middleware.Limiter // nil表示不限流
	Auth    *middleware.AuthMiddleware
	Logout  *handler.AuthHandler
	Swagger bool
}

// StoreHandlers 门店节点处理器
type StoreHandlers struct {
	Inventory    *handler.InventoryHandler
	FailedEvents *handler.FailedEventHandler
}

// CentralHandlers 中心节点处理器
type CentralHandlers struct {
	Central *handler.CentralHandler
	Ledger  *handler.LedgerHandler
}

// NewStoreEngine 门店节点路由
func NewStoreEngine(opts Options, h StoreHandlers) *gin.Engine {
	r, v1 := newEngine(opts, "store")

	inv := v1.Group("/inventory")
	{
		inv.POST("", h.Inventory.Create)
		inv.GET("/:storeId", h.Inventory.List)
		inv.GET("/:storeId/:sku", h.Inventory.Get)
		inv.POST("/:storeId/:sku/reserve", h.Inventory.Reserve)
		inv.POST("/:storeId/:sku/commit", h.Inventory.Commit)
		inv.POST("/:storeId/:sku/cancel", h.Inventory.Cancel)
		inv.POST("/:storeId/:sku/restock", h.Inventory.Restock)
		inv.PUT("/:storeId/:sku/quantity", h.Inventory.UpdateQuantity)
		inv.DELETE("/:storeId/:sku", h.Inventory.Deactivate)
	}

	admin := adminGroup(v1, opts)
	{
		admin.GET("/failed-events", h.FailedEvents.List)
		admin.DELETE("/failed-events", h.FailedEvents.Purge)
		admin.POST("/failed-events/:id/retry", h.FailedEvents.Retry)
		admin.POST("/failed-events/:id/cancel", h.FailedEvents.Cancel)
	}

	return r
}

// NewCentralEngine 中心节点路由
func NewCentralEngine(opts Options, h CentralHandlers) *gin.Engine {
	r, v1 := newEngine(opts, "central")

	central := v1.Group("/central")
	{
		central.GET("/inventory", h.Central.ListAvailable)
		central.GET("/inventory/low-stock", h.Central.ListLowStock)
		central.GET("/inventory/:sku", h.Central.GetBySKU)
		central.GET("/stores/stats", h.Central.StoreStats)
		central.GET("/stores/:storeId/inventory", h.Central.ListByStore)
		central.GET("/unsynchronized", h.Central.ListUnsynchronized)
		central.POST("/events", h.Central.Ingest)
	}

	admin := adminGroup(v1, opts)
	{
		admin.GET("/events", h.Ledger.List)
		admin.DELETE("/events", h.Ledger.Purge)
	}

	return r
}

func newEngine(opts Options, node string) (*gin.Engine, *gin.RouterGroup) {
	if opts.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(opts.Log), middleware.Metrics())

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
			"node":    node,
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	if opts.Limiter != nil {
		v1.Use(middleware.RateLimit(opts.Limiter, opts.Log))
	}
	return r, v1
}

func adminGroup(v1 *gin.RouterGroup, opts Options) *gin.RouterGroup {
	admin := v1.Group("/admin")
	admin.Use(opts.Auth.RequireOperator())
	admin.POST("/logout", opts.Logout.Logout)
	return admin
}
