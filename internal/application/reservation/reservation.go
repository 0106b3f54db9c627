// Package reservation 门店库存预留用例
//
// 一次请求 = 库存状态变更(乐观锁) + 生成领域事件 + 可靠发布。
// 业务失败（库存不足、预留不足、参数错误、记录不存在）以Result返回，不作为error；
// 只有内部错误（数据库、并发冲突重试耗尽）才返回error。
// 事件发布结果不影响返回值：状态已经提交，发布失败由补偿任务兜底。
package reservation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/stockhub/internal/application/publishing"
	"github.com/xiebiao/stockhub/internal/domain/event"
	"github.com/xiebiao/stockhub/internal/domain/inventory"
	apperrors "github.com/xiebiao/stockhub/pkg/errors"
	"github.com/xiebiao/stockhub/pkg/metrics"
	"github.com/xiebiao/stockhub/pkg/retry"
	"github.com/xiebiao/stockhub/pkg/tracing"
)

const tracerName = "stockhub/reservation"

// EventPublisher 事件发布
type EventPublisher interface {
	Publish(ctx context.Context, evt *event.DomainEvent) publishing.Outcome
}

// Result 库存操作结果
type Result struct {
	Success           bool   `json:"success"`
	SKU               string `json:"sku"`
	StoreID           string `json:"storeId"`
	ReservedQuantity  int    `json:"reservedQuantity"`
	AvailableQuantity int    `json:"availableQuantity"`
	Version           int64  `json:"version,omitempty"`
	ErrorCode         int    `json:"errorCode,omitempty"`
	Message           string `json:"message,omitempty"`
}

// UseCase 库存预留用例
type UseCase struct {
	svc       inventory.Service
	factory   *event.Factory
	publisher EventPublisher
	log       *zap.Logger
}

// NewUseCase 创建预留用例
func NewUseCase(svc inventory.Service, factory *event.Factory, publisher EventPublisher, log *zap.Logger) *UseCase {
	metrics.InitMetrics()
	return &UseCase{svc: svc, factory: factory, publisher: publisher, log: log}
}

// ConflictNotifier 乐观锁冲突重试时记录日志和指标
func ConflictNotifier(log *zap.Logger) retry.NotifyFunc {
	return func(attempt int, err error, wait time.Duration) {
		metrics.InitMetrics()
		metrics.IncCounterVec(metrics.VersionConflictsTotal, map[string]string{"component": "store"})
		log.Debug("库存版本冲突，重新读取后重试", zap.Int("attempt", attempt), zap.Duration("wait", wait))
	}
}

// CreateCommand 首次入库
type CreateCommand struct {
	SKU      string
	StoreID  string
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// Create 首次入库，产生RESTOCK事件
func (uc *UseCase) Create(ctx context.Context, cmd CreateCommand) (*Result, error) {
	return uc.run(ctx, "create", cmd.SKU, cmd.StoreID, func(ctx context.Context) (*inventory.Transition, error) {
		return uc.svc.CreateRecord(ctx, inventory.CreateParams{
			SKU:      cmd.SKU,
			StoreID:  cmd.StoreID,
			Name:     cmd.Name,
			Price:    cmd.Price,
			Quantity: cmd.Quantity,
		})
	})
}

// Reserve 预留
func (uc *UseCase) Reserve(ctx context.Context, sku, storeID string, qty int) (*Result, error) {
	return uc.run(ctx, "reserve", sku, storeID, func(ctx context.Context) (*inventory.Transition, error) {
		return uc.svc.Reserve(ctx, sku, storeID, qty)
	})
}

// Commit 提交预留（完成销售）
func (uc *UseCase) Commit(ctx context.Context, sku, storeID string, qty int) (*Result, error) {
	return uc.run(ctx, "commit", sku, storeID, func(ctx context.Context) (*inventory.Transition, error) {
		return uc.svc.Commit(ctx, sku, storeID, qty)
	})
}

// Cancel 取消预留
func (uc *UseCase) Cancel(ctx context.Context, sku, storeID string, qty int) (*Result, error) {
	return uc.run(ctx, "cancel", sku, storeID, func(ctx context.Context) (*inventory.Transition, error) {
		return uc.svc.Cancel(ctx, sku, storeID, qty)
	})
}

// UpdateQuantity 盘点
func (uc *UseCase) UpdateQuantity(ctx context.Context, sku, storeID string, newQty int) (*Result, error) {
	return uc.run(ctx, "update", sku, storeID, func(ctx context.Context) (*inventory.Transition, error) {
		return uc.svc.UpdateQuantity(ctx, sku, storeID, newQty)
	})
}

// Restock 补货
func (uc *UseCase) Restock(ctx context.Context, sku, storeID string, qty int) (*Result, error) {
	return uc.run(ctx, "restock", sku, storeID, func(ctx context.Context) (*inventory.Transition, error) {
		return uc.svc.Restock(ctx, sku, storeID, qty)
	})
}

// Deactivate 停用记录，停用状态随UPDATE事件同步到中心
func (uc *UseCase) Deactivate(ctx context.Context, sku, storeID string) error {
	tr, err := uc.svc.Deactivate(ctx, sku, storeID)
	if err != nil {
		return err
	}

	evt := uc.factory.FromTransition(tr)
	outcome := uc.publisher.Publish(ctx, evt)
	uc.log.Info("库存记录已停用",
		zap.String("sku", sku),
		zap.String("store_id", storeID),
		zap.Int64("version", tr.After.Version),
		zap.String("event_id", evt.EventID),
		zap.String("publish", string(outcome)),
	)
	return nil
}

// Get 查询单条记录
func (uc *UseCase) Get(ctx context.Context, sku, storeID string) (*inventory.Record, error) {
	return uc.svc.Get(ctx, sku, storeID)
}

// List 分页查询门店库存
func (uc *UseCase) List(ctx context.Context, storeID string, params inventory.ListParams) ([]*inventory.Record, int64, error) {
	return uc.svc.ListByStore(ctx, storeID, params)
}

func (uc *UseCase) run(ctx context.Context, op, sku, storeID string, fn func(ctx context.Context) (*inventory.Transition, error)) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Reservation."+op)
	span.SetAttributes(attribute.String("sku", sku), attribute.String("store.id", storeID))

	start := time.Now()
	defer func() {
		metrics.ObserveHistogramVec(metrics.InventoryOperationDuration, map[string]string{"operation": op}, time.Since(start).Seconds())
	}()

	tr, err := fn(ctx)
	if err != nil {
		if apperrors.IsClientError(err) {
			metrics.IncCounterVec(metrics.InventoryOperationsTotal, map[string]string{"operation": op, "result": "rejected"})
			tracing.EndSpan(span, nil)
			return uc.rejected(ctx, sku, storeID, err), nil
		}

		metrics.IncCounterVec(metrics.InventoryOperationsTotal, map[string]string{"operation": op, "result": "error"})
		uc.log.Error("库存操作失败",
			zap.String("operation", op),
			zap.String("sku", sku),
			zap.String("store_id", storeID),
			zap.Error(err),
		)
		tracing.EndSpan(span, err)
		return nil, err
	}
	metrics.IncCounterVec(metrics.InventoryOperationsTotal, map[string]string{"operation": op, "result": "success"})

	evt := uc.factory.FromTransition(tr)
	outcome := uc.publisher.Publish(ctx, evt)
	span.SetAttributes(attribute.String("event.id", evt.EventID), attribute.String("publish.outcome", string(outcome)))

	uc.log.Info("库存操作成功",
		zap.String("operation", op),
		zap.String("sku", sku),
		zap.String("store_id", storeID),
		zap.Int("quantity", tr.After.Quantity),
		zap.Int("reserved", tr.After.ReservedQuantity),
		zap.Int64("version", tr.After.Version),
		zap.String("event_id", evt.EventID),
		zap.String("publish", string(outcome)),
	)
	tracing.EndSpan(span, nil)

	return &Result{
		Success:           true,
		SKU:               tr.After.SKU,
		StoreID:           tr.After.StoreID,
		ReservedQuantity:  tr.After.ReservedQuantity,
		AvailableQuantity: tr.After.Quantity,
		Version:           tr.After.Version,
	}, nil
}

// rejected 业务失败时带上当前库存，便于调用方展示
func (uc *UseCase) rejected(ctx context.Context, sku, storeID string, err error) *Result {
	appErr := apperrors.GetAppError(err)
	res := &Result{
		Success:   false,
		SKU:       sku,
		StoreID:   storeID,
		ErrorCode: appErr.Code,
		Message:   appErr.Message,
	}
	if sku == "" || storeID == "" {
		return res
	}
	if rec, gerr := uc.svc.Get(ctx, sku, storeID); gerr == nil {
		res.ReservedQuantity = rec.ReservedQuantity
		res.AvailableQuantity = rec.Quantity
		res.Version = rec.Version
	}
	return res
}
