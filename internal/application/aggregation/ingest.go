// Package aggregation 中心节点：幂等入库、跨门店汇总、查询与运维
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/stockhub/internal/domain/central"
	"github.com/xiebiao/stockhub/internal/domain/event"
	"github.com/xiebiao/stockhub/pkg/metrics"
	"github.com/xiebiao/stockhub/pkg/retry"
	"github.com/xiebiao/stockhub/pkg/tracing"
)

const tracerName = "stockhub/aggregation"

// Outcome 一条事件的入库结果
type Outcome string

const (
	OutcomeProcessed Outcome = "processed" // 已应用到投影和汇总
	OutcomeIgnored   Outcome = "ignored"   // 重复投递或已被更新的事件取代
	OutcomeRejected  Outcome = "rejected"  // 内容不合法，记FAILED后确认消息
	OutcomeFailed    Outcome = "failed"    // 应用失败，消息需要重投
)

// DedupCache 已处理事件的快速判重（Redis）
// 台账的唯一索引才是权威，缓存不可用时降级为只查台账
type DedupCache interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// IngestUseCase 中心节点事件入库
type IngestUseCase struct {
	tx       central.Transactor
	stores   central.StoreInventoryRepository
	globals  central.GlobalInventoryRepository
	ledger   central.EventLedger
	cache    DedupCache
	executor *retry.Executor
	now      func() time.Time
	log      *zap.Logger
}

// IngestOption 入库用例选项
type IngestOption func(*IngestUseCase)

// WithDedupCache 启用Redis判重
func WithDedupCache(cache DedupCache) IngestOption {
	return func(uc *IngestUseCase) {
		uc.cache = cache
	}
}

// WithIngestClock 注入时钟
func WithIngestClock(now func() time.Time) IngestOption {
	return func(uc *IngestUseCase) {
		uc.now = now
	}
}

// NewIngestUseCase 创建入库用例，policy为投影版本冲突的重试策略
func NewIngestUseCase(
	tx central.Transactor,
	stores central.StoreInventoryRepository,
	globals central.GlobalInventoryRepository,
	ledger central.EventLedger,
	policy retry.Policy,
	log *zap.Logger,
	opts ...IngestOption,
) *IngestUseCase {
	metrics.InitMetrics()

	uc := &IngestUseCase{
		tx:      tx,
		stores:  stores,
		globals: globals,
		ledger:  ledger,
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(uc)
	}

	uc.executor = retry.NewExecutor(policy, isProjectionConflict, retry.WithNotify(func(attempt int, err error, wait time.Duration) {
		metrics.IncCounterVec(metrics.VersionConflictsTotal, map[string]string{"component": "central"})
		log.Debug("投影版本冲突，重试", zap.Int("attempt", attempt), zap.Duration("wait", wait))
	}))
	return uc
}

func isProjectionConflict(err error) bool {
	return errors.Is(err, central.ErrVersionConflict)
}

// Handle 处理一条事件，payload为原始消息体（写入台账）
//
// 返回error表示消息应当重投；校验失败、重复、被取代都返回nil
func (uc *IngestUseCase) Handle(ctx context.Context, evt *event.DomainEvent, payload []byte) (outcome Outcome, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Ingest.Handle")
	span.SetAttributes(
		attribute.String("event.id", evt.EventID),
		attribute.String("sku", evt.SKU),
		attribute.String("store.id", evt.StoreID),
	)

	start := time.Now()
	defer func() {
		metrics.IncCounterVec(metrics.EventsIngestedTotal, map[string]string{"outcome": string(outcome)})
		metrics.ObserveHistogram(metrics.EventIngestDuration, time.Since(start).Seconds())
		span.SetAttributes(attribute.String("ingest.outcome", string(outcome)))
		tracing.EndSpan(span, err)
	}()

	if uc.seen(ctx, evt.EventID) {
		return OutcomeIgnored, nil
	}

	if verr := validate(evt); verr != nil {
		uc.reject(ctx, evt, payload, verr)
		return OutcomeRejected, nil
	}

	resume, err := uc.record(ctx, evt, payload)
	if err != nil {
		return OutcomeFailed, err
	}
	if !resume {
		uc.mark(ctx, evt.EventID)
		uc.log.Debug("重复事件，忽略", zap.String("event_id", evt.EventID))
		return OutcomeIgnored, nil
	}

	outcome, err = uc.apply(ctx, evt)
	if err != nil {
		uc.fail(ctx, evt, err)
		return OutcomeFailed, err
	}

	uc.mark(ctx, evt.EventID)
	uc.log.Info("事件已入库",
		zap.String("event_id", evt.EventID),
		zap.String("sku", evt.SKU),
		zap.String("store_id", evt.StoreID),
		zap.String("type", string(evt.Type)),
		zap.Int64("record_version", evt.RecordVersion),
		zap.String("outcome", string(outcome)),
	)
	return outcome, nil
}

// record 写入台账；返回false表示已处理过，无需再应用
// 已存在且为PENDING(上次中途崩溃)或FAILED(上次应用失败后重投)时继续应用
func (uc *IngestUseCase) record(ctx context.Context, evt *event.DomainEvent, payload []byte) (bool, error) {
	entry := &central.InventoryEvent{
		EventID:          evt.EventID,
		SKU:              evt.SKU,
		StoreID:          evt.StoreID,
		Type:             evt.Type,
		Payload:          payload,
		ProcessingStatus: central.ProcessingPending,
		CreatedAt:        uc.now(),
	}
	err := uc.ledger.Append(ctx, entry)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, central.ErrDuplicateEvent) {
		return false, fmt.Errorf("写入事件台账失败: %w", err)
	}

	existing, err := uc.ledger.FindByEventID(ctx, evt.EventID)
	if err != nil {
		return false, fmt.Errorf("查询事件台账失败: %w", err)
	}
	switch existing.ProcessingStatus {
	case central.ProcessingPending, central.ProcessingFailed:
		uc.log.Warn("事件未完成处理，继续应用",
			zap.String("event_id", evt.EventID),
			zap.String("status", string(existing.ProcessingStatus)),
		)
		return true, nil
	default:
		return false, nil
	}
}

// apply 在一个事务内更新门店投影、重新汇总并标记台账
func (uc *IngestUseCase) apply(ctx context.Context, evt *event.DomainEvent) (Outcome, error) {
	var outcome Outcome

	err := uc.executor.Do(ctx, func(ctx context.Context) error {
		return uc.tx.Transaction(ctx, func(ctx context.Context) error {
			now := uc.now()

			store, err := uc.stores.Find(ctx, evt.SKU, evt.StoreID)
			if errors.Is(err, central.ErrInventoryNotFound) {
				store = &central.StoreInventory{}
			} else if err != nil {
				return err
			}

			// 同一事件重试时投影可能已经写入，再应用一次结果不变
			if store.LastEventID != evt.EventID && store.Supersedes(evt) {
				outcome = OutcomeIgnored
				return uc.ledger.UpdateStatus(ctx, evt.EventID, central.ProcessingIgnored, &now,
					fmt.Sprintf("已被门店版本%d取代", store.SourceVersion))
			}

			store.Apply(evt, now)
			if err := uc.stores.Save(ctx, store); err != nil {
				return err
			}

			if err := uc.resum(ctx, evt.SKU, now); err != nil {
				return err
			}

			outcome = OutcomeProcessed
			return uc.ledger.UpdateStatus(ctx, evt.EventID, central.ProcessingProcessed, &now, "")
		})
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// resum 对该SKU的所有门店投影重新求和
func (uc *IngestUseCase) resum(ctx context.Context, sku string, now time.Time) error {
	stores, err := uc.stores.ListBySKU(ctx, sku)
	if err != nil {
		return err
	}

	global, err := uc.globals.Find(ctx, sku)
	if errors.Is(err, central.ErrInventoryNotFound) {
		global = &central.GlobalInventory{}
	} else if err != nil {
		return err
	}

	global.Recompute(sku, stores, now)
	return uc.globals.Save(ctx, global)
}

// reject 内容不合法：记FAILED，不重投
func (uc *IngestUseCase) reject(ctx context.Context, evt *event.DomainEvent, payload []byte, reason error) {
	uc.log.Warn("事件内容不合法", zap.String("event_id", evt.EventID), zap.Error(reason))
	if evt.EventID == "" {
		return
	}

	now := uc.now()
	entry := &central.InventoryEvent{
		EventID:          evt.EventID,
		SKU:              evt.SKU,
		StoreID:          evt.StoreID,
		Type:             evt.Type,
		Payload:          payload,
		ProcessingStatus: central.ProcessingFailed,
		ErrorMessage:     truncate(reason.Error(), 500),
		CreatedAt:        now,
		ProcessedAt:      &now,
	}
	if err := uc.ledger.Append(ctx, entry); err != nil && !errors.Is(err, central.ErrDuplicateEvent) {
		uc.log.Error("记录不合法事件失败", zap.String("event_id", evt.EventID), zap.Error(err))
	}
}

// fail 应用失败：台账FAILED、投影标记未同步
func (uc *IngestUseCase) fail(ctx context.Context, evt *event.DomainEvent, cause error) {
	uc.log.Error("事件应用失败",
		zap.String("event_id", evt.EventID),
		zap.String("sku", evt.SKU),
		zap.String("store_id", evt.StoreID),
		zap.Error(cause),
	)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	now := uc.now()
	if err := uc.ledger.UpdateStatus(ctx, evt.EventID, central.ProcessingFailed, &now, truncate(cause.Error(), 500)); err != nil {
		uc.log.Error("更新台账状态失败", zap.String("event_id", evt.EventID), zap.Error(err))
	}
	if err := uc.stores.MarkUnsynchronized(ctx, evt.SKU, evt.StoreID); err != nil {
		uc.log.Error("标记投影未同步失败", zap.String("sku", evt.SKU), zap.String("store_id", evt.StoreID), zap.Error(err))
	}
}

func (uc *IngestUseCase) seen(ctx context.Context, eventID string) bool {
	if uc.cache == nil || eventID == "" {
		return false
	}
	ok, err := uc.cache.Seen(ctx, eventID)
	if err != nil {
		uc.log.Warn("判重缓存不可用，改查台账", zap.String("event_id", eventID), zap.Error(err))
		return false
	}
	return ok
}

func (uc *IngestUseCase) mark(ctx context.Context, eventID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Mark(ctx, eventID); err != nil {
		uc.log.Warn("写入判重缓存失败", zap.String("event_id", eventID), zap.Error(err))
	}
}

func validate(evt *event.DomainEvent) error {
	switch {
	case evt.EventID == "":
		return fmt.Errorf("%w: eventId为空", central.ErrInvalidEvent)
	case evt.SKU == "":
		return fmt.Errorf("%w: sku为空", central.ErrInvalidEvent)
	case evt.StoreID == "":
		return fmt.Errorf("%w: storeId为空", central.ErrInvalidEvent)
	case !evt.Type.Valid():
		return fmt.Errorf("%w: 未知事件类型%q", central.ErrInvalidEvent, evt.Type)
	case evt.NewQuantity < 0 || evt.PreviousQuantity < 0 || evt.ReservedQuantity < 0:
		return fmt.Errorf("%w: 数量为负", central.ErrInvalidEvent)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
