package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/stockhub/internal/application/publishing"
	"github.com/xiebiao/stockhub/internal/domain/event"
	"github.com/xiebiao/stockhub/internal/domain/inventory"
	"github.com/xiebiao/stockhub/internal/infrastructure/persistence/memory"
	apperrors "github.com/xiebiao/stockhub/pkg/errors"
	"github.com/xiebiao/stockhub/pkg/retry"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakePublisher struct {
	mu      sync.Mutex
	events  []*event.DomainEvent
	outcome publishing.Outcome
}

func (p *fakePublisher) Publish(ctx context.Context, evt *event.DomainEvent) publishing.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	if p.outcome == "" {
		return publishing.OutcomeDelivered
	}
	return p.outcome
}

func (p *fakePublisher) Events() []*event.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*event.DomainEvent(nil), p.events...)
}

func setup(t *testing.T, quantity int) (*UseCase, *fakePublisher) {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	svc := inventory.NewService(memory.NewInventoryRepository(), retry.Policy{
		MaxAttempts:         20,
		InitialInterval:     time.Millisecond,
		Multiplier:          1.5,
		MaxInterval:         5 * time.Millisecond,
		RandomizationFactor: 0.5,
	}, inventory.WithClock(clock), inventory.WithRetryNotify(ConflictNotifier(zap.NewNop())))

	pub := &fakePublisher{}
	uc := NewUseCase(svc, event.NewFactory(clock), pub, zap.NewNop())

	res, err := uc.Create(context.Background(), CreateCommand{
		SKU: "SKU-1", StoreID: "store-1", Name: "机械键盘",
		Price: decimal.RequireFromString("199.00"), Quantity: quantity,
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	return uc, pub
}

func TestUseCase_ReserveCommitCancel(t *testing.T) {
	uc, pub := setup(t, 100)
	ctx := context.Background()

	res, err := uc.Reserve(ctx, "SKU-1", "store-1", 10)
	require.NoError(t, err)
	assert.Equal(t, &Result{Success: true, SKU: "SKU-1", StoreID: "store-1", ReservedQuantity: 10, AvailableQuantity: 90, Version: 2}, res)

	res, err = uc.Commit(ctx, "SKU-1", "store-1", 4)
	require.NoError(t, err)
	assert.Equal(t, 6, res.ReservedQuantity)
	assert.Equal(t, 90, res.AvailableQuantity)

	res, err = uc.Cancel(ctx, "SKU-1", "store-1", 6)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ReservedQuantity)
	assert.Equal(t, 96, res.AvailableQuantity)

	events := pub.Events()
	require.Len(t, events, 4, "入库+3次变更各一条事件")

	types := make([]event.Type, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []event.Type{event.TypeRestock, event.TypeReserve, event.TypeCommit, event.TypeCancel}, types)

	reserve := events[1]
	assert.Equal(t, 100, reserve.PreviousQuantity)
	assert.Equal(t, 90, reserve.NewQuantity)
	assert.Equal(t, 10, reserve.ReservedQuantity)
	assert.Equal(t, int64(2), reserve.RecordVersion)
}

func TestUseCase_BusinessFailureIsResult(t *testing.T) {
	uc, pub := setup(t, 5)
	ctx := context.Background()

	t.Run("库存不足", func(t *testing.T) {
		res, err := uc.Reserve(ctx, "SKU-1", "store-1", 6)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, apperrors.ErrCodeInsufficientStock, res.ErrorCode)
		assert.Equal(t, 5, res.AvailableQuantity, "失败时返回当前库存")
		assert.Equal(t, 0, res.ReservedQuantity)
	})

	t.Run("预留不足", func(t *testing.T) {
		res, err := uc.Commit(ctx, "SKU-1", "store-1", 1)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, apperrors.ErrCodeInsufficientReserved, res.ErrorCode)
	})

	t.Run("数量非法", func(t *testing.T) {
		res, err := uc.Restock(ctx, "SKU-1", "store-1", 0)
		require.NoError(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidParams, res.ErrorCode)

		res, err = uc.UpdateQuantity(ctx, "SKU-1", "store-1", -1)
		require.NoError(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidParams, res.ErrorCode)
	})

	t.Run("记录不存在", func(t *testing.T) {
		res, err := uc.Reserve(ctx, "SKU-X", "store-1", 1)
		require.NoError(t, err)
		assert.Equal(t, apperrors.ErrCodeInventoryNotFound, res.ErrorCode)
		assert.Equal(t, 0, res.AvailableQuantity)
	})

	t.Run("SKU为空", func(t *testing.T) {
		res, err := uc.Reserve(ctx, "", "store-1", 1)
		require.NoError(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidParams, res.ErrorCode)
	})

	assert.Len(t, pub.Events(), 1, "业务失败不产生事件")
}

func TestUseCase_UpdateAndRestock(t *testing.T) {
	uc, pub := setup(t, 10)
	ctx := context.Background()

	_, err := uc.Reserve(ctx, "SKU-1", "store-1", 3)
	require.NoError(t, err)

	res, err := uc.UpdateQuantity(ctx, "SKU-1", "store-1", 50)
	require.NoError(t, err)
	assert.Equal(t, 50, res.AvailableQuantity)
	assert.Equal(t, 3, res.ReservedQuantity, "盘点不影响预留")

	res, err = uc.Restock(ctx, "SKU-1", "store-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 55, res.AvailableQuantity)

	last := pub.Events()[len(pub.Events())-1]
	assert.Equal(t, event.TypeRestock, last.Type)
	assert.Equal(t, 50, last.PreviousQuantity)
	assert.Equal(t, 55, last.NewQuantity)
}

func TestUseCase_Deactivate(t *testing.T) {
	uc, pub := setup(t, 10)
	ctx := context.Background()

	require.NoError(t, uc.Deactivate(ctx, "SKU-1", "store-1"))
	events := pub.Events()
	require.Len(t, events, 2, "入库+停用各一条事件")
	off := events[1]
	assert.Equal(t, event.TypeUpdate, off.Type)
	assert.Equal(t, "false", off.Details["active"])
	assert.Equal(t, 10, off.NewQuantity)
	assert.Equal(t, int64(2), off.RecordVersion)

	res, err := uc.Reserve(ctx, "SKU-1", "store-1", 1)
	require.NoError(t, err)
	assert.Equal(t, apperrors.ErrCodeRecordInactive, res.ErrorCode)

	rec, err := uc.Get(ctx, "SKU-1", "store-1")
	require.NoError(t, err)
	assert.False(t, rec.Active)

	items, total, err := uc.List(ctx, "store-1", inventory.ListParams{ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, items)
}

func TestUseCase_PublishOutcomeDoesNotAffectResult(t *testing.T) {
	uc, pub := setup(t, 10)
	pub.outcome = publishing.OutcomeLost

	res, err := uc.Reserve(context.Background(), "SKU-1", "store-1", 2)
	require.NoError(t, err)
	assert.True(t, res.Success, "状态已提交，发布结果不回滚")
	assert.Equal(t, 8, res.AvailableQuantity)
}

func TestUseCase_ConcurrentReserveNeverOversells(t *testing.T) {
	uc, pub := setup(t, 50)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := uc.Reserve(ctx, "SKU-1", "store-1", 1)
			if err != nil {
				return
			}
			if res.Success {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	rec, err := uc.Get(ctx, "SKU-1", "store-1")
	require.NoError(t, err)
	assert.Equal(t, 50-success, rec.Quantity)
	assert.Equal(t, success, rec.ReservedQuantity)
	assert.GreaterOrEqual(t, rec.Quantity, 0)
	assert.Len(t, pub.Events(), success+1, "每次成功恰好一条事件")
}
