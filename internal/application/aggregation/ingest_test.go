package aggregation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/stockhub/internal/domain/central"
	"github.com/xiebiao/stockhub/internal/domain/event"
	"github.com/xiebiao/stockhub/internal/domain/inventory"
	"github.com/xiebiao/stockhub/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/stockhub/pkg/mq"
	"github.com/xiebiao/stockhub/pkg/retry"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// flakyStores 在内存仓储外包一层，按顺序注入Save错误
type flakyStores struct {
	*memory.StoreInventoryRepository
	mu      sync.Mutex
	saveErr []error
}

func (s *flakyStores) Save(ctx context.Context, inv *central.StoreInventory) error {
	s.mu.Lock()
	if len(s.saveErr) > 0 {
		err := s.saveErr[0]
		s.saveErr = s.saveErr[1:]
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	return s.StoreInventoryRepository.Save(ctx, inv)
}

type fakeCache struct {
	mu      sync.Mutex
	seen    map[string]bool
	seenErr error
}

func (c *fakeCache) Seen(ctx context.Context, eventID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seenErr != nil {
		return false, c.seenErr
	}
	return c.seen[eventID], nil
}

func (c *fakeCache) Mark(ctx context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[eventID] = true
	return nil
}

type ingestFixture struct {
	uc      *IngestUseCase
	stores  *flakyStores
	globals *memory.GlobalInventoryRepository
	ledger  *memory.EventLedger
}

func newIngestFixture(opts ...IngestOption) *ingestFixture {
	f := &ingestFixture{
		stores:  &flakyStores{StoreInventoryRepository: memory.NewStoreInventoryRepository()},
		globals: memory.NewGlobalInventoryRepository(),
		ledger:  memory.NewEventLedger(),
	}
	opts = append([]IngestOption{WithIngestClock(func() time.Time { return t0 })}, opts...)
	f.uc = NewIngestUseCase(memory.Transactor{}, f.stores, f.globals, f.ledger, retry.Policy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		Multiplier:      2,
		MaxInterval:     2 * time.Millisecond,
	}, zap.NewNop(), opts...)
	return f
}

func newEvent(id, store string, version int64, available, reserved int) *event.DomainEvent {
	return &event.DomainEvent{
		EventID:          id,
		SKU:              "SKU-1",
		StoreID:          store,
		Type:             event.TypeReserve,
		PreviousQuantity: available + 1,
		NewQuantity:      available,
		ReservedQuantity: reserved,
		RecordVersion:    version,
		Timestamp:        t0.Add(-time.Second),
	}
}

func (f *ingestFixture) handle(t *testing.T, evt *event.DomainEvent) Outcome {
	t.Helper()
	body, err := evt.Marshal()
	require.NoError(t, err)
	outcome, err := f.uc.Handle(context.Background(), evt, body)
	require.NoError(t, err)
	return outcome
}

func (f *ingestFixture) status(t *testing.T, eventID string) central.ProcessingStatus {
	t.Helper()
	row, err := f.ledger.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	return row.ProcessingStatus
}

func TestIngest_AppliesAndResums(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()

	assert.Equal(t, OutcomeProcessed, f.handle(t, newEvent("e1", "store-1", 1, 90, 10)))
	assert.Equal(t, OutcomeProcessed, f.handle(t, newEvent("e2", "store-2", 3, 40, 5)))

	s1, err := f.stores.Find(ctx, "SKU-1", "store-1")
	require.NoError(t, err)
	assert.Equal(t, 90, s1.Available)
	assert.Equal(t, 10, s1.Reserved)
	assert.Equal(t, 100, s1.Quantity)
	assert.Equal(t, int64(1), s1.SourceVersion)
	assert.True(t, s1.IsSynchronized)
	assert.Equal(t, t0.Add(-time.Second), s1.LastSyncTime)

	g, err := f.globals.Find(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 130, g.Available)
	assert.Equal(t, 15, g.Reserved)
	assert.Equal(t, 145, g.Quantity)
	assert.Equal(t, 2, g.StoreCount)

	assert.Equal(t, central.ProcessingProcessed, f.status(t, "e1"))
	row, _ := f.ledger.FindByEventID(ctx, "e1")
	require.NotNil(t, row.ProcessedAt)
	assert.NotEmpty(t, row.Payload)
}

func TestIngest_SameEventTwiceHasOneEffect(t *testing.T) {
	f := newIngestFixture()
	evt := newEvent("e1", "store-1", 1, 90, 10)

	assert.Equal(t, OutcomeProcessed, f.handle(t, evt))
	assert.Equal(t, OutcomeIgnored, f.handle(t, evt))

	g, err := f.globals.Find(context.Background(), "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 90, g.Available)
	assert.Equal(t, int64(1), g.Version, "汇总只写了一次")

	_, total, err := f.ledger.List(context.Background(), central.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestIngest_SupersededEventIgnored(t *testing.T) {
	f := newIngestFixture()

	f.handle(t, newEvent("e2", "store-1", 2, 80, 20))
	assert.Equal(t, OutcomeIgnored, f.handle(t, newEvent("e1", "store-1", 1, 90, 10)), "乱序到达的旧事件")

	s, err := f.stores.Find(context.Background(), "SKU-1", "store-1")
	require.NoError(t, err)
	assert.Equal(t, 80, s.Available)
	assert.Equal(t, central.ProcessingIgnored, f.status(t, "e1"))
}

// 入库事件晚于后续预留事件到达时不能回滚中心投影
func TestIngest_LateCreateEventIgnored(t *testing.T) {
	ctx := context.Background()
	svc := inventory.NewService(memory.NewInventoryRepository(), retry.Policy{MaxAttempts: 1})
	factory := event.NewFactory(func() time.Time { return t0 })

	created, err := svc.CreateRecord(ctx, inventory.CreateParams{SKU: "SKU-1", StoreID: "store-1", Name: "机械键盘", Quantity: 100})
	require.NoError(t, err)
	reserved, err := svc.Reserve(ctx, "SKU-1", "store-1", 30)
	require.NoError(t, err)

	createEvt := factory.FromTransition(created)
	reserveEvt := factory.FromTransition(reserved)
	require.Less(t, createEvt.RecordVersion, reserveEvt.RecordVersion)

	f := newIngestFixture()
	assert.Equal(t, OutcomeProcessed, f.handle(t, reserveEvt))
	assert.Equal(t, OutcomeIgnored, f.handle(t, createEvt))

	s, err := f.stores.Find(ctx, "SKU-1", "store-1")
	require.NoError(t, err)
	assert.Equal(t, 70, s.Available)
	assert.Equal(t, 30, s.Reserved)
	assert.Equal(t, reserveEvt.RecordVersion, s.SourceVersion)

	g, err := f.globals.Find(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 70, g.Available)
	assert.Equal(t, central.ProcessingIgnored, f.status(t, createEvt.EventID))

	t.Run("无版本事件不能覆盖已有版本的投影", func(t *testing.T) {
		legacy := newEvent("legacy", "store-1", 0, 100, 0)
		assert.Equal(t, OutcomeIgnored, f.handle(t, legacy))

		s, err := f.stores.Find(ctx, "SKU-1", "store-1")
		require.NoError(t, err)
		assert.Equal(t, 70, s.Available)
	})
}

// 门店停用随事件到达中心，所有门店都停用后汇总也停用
func TestIngest_DeactivationReachesGlobal(t *testing.T) {
	ctx := context.Background()
	svc := inventory.NewService(memory.NewInventoryRepository(), retry.Policy{MaxAttempts: 1})
	factory := event.NewFactory(func() time.Time { return t0 })
	f := newIngestFixture()

	for _, store := range []string{"store-1", "store-2"} {
		tr, err := svc.CreateRecord(ctx, inventory.CreateParams{SKU: "SKU-1", StoreID: store, Name: "机械键盘", Quantity: 10})
		require.NoError(t, err)
		assert.Equal(t, OutcomeProcessed, f.handle(t, factory.FromTransition(tr)))
	}

	g, err := f.globals.Find(ctx, "SKU-1")
	require.NoError(t, err)
	assert.True(t, g.Active)

	tr, err := svc.Deactivate(ctx, "SKU-1", "store-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, f.handle(t, factory.FromTransition(tr)))

	s1, err := f.stores.Find(ctx, "SKU-1", "store-1")
	require.NoError(t, err)
	assert.False(t, s1.Active)
	g, err = f.globals.Find(ctx, "SKU-1")
	require.NoError(t, err)
	assert.True(t, g.Active, "store-2仍在售")

	tr, err = svc.Deactivate(ctx, "SKU-1", "store-2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, f.handle(t, factory.FromTransition(tr)))

	g, err = f.globals.Find(ctx, "SKU-1")
	require.NoError(t, err)
	assert.False(t, g.Active)
	assert.Equal(t, 20, g.Available)
}

func TestIngest_InvalidEventRejected(t *testing.T) {
	f := newIngestFixture()

	tests := []struct {
		name   string
		mutate func(e *event.DomainEvent)
	}{
		{"SKU为空", func(e *event.DomainEvent) { e.SKU = "" }},
		{"门店为空", func(e *event.DomainEvent) { e.StoreID = "" }},
		{"未知类型", func(e *event.DomainEvent) { e.Type = "TRANSFER" }},
		{"数量为负", func(e *event.DomainEvent) { e.NewQuantity = -1 }},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := newEvent(string(rune('a'+i)), "store-1", 1, 90, 10)
			tt.mutate(evt)

			assert.Equal(t, OutcomeRejected, f.handle(t, evt))
			assert.Equal(t, central.ProcessingFailed, f.status(t, evt.EventID))
		})
	}

	_, err := f.globals.Find(context.Background(), "SKU-1")
	assert.ErrorIs(t, err, central.ErrInventoryNotFound)
}

func TestIngest_ApplyFailureThenRedelivery(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()
	f.handle(t, newEvent("e1", "store-1", 1, 90, 10))

	dbDown := errors.New("connection refused")
	f.stores.saveErr = []error{dbDown}

	evt := newEvent("e2", "store-1", 2, 80, 20)
	body, _ := evt.Marshal()
	outcome, err := f.uc.Handle(ctx, evt, body)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, dbDown)

	assert.Equal(t, central.ProcessingFailed, f.status(t, "e2"))
	s, _ := f.stores.Find(ctx, "SKU-1", "store-1")
	assert.False(t, s.IsSynchronized)

	unsynced, total, err := f.uc.stores.ListUnsynchronized(ctx, central.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "store-1", unsynced[0].StoreID)

	// 消息重投后继续应用
	assert.Equal(t, OutcomeProcessed, f.handle(t, evt))
	assert.Equal(t, central.ProcessingProcessed, f.status(t, "e2"))
	s, _ = f.stores.Find(ctx, "SKU-1", "store-1")
	assert.True(t, s.IsSynchronized)
	assert.Equal(t, 80, s.Available)
}

func TestIngest_VersionConflictRetried(t *testing.T) {
	f := newIngestFixture()
	f.stores.saveErr = []error{central.ErrVersionConflict, central.ErrVersionConflict}

	assert.Equal(t, OutcomeProcessed, f.handle(t, newEvent("e1", "store-1", 1, 90, 10)))

	t.Run("冲突重试耗尽", func(t *testing.T) {
		f.stores.saveErr = []error{central.ErrVersionConflict, central.ErrVersionConflict, central.ErrVersionConflict}
		evt := newEvent("e2", "store-1", 2, 80, 20)
		_, err := f.uc.Handle(context.Background(), evt, nil)
		assert.ErrorIs(t, err, retry.ErrExhausted)
		assert.Equal(t, central.ProcessingFailed, f.status(t, "e2"))
	})
}

func TestIngest_ResumesPendingRow(t *testing.T) {
	f := newIngestFixture()
	evt := newEvent("e1", "store-1", 1, 90, 10)

	// 上次写入台账后进程崩溃
	require.NoError(t, f.ledger.Append(context.Background(), &central.InventoryEvent{
		EventID: "e1", SKU: "SKU-1", StoreID: "store-1", Type: evt.Type,
		ProcessingStatus: central.ProcessingPending, CreatedAt: t0,
	}))

	assert.Equal(t, OutcomeProcessed, f.handle(t, evt))
	assert.Equal(t, central.ProcessingProcessed, f.status(t, "e1"))
}

func TestIngest_DedupCache(t *testing.T) {
	t.Run("命中缓存直接忽略", func(t *testing.T) {
		cache := &fakeCache{seen: map[string]bool{"e1": true}}
		f := newIngestFixture(WithDedupCache(cache))

		assert.Equal(t, OutcomeIgnored, f.handle(t, newEvent("e1", "store-1", 1, 90, 10)))
		_, err := f.ledger.FindByEventID(context.Background(), "e1")
		assert.ErrorIs(t, err, central.ErrEventNotFound)
	})

	t.Run("处理成功后写入缓存", func(t *testing.T) {
		cache := &fakeCache{seen: map[string]bool{}}
		f := newIngestFixture(WithDedupCache(cache))

		f.handle(t, newEvent("e1", "store-1", 1, 90, 10))
		assert.True(t, cache.seen["e1"])
	})

	t.Run("缓存不可用时降级", func(t *testing.T) {
		cache := &fakeCache{seen: map[string]bool{}, seenErr: errors.New("redis down")}
		f := newIngestFixture(WithDedupCache(cache))

		assert.Equal(t, OutcomeProcessed, f.handle(t, newEvent("e1", "store-1", 1, 90, 10)))
		assert.Equal(t, OutcomeIgnored, f.handle(t, newEvent("e1", "store-1", 1, 90, 10)))
	})
}

func TestMessageHandler(t *testing.T) {
	f := newIngestFixture()
	h := MessageHandler(f.uc, zap.NewNop())

	evt := newEvent("e1", "store-1", 1, 90, 10)
	body, _ := evt.Marshal()
	require.NoError(t, h(context.Background(), mq.Message{Body: body, Headers: map[string]string{"eventId": "e1"}}))
	assert.Equal(t, central.ProcessingProcessed, f.status(t, "e1"))

	t.Run("无法解析的消息记FAILED并确认", func(t *testing.T) {
		err := h(context.Background(), mq.Message{Body: []byte("{oops"), Headers: map[string]string{"eventId": "bad-1"}})
		require.NoError(t, err)
		assert.Equal(t, central.ProcessingFailed, f.status(t, "bad-1"))
	})

	t.Run("应用失败返回error触发重投", func(t *testing.T) {
		f.stores.saveErr = []error{errors.New("db down")}
		evt := newEvent("e2", "store-1", 2, 80, 20)
		body, _ := evt.Marshal()
		assert.Error(t, h(context.Background(), mq.Message{Body: body}))
	})
}
