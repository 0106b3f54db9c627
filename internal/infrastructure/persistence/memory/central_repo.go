package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xiebiao/stockhub/internal/domain/central"
)

// Transactor 内存实现没有回滚能力，直接执行fn
type Transactor struct{}

// Transaction 执行fn
func (Transactor) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// StoreInventoryRepository 内存门店投影仓储
type StoreInventoryRepository struct {
	mu   sync.Mutex
	rows map[string]central.StoreInventory
}

// NewStoreInventoryRepository 创建内存门店投影仓储
func NewStoreInventoryRepository() *StoreInventoryRepository {
	return &StoreInventoryRepository{rows: make(map[string]central.StoreInventory)}
}

// Find 查询投影
func (r *StoreInventoryRepository) Find(ctx context.Context, sku, storeID string) (*central.StoreInventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[recordKey(sku, storeID)]
	if !ok {
		return nil, central.ErrInventoryNotFound
	}
	return &row, nil
}

// Save 带版本检查的upsert
func (r *StoreInventoryRepository) Save(ctx context.Context, inv *central.StoreInventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey(inv.SKU, inv.StoreID)
	current, exists := r.rows[key]
	switch {
	case inv.Version == 0 && exists:
		return central.ErrVersionConflict
	case inv.Version != 0 && (!exists || current.Version != inv.Version):
		return central.ErrVersionConflict
	}

	inv.Version++
	r.rows[key] = *inv
	return nil
}

// ListBySKU 该SKU所有门店投影，按门店排序
func (r *StoreInventoryRepository) ListBySKU(ctx context.Context, sku string) ([]*central.StoreInventory, error) {
	return r.filter(func(s central.StoreInventory) bool { return s.SKU == sku }), nil
}

// ListByStore 门店下所有SKU
func (r *StoreInventoryRepository) ListByStore(ctx context.Context, storeID string, page central.Page) ([]*central.StoreInventory, int64, error) {
	all := r.filter(func(s central.StoreInventory) bool { return s.StoreID == storeID })
	page.Normalize()
	return paginate(all, page.Offset(), page.PageSize), int64(len(all)), nil
}

// ListUnsynchronized 未同步投影
func (r *StoreInventoryRepository) ListUnsynchronized(ctx context.Context, page central.Page) ([]*central.StoreInventory, int64, error) {
	all := r.filter(func(s central.StoreInventory) bool { return !s.IsSynchronized })
	page.Normalize()
	return paginate(all, page.Offset(), page.PageSize), int64(len(all)), nil
}

// MarkUnsynchronized 标记未同步，不改变版本
func (r *StoreInventoryRepository) MarkUnsynchronized(ctx context.Context, sku, storeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey(sku, storeID)
	if row, ok := r.rows[key]; ok {
		row.IsSynchronized = false
		r.rows[key] = row
	}
	return nil
}

// Stats 按门店聚合
func (r *StoreInventoryRepository) Stats(ctx context.Context) ([]central.StoreStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byStore := make(map[string]*central.StoreStats)
	for _, row := range r.rows {
		st, ok := byStore[row.StoreID]
		if !ok {
			st = &central.StoreStats{StoreID: row.StoreID}
			byStore[row.StoreID] = st
		}
		st.SKUCount++
		st.TotalQuantity += int64(row.Quantity)
		st.TotalReserved += int64(row.Reserved)
		st.TotalAvailable += int64(row.Available)
		if !row.IsSynchronized {
			st.UnsynchronizedCount++
		}
		if row.LastSyncTime.After(st.LastSyncTime) {
			st.LastSyncTime = row.LastSyncTime
		}
	}

	stats := make([]central.StoreStats, 0, len(byStore))
	for _, st := range byStore {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].StoreID < stats[j].StoreID })
	return stats, nil
}

func (r *StoreInventoryRepository) filter(keep func(central.StoreInventory) bool) []*central.StoreInventory {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*central.StoreInventory
	for _, row := range r.rows {
		if keep(row) {
			out = append(out, &row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StoreID != out[j].StoreID {
			return out[i].StoreID < out[j].StoreID
		}
		return out[i].SKU < out[j].SKU
	})
	return out
}

// GlobalInventoryRepository 内存汇总仓储
type GlobalInventoryRepository struct {
	mu   sync.Mutex
	rows map[string]central.GlobalInventory
}

// NewGlobalInventoryRepository 创建内存汇总仓储
func NewGlobalInventoryRepository() *GlobalInventoryRepository {
	return &GlobalInventoryRepository{rows: make(map[string]central.GlobalInventory)}
}

// Find 查询汇总
func (r *GlobalInventoryRepository) Find(ctx context.Context, sku string) (*central.GlobalInventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[sku]
	if !ok {
		return nil, central.ErrInventoryNotFound
	}
	return &row, nil
}

// Save 带版本检查的upsert
func (r *GlobalInventoryRepository) Save(ctx context.Context, inv *central.GlobalInventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.rows[inv.SKU]
	switch {
	case inv.Version == 0 && exists:
		return central.ErrVersionConflict
	case inv.Version != 0 && (!exists || current.Version != inv.Version):
		return central.ErrVersionConflict
	}

	inv.Version++
	r.rows[inv.SKU] = *inv
	return nil
}

// ListWithAvailableStock 可售合计>0
func (r *GlobalInventoryRepository) ListWithAvailableStock(ctx context.Context, page central.Page) ([]*central.GlobalInventory, int64, error) {
	all := r.filter(func(g central.GlobalInventory) bool { return g.Available > 0 })
	page.Normalize()
	return paginate(all, page.Offset(), page.PageSize), int64(len(all)), nil
}

// ListLowStock 可售合计<=threshold
func (r *GlobalInventoryRepository) ListLowStock(ctx context.Context, threshold int, page central.Page) ([]*central.GlobalInventory, int64, error) {
	all := r.filter(func(g central.GlobalInventory) bool { return g.Available <= threshold })
	page.Normalize()
	return paginate(all, page.Offset(), page.PageSize), int64(len(all)), nil
}

func (r *GlobalInventoryRepository) filter(keep func(central.GlobalInventory) bool) []*central.GlobalInventory {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*central.GlobalInventory
	for _, row := range r.rows {
		if keep(row) {
			out = append(out, &row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

// EventLedger 内存事件台账
type EventLedger struct {
	mu     sync.Mutex
	nextID uint
	events map[string]central.InventoryEvent
}

// NewEventLedger 创建内存台账
func NewEventLedger() *EventLedger {
	return &EventLedger{events: make(map[string]central.InventoryEvent)}
}

// Append 追加，event_id唯一
func (l *EventLedger) Append(ctx context.Context, evt *central.InventoryEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.events[evt.EventID]; ok {
		return central.ErrDuplicateEvent
	}
	l.nextID++
	evt.ID = l.nextID
	l.events[evt.EventID] = *evt
	return nil
}

// FindByEventID 按事件ID查询
func (l *EventLedger) FindByEventID(ctx context.Context, eventID string) (*central.InventoryEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	evt, ok := l.events[eventID]
	if !ok {
		return nil, central.ErrEventNotFound
	}
	return &evt, nil
}

// UpdateStatus 更新处理状态
func (l *EventLedger) UpdateStatus(ctx context.Context, eventID string, status central.ProcessingStatus, processedAt *time.Time, errMsg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	evt, ok := l.events[eventID]
	if !ok {
		return central.ErrEventNotFound
	}
	evt.ProcessingStatus = status
	evt.ProcessedAt = processedAt
	evt.ErrorMessage = errMsg
	l.events[eventID] = evt
	return nil
}

// List 按条件分页，ID倒序
func (l *EventLedger) List(ctx context.Context, filter central.EventFilter) ([]*central.InventoryEvent, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var all []*central.InventoryEvent
	for _, evt := range l.events {
		if !matches(evt, filter) {
			continue
		}
		all = append(all, &evt)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	page := filter.Page
	page.Normalize()
	return paginate(all, page.Offset(), page.PageSize), int64(len(all)), nil
}

// PurgeBefore 删除旧事件
func (l *EventLedger) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int64
	for id, evt := range l.events {
		if evt.CreatedAt.Before(before) {
			delete(l.events, id)
			n++
		}
	}
	return n, nil
}

func matches(evt central.InventoryEvent, f central.EventFilter) bool {
	if f.Status != "" && evt.ProcessingStatus != f.Status {
		return false
	}
	if f.SKU != "" && evt.SKU != f.SKU {
		return false
	}
	if f.StoreID != "" && evt.StoreID != f.StoreID {
		return false
	}
	if !f.From.IsZero() && evt.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && evt.CreatedAt.After(f.To) {
		return false
	}
	return true
}
