package central

import (
	"context"
	"time"
)

// Transactor 事务边界，gorm实现把tx放进ctx
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// StoreInventoryRepository 门店投影仓储
type StoreInventoryRepository interface {
	// Find 不存在返回ErrInventoryNotFound
	Find(ctx context.Context, sku, storeID string) (*StoreInventory, error)

	// Save 带版本检查的upsert
	// Version==0视为新行：INSERT并置version=1，主键冲突返回ErrVersionConflict
	// 否则：UPDATE ... WHERE version=?，影响0行返回ErrVersionConflict
	Save(ctx context.Context, inv *StoreInventory) error

	// ListBySKU 该SKU所有门店的投影（用于重新求和）
	ListBySKU(ctx context.Context, sku string) ([]*StoreInventory, error)

	// ListByStore 分页查询门店下所有SKU
	ListByStore(ctx context.Context, storeID string, page Page) ([]*StoreInventory, int64, error)

	// ListUnsynchronized 分页查询未同步的投影
	ListUnsynchronized(ctx context.Context, page Page) ([]*StoreInventory, int64, error)

	// MarkUnsynchronized 标记投影未同步（投影不存在时忽略）
	MarkUnsynchronized(ctx context.Context, sku, storeID string) error

	// Stats 按门店聚合统计
	Stats(ctx context.Context) ([]StoreStats, error)
}

// GlobalInventoryRepository 汇总仓储
type GlobalInventoryRepository interface {
	// Find 不存在返回ErrInventoryNotFound
	Find(ctx context.Context, sku string) (*GlobalInventory, error)

	// Save 带版本检查的upsert，语义同StoreInventoryRepository.Save
	Save(ctx context.Context, inv *GlobalInventory) error

	// ListWithAvailableStock 可售合计>0
	ListWithAvailableStock(ctx context.Context, page Page) ([]*GlobalInventory, int64, error)

	// ListLowStock 可售合计<=threshold
	ListLowStock(ctx context.Context, threshold int, page Page) ([]*GlobalInventory, int64, error)
}

// EventLedger 事件台账
type EventLedger interface {
	// Append 追加事件，event_id重复返回ErrDuplicateEvent
	Append(ctx context.Context, evt *InventoryEvent) error

	// FindByEventID 不存在返回ErrEventNotFound
	FindByEventID(ctx context.Context, eventID string) (*InventoryEvent, error)

	// UpdateStatus 更新处理状态
	UpdateStatus(ctx context.Context, eventID string, status ProcessingStatus, processedAt *time.Time, errMsg string) error

	// List 按条件分页查询
	List(ctx context.Context, filter EventFilter) ([]*InventoryEvent, int64, error)

	// PurgeBefore 删除created_at早于before的事件
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}

// EventFilter 台账查询条件，零值字段不参与过滤
type EventFilter struct {
	Status  ProcessingStatus
	SKU     string
	StoreID string
	From    time.Time
	To      time.Time
	Page
}

// Page 分页参数
type Page struct {
	Page     int
	PageSize int
}

// Normalize page默认1，pageSize默认20，最大100
func (p *Page) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

// Offset 分页偏移量
func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}
