package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xiebiao/stockhub/internal/domain/inventory"
)

// InventoryRepository 内存库存仓储
type InventoryRepository struct {
	mu      sync.Mutex
	records map[string]inventory.Record

	// BeforeFind 每次读取前回调（不持锁），测试用来制造并发交错
	BeforeFind func()
	conflicts  int
}

// NewInventoryRepository 创建内存库存仓储
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{records: make(map[string]inventory.Record)}
}

func recordKey(sku, storeID string) string {
	return storeID + "|" + sku
}

// Create 首次入库
func (r *InventoryRepository) Create(ctx context.Context, record *inventory.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey(record.SKU, record.StoreID)
	if _, ok := r.records[key]; ok {
		return inventory.ErrRecordExists
	}
	r.records[key] = *record
	return nil
}

// FindBySKUAndStore 查询记录（返回副本）
func (r *InventoryRepository) FindBySKUAndStore(ctx context.Context, sku, storeID string) (*inventory.Record, error) {
	if r.BeforeFind != nil {
		r.BeforeFind()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[recordKey(sku, storeID)]
	if !ok {
		return nil, inventory.ErrRecordNotFound
	}
	return &rec, nil
}

// UpdateWithVersion 版本匹配才写入
func (r *InventoryRepository) UpdateWithVersion(ctx context.Context, record *inventory.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey(record.SKU, record.StoreID)
	current, ok := r.records[key]
	if !ok {
		return inventory.ErrRecordNotFound
	}
	if current.Version != record.Version {
		r.conflicts++
		return inventory.ErrVersionConflict
	}

	record.Version++
	r.records[key] = *record
	return nil
}

// ListByStore 分页查询门店库存（按SKU排序）
func (r *InventoryRepository) ListByStore(ctx context.Context, storeID string, params inventory.ListParams) ([]*inventory.Record, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*inventory.Record
	for _, rec := range r.records {
		if rec.StoreID != storeID || (params.ActiveOnly && !rec.Active) {
			continue
		}
		rec := rec
		all = append(all, &rec)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SKU < all[j].SKU })

	return paginate(all, params.Offset(), params.PageSize), int64(len(all)), nil
}

// Conflicts 累计的版本冲突次数
func (r *InventoryRepository) Conflicts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conflicts
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
