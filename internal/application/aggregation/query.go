package aggregation

import (
	"context"
	"sort"

	"github.com/xiebiao/stockhub/internal/domain/central"
)

// SKUView 全局汇总+门店明细
type SKUView struct {
	Global *central.GlobalInventory
	Stores []*central.StoreInventory
}

// QueryUseCase 中心节点只读查询
type QueryUseCase struct {
	stores  central.StoreInventoryRepository
	globals central.GlobalInventoryRepository
}

// NewQueryUseCase 创建查询用例
func NewQueryUseCase(stores central.StoreInventoryRepository, globals central.GlobalInventoryRepository) *QueryUseCase {
	return &QueryUseCase{stores: stores, globals: globals}
}

// GetBySKU 汇总及各门店明细
func (uc *QueryUseCase) GetBySKU(ctx context.Context, sku string) (*SKUView, error) {
	if sku == "" {
		return nil, central.ErrInventoryNotFound
	}
	global, err := uc.globals.Find(ctx, sku)
	if err != nil {
		return nil, err
	}
	stores, err := uc.stores.ListBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].StoreID < stores[j].StoreID })
	return &SKUView{Global: global, Stores: stores}, nil
}

// ListByStore 门店下所有SKU
func (uc *QueryUseCase) ListByStore(ctx context.Context, storeID string, page central.Page) ([]*central.StoreInventory, int64, error) {
	page.Normalize()
	return uc.stores.ListByStore(ctx, storeID, page)
}

// ListWithAvailableStock 有可售库存的SKU
func (uc *QueryUseCase) ListWithAvailableStock(ctx context.Context, page central.Page) ([]*central.GlobalInventory, int64, error) {
	page.Normalize()
	return uc.globals.ListWithAvailableStock(ctx, page)
}

// ListLowStock 可售合计<=threshold的SKU
func (uc *QueryUseCase) ListLowStock(ctx context.Context, threshold int, page central.Page) ([]*central.GlobalInventory, int64, error) {
	if threshold < 0 {
		return nil, 0, central.ErrInvalidThreshold
	}
	page.Normalize()
	return uc.globals.ListLowStock(ctx, threshold, page)
}

// ListUnsynchronized 应用失败待对账的门店投影
func (uc *QueryUseCase) ListUnsynchronized(ctx context.Context, page central.Page) ([]*central.StoreInventory, int64, error) {
	page.Normalize()
	return uc.stores.ListUnsynchronized(ctx, page)
}

// StoreStats 按门店统计
func (uc *QueryUseCase) StoreStats(ctx context.Context) ([]central.StoreStats, error) {
	return uc.stores.Stats(ctx)
}
