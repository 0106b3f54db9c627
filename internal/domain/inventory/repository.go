package inventory

import (
	"context"
)

// Repository 库存记录仓储接口
// 由domain层定义，infrastructure层(gorm)实现
type Repository interface {
	// Create 首次入库，主键冲突返回ErrRecordExists
	Create(ctx context.Context, record *Record) error

	// FindBySKUAndStore 查询单条记录，不存在返回ErrRecordNotFound
	FindBySKUAndStore(ctx context.Context, sku, storeID string) (*Record, error)

	// UpdateWithVersion 条件写回
	// UPDATE ... SET ..., version = version + 1 WHERE sku = ? AND store_id = ? AND version = ?
	// 影响行数为0时返回ErrVersionConflict；成功后record.Version自增
	UpdateWithVersion(ctx context.Context, record *Record) error

	// ListByStore 分页查询门店库存
	ListByStore(ctx context.Context, storeID string, params ListParams) ([]*Record, int64, error)
}

// ListParams 列表查询参数
type ListParams struct {
	Page       int  // 页码(从1开始)
	PageSize   int  // 每页数量
	ActiveOnly bool // 只查询启用的记录
}

// Normalize 补齐分页默认值：page默认1，pageSize默认20，最大100
func (p *ListParams) Normalize() {
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
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
