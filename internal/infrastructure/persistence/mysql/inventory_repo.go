package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/stockhub/internal/domain/inventory"
	apperrors "github.com/xiebiao/stockhub/pkg/errors"
)

// inventoryRepository 门店库存记录仓储(MySQL)
// 并发正确性只依赖version列上的条件UPDATE
type inventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository 创建库存记录仓储
func NewInventoryRepository(db *gorm.DB) inventory.Repository {
	return &inventoryRepository{db: db}
}

// Create 首次入库
func (r *inventoryRepository) Create(ctx context.Context, record *inventory.Record) error {
	if err := dbFrom(ctx, r.db).Create(record).Error; err != nil {
		if isDuplicateError(err) {
			return inventory.ErrRecordExists
		}
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "创建库存记录失败")
	}
	return nil
}

// FindBySKUAndStore 查询单条记录
func (r *inventoryRepository) FindBySKUAndStore(ctx context.Context, sku, storeID string) (*inventory.Record, error) {
	var record inventory.Record
	err := dbFrom(ctx, r.db).
		Where("sku = ? AND store_id = ?", sku, storeID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrRecordNotFound
		}
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询库存记录失败")
	}
	return &record, nil
}

// UpdateWithVersion 条件写回
// UPDATE inventory_records SET ..., version = version + 1
// WHERE sku = ? AND store_id = ? AND version = ?
func (r *inventoryRepository) UpdateWithVersion(ctx context.Context, record *inventory.Record) error {
	result := dbFrom(ctx, r.db).
		Model(&inventory.Record{}).
		Where("sku = ? AND store_id = ? AND version = ?", record.SKU, record.StoreID, record.Version).
		Updates(map[string]interface{}{
			"name":              record.Name,
			"price":             record.Price,
			"quantity":          record.Quantity,
			"reserved_quantity": record.ReservedQuantity,
			"active":            record.Active,
			"updated_at":        record.UpdatedAt,
			"version":           gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, result.Error, "更新库存记录失败")
	}

	// 记录被删或版本已变，重试时重新读取会得到确切原因
	if result.RowsAffected == 0 {
		return inventory.ErrVersionConflict
	}

	record.Version++
	return nil
}

// ListByStore 分页查询门店库存，按SKU排序
func (r *inventoryRepository) ListByStore(ctx context.Context, storeID string, params inventory.ListParams) ([]*inventory.Record, int64, error) {
	query := dbFrom(ctx, r.db).Model(&inventory.Record{}).Where("store_id = ?", storeID)
	if params.ActiveOnly {
		query = query.Where("active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询库存总数失败")
	}

	var records []*inventory.Record
	err := query.Order("sku ASC").
		Limit(params.PageSize).
		Offset(params.Offset()).
		Find(&records).Error
	if err != nil {
		return nil, 0, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询库存列表失败")
	}
	return records, total, nil
}
