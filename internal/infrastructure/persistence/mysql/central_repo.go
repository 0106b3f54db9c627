package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/stockhub/internal/domain/central"
	apperrors "github.com/xiebiao/stockhub/pkg/errors"
)

// =========================================
// 门店投影
// =========================================

type storeInventoryRepository struct {
	db *gorm.DB
}

// NewStoreInventoryRepository 创建门店投影仓储
func NewStoreInventoryRepository(db *gorm.DB) central.StoreInventoryRepository {
	return &storeInventoryRepository{db: db}
}

func (r *storeInventoryRepository) Find(ctx context.Context, sku, storeID string) (*central.StoreInventory, error) {
	var inv central.StoreInventory
	err := dbFrom(ctx, r.db).Where("sku = ? AND store_id = ?", sku, storeID).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, central.ErrInventoryNotFound
		}
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询门店投影失败")
	}
	return &inv, nil
}

// Save Version==0时INSERT，否则按版本条件UPDATE
func (r *storeInventoryRepository) Save(ctx context.Context, inv *central.StoreInventory) error {
	db := dbFrom(ctx, r.db)

	if inv.Version == 0 {
		inv.Version = 1
		if err := db.Create(inv).Error; err != nil {
			inv.Version = 0
			if isDuplicateError(err) {
				return central.ErrVersionConflict
			}
			return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "写入门店投影失败")
		}
		return nil
	}

	result := db.Model(&central.StoreInventory{}).
		Where("sku = ? AND store_id = ? AND version = ?", inv.SKU, inv.StoreID, inv.Version).
		Updates(map[string]interface{}{
			"quantity":        inv.Quantity,
			"reserved":        inv.Reserved,
			"available":       inv.Available,
			"source_version":  inv.SourceVersion,
			"last_event_id":   inv.LastEventID,
			"last_sync_time":  inv.LastSyncTime,
			"is_synchronized": inv.IsSynchronized,
			"active":          inv.Active,
			"updated_at":      inv.UpdatedAt,
			"version":         gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, result.Error, "更新门店投影失败")
	}
	if result.RowsAffected == 0 {
		return central.ErrVersionConflict
	}
	inv.Version++
	return nil
}

func (r *storeInventoryRepository) ListBySKU(ctx context.Context, sku string) ([]*central.StoreInventory, error) {
	var rows []*central.StoreInventory
	if err := dbFrom(ctx, r.db).Where("sku = ?", sku).Order("store_id ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询SKU门店投影失败")
	}
	return rows, nil
}

func (r *storeInventoryRepository) ListByStore(ctx context.Context, storeID string, page central.Page) ([]*central.StoreInventory, int64, error) {
	query := dbFrom(ctx, r.db).Model(&central.StoreInventory{}).Where("store_id = ?", storeID)
	return findPage[central.StoreInventory](query, "sku ASC", page)
}

func (r *storeInventoryRepository) ListUnsynchronized(ctx context.Context, page central.Page) ([]*central.StoreInventory, int64, error) {
	query := dbFrom(ctx, r.db).Model(&central.StoreInventory{}).Where("is_synchronized = ?", false)
	return findPage[central.StoreInventory](query, "store_id ASC, sku ASC", page)
}

// MarkUnsynchronized 不改version：这只是对账标记，不是投影状态
func (r *storeInventoryRepository) MarkUnsynchronized(ctx context.Context, sku, storeID string) error {
	err := dbFrom(ctx, r.db).Model(&central.StoreInventory{}).
		Where("sku = ? AND store_id = ?", sku, storeID).
		UpdateColumn("is_synchronized", false).Error
	if err != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "标记投影未同步失败")
	}
	return nil
}

func (r *storeInventoryRepository) Stats(ctx context.Context) ([]central.StoreStats, error) {
	var stats []central.StoreStats
	err := dbFrom(ctx, r.db).Model(&central.StoreInventory{}).
		Select(`store_id,
			COUNT(*) AS sku_count,
			COALESCE(SUM(quantity), 0) AS total_quantity,
			COALESCE(SUM(reserved), 0) AS total_reserved,
			COALESCE(SUM(available), 0) AS total_available,
			COALESCE(SUM(CASE WHEN is_synchronized THEN 0 ELSE 1 END), 0) AS unsynchronized_count,
			MAX(last_sync_time) AS last_sync_time`).
		Group("store_id").
		Order("store_id ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "统计门店库存失败")
	}
	return stats, nil
}

// =========================================
// 全局汇总
// =========================================

type globalInventoryRepository struct {
	db *gorm.DB
}

// NewGlobalInventoryRepository 创建汇总仓储
func NewGlobalInventoryRepository(db *gorm.DB) central.GlobalInventoryRepository {
	return &globalInventoryRepository{db: db}
}

func (r *globalInventoryRepository) Find(ctx context.Context, sku string) (*central.GlobalInventory, error) {
	var inv central.GlobalInventory
	if err := dbFrom(ctx, r.db).Where("sku = ?", sku).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, central.ErrInventoryNotFound
		}
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询汇总库存失败")
	}
	return &inv, nil
}

// Save Version==0时INSERT，否则按版本条件UPDATE
func (r *globalInventoryRepository) Save(ctx context.Context, inv *central.GlobalInventory) error {
	db := dbFrom(ctx, r.db)

	if inv.Version == 0 {
		inv.Version = 1
		if err := db.Create(inv).Error; err != nil {
			inv.Version = 0
			if isDuplicateError(err) {
				return central.ErrVersionConflict
			}
			return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "写入汇总库存失败")
		}
		return nil
	}

	result := db.Model(&central.GlobalInventory{}).
		Where("sku = ? AND version = ?", inv.SKU, inv.Version).
		Updates(map[string]interface{}{
			"quantity":    inv.Quantity,
			"reserved":    inv.Reserved,
			"available":   inv.Available,
			"store_count": inv.StoreCount,
			"active":      inv.Active,
			"updated_at":  inv.UpdatedAt,
			"version":     gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, result.Error, "更新汇总库存失败")
	}
	if result.RowsAffected == 0 {
		return central.ErrVersionConflict
	}
	inv.Version++
	return nil
}

func (r *globalInventoryRepository) ListWithAvailableStock(ctx context.Context, page central.Page) ([]*central.GlobalInventory, int64, error) {
	query := dbFrom(ctx, r.db).Model(&central.GlobalInventory{}).Where("available > 0")
	return findPage[central.GlobalInventory](query, "sku ASC", page)
}

func (r *globalInventoryRepository) ListLowStock(ctx context.Context, threshold int, page central.Page) ([]*central.GlobalInventory, int64, error) {
	query := dbFrom(ctx, r.db).Model(&central.GlobalInventory{}).Where("available <= ?", threshold)
	return findPage[central.GlobalInventory](query, "available ASC, sku ASC", page)
}

// =========================================
// 事件台账
// =========================================

type eventLedger struct {
	db *gorm.DB
}

// NewEventLedger 创建事件台账
func NewEventLedger(db *gorm.DB) central.EventLedger {
	return &eventLedger{db: db}
}

func (l *eventLedger) Append(ctx context.Context, evt *central.InventoryEvent) error {
	if err := dbFrom(ctx, l.db).Create(evt).Error; err != nil {
		if isDuplicateError(err) {
			return central.ErrDuplicateEvent
		}
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "写入事件台账失败")
	}
	return nil
}

func (l *eventLedger) FindByEventID(ctx context.Context, eventID string) (*central.InventoryEvent, error) {
	var evt central.InventoryEvent
	if err := dbFrom(ctx, l.db).Where("event_id = ?", eventID).First(&evt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, central.ErrEventNotFound
		}
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询事件台账失败")
	}
	return &evt, nil
}

// UpdateStatus 影响行数为0可能只是值未变化，不视为错误
func (l *eventLedger) UpdateStatus(ctx context.Context, eventID string, status central.ProcessingStatus, processedAt *time.Time, errMsg string) error {
	err := dbFrom(ctx, l.db).Model(&central.InventoryEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"processing_status": status,
			"processed_at":      processedAt,
			"error_message":     errMsg,
		}).Error
	if err != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "更新事件状态失败")
	}
	return nil
}

func (l *eventLedger) List(ctx context.Context, filter central.EventFilter) ([]*central.InventoryEvent, int64, error) {
	query := dbFrom(ctx, l.db).Model(&central.InventoryEvent{})
	if filter.Status != "" {
		query = query.Where("processing_status = ?", filter.Status)
	}
	if filter.SKU != "" {
		query = query.Where("sku = ?", filter.SKU)
	}
	if filter.StoreID != "" {
		query = query.Where("store_id = ?", filter.StoreID)
	}
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at <= ?", filter.To)
	}
	return findPage[central.InventoryEvent](query, "id DESC", filter.Page)
}

func (l *eventLedger) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	result := dbFrom(ctx, l.db).Where("created_at < ?", before).Delete(&central.InventoryEvent{})
	if result.Error != nil {
		return 0, apperrors.WithCode(apperrors.ErrCodeDatabaseError, result.Error, "清理事件台账失败")
	}
	return result.RowsAffected, nil
}

// findPage COUNT后按order分页查询
func findPage[T any](query *gorm.DB, order string, page central.Page) ([]*T, int64, error) {
	page.Normalize()

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询总数失败")
	}

	var rows []*T
	if err := query.Order(order).Limit(page.PageSize).Offset(page.Offset()).Find(&rows).Error; err != nil {
		return nil, 0, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "分页查询失败")
	}
	return rows, total, nil
}
