package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/stockhub/internal/domain/failedevent"
	apperrors "github.com/xiebiao/stockhub/pkg/errors"
)

// failedEventRepository 失败事件存储(MySQL)
// 领取(claim)通过条件UPDATE实现，多实例同时扫描时每条事件只会被一个实例领取
type failedEventRepository struct {
	db *gorm.DB
}

// NewFailedEventRepository 创建失败事件存储
func NewFailedEventRepository(db *gorm.DB) failedevent.Repository {
	return &failedEventRepository{db: db}
}

// Save 新建，event_id已存在时回填已有记录的ID
func (r *failedEventRepository) Save(ctx context.Context, event *failedevent.FailedEvent) error {
	err := dbFrom(ctx, r.db).Create(event).Error
	if err == nil {
		return nil
	}
	if !isDuplicateError(err) {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "保存失败事件失败")
	}

	var existing failedevent.FailedEvent
	if err := dbFrom(ctx, r.db).Where("event_id = ?", event.EventID).First(&existing).Error; err != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询失败事件失败")
	}
	event.ID = existing.ID
	return nil
}

// Update 条件写回全部字段
// UPDATE failed_events SET ... WHERE id = ? AND status = ?
func (r *failedEventRepository) Update(ctx context.Context, event *failedevent.FailedEvent, from failedevent.Status) error {
	if event.ID == 0 {
		return failedevent.ErrNotFound
	}
	result := dbFrom(ctx, r.db).Model(event).
		Where("status = ?", from).
		Select("*").Omit("id", "created_at").
		Updates(event)
	if result.Error != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, result.Error, "更新失败事件失败")
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// 影响行数为0：记录不存在、状态已变，或者值没有变化
	current, err := r.FindByID(ctx, event.ID)
	if err != nil {
		return err
	}
	if current.Status != from {
		return failedevent.ErrStateChanged
	}
	return nil
}

// FindByID 按主键查询
func (r *failedEventRepository) FindByID(ctx context.Context, id uint) (*failedevent.FailedEvent, error) {
	var event failedevent.FailedEvent
	if err := dbFrom(ctx, r.db).First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, failedevent.ErrNotFound
		}
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询失败事件失败")
	}
	return &event, nil
}

// ClaimReady 先查候选，再逐条条件UPDATE领取
// 被其他实例抢先领取的行影响行数为0，直接跳过
func (r *failedEventRepository) ClaimReady(ctx context.Context, now, staleBefore time.Time, limit int) ([]*failedevent.FailedEvent, error) {
	var candidates []*failedevent.FailedEvent
	err := dbFrom(ctx, r.db).
		Where("(status = ? AND next_retry_at <= ?) OR (status = ? AND last_retry_at <= ?)",
			failedevent.StatusPending, now, failedevent.StatusProcessing, staleBefore).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询待重试事件失败")
	}

	claimed := make([]*failedevent.FailedEvent, 0, len(candidates))
	for _, e := range candidates {
		query := dbFrom(ctx, r.db).Model(&failedevent.FailedEvent{}).Where("id = ? AND status = ?", e.ID, e.Status)
		if e.Status == failedevent.StatusProcessing {
			query = query.Where("last_retry_at <= ?", staleBefore)
		}

		result := query.Updates(map[string]interface{}{
			"status":        failedevent.StatusProcessing,
			"last_retry_at": now,
			"updated_at":    now,
		})
		if result.Error != nil {
			return claimed, apperrors.WithCode(apperrors.ErrCodeDatabaseError, result.Error, "领取失败事件失败")
		}
		if result.RowsAffected == 0 {
			continue
		}

		e.Status = failedevent.StatusProcessing
		e.LastRetryAt = &now
		e.UpdatedAt = now
		claimed = append(claimed, e)
	}
	return claimed, nil
}

// Claim 领取单条PENDING事件
func (r *failedEventRepository) Claim(ctx context.Context, id uint, now time.Time) (*failedevent.FailedEvent, error) {
	result := dbFrom(ctx, r.db).Model(&failedevent.FailedEvent{}).
		Where("id = ? AND status = ?", id, failedevent.StatusPending).
		Updates(map[string]interface{}{
			"status":        failedevent.StatusProcessing,
			"last_retry_at": now,
			"updated_at":    now,
		})
	if result.Error != nil {
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, result.Error, "领取失败事件失败")
	}

	event, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, failedevent.ErrAlreadyClaimed
	}
	return event, nil
}

// List 按状态分页，ID倒序
func (r *failedEventRepository) List(ctx context.Context, status failedevent.Status, page, pageSize int) ([]*failedevent.FailedEvent, int64, error) {
	query := dbFrom(ctx, r.db).Model(&failedevent.FailedEvent{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询失败事件总数失败")
	}

	var events []*failedevent.FailedEvent
	err := query.Order("id DESC").Limit(pageSize).Offset(pageOffset(page, pageSize)).Find(&events).Error
	if err != nil {
		return nil, 0, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询失败事件列表失败")
	}
	return events, total, nil
}

// CountByStatus SELECT status, COUNT(*) ... GROUP BY status
func (r *failedEventRepository) CountByStatus(ctx context.Context) (map[failedevent.Status]int64, error) {
	var rows []struct {
		Status failedevent.Status
		Total  int64
	}
	err := dbFrom(ctx, r.db).Model(&failedevent.FailedEvent{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "统计失败事件失败")
	}

	counts := make(map[failedevent.Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// PurgeResolved 删除已结束的旧事件
func (r *failedEventRepository) PurgeResolved(ctx context.Context, before time.Time) (int64, error) {
	result := dbFrom(ctx, r.db).
		Where("status IN ? AND updated_at < ?",
			[]failedevent.Status{failedevent.StatusSucceeded, failedevent.StatusCancelled}, before).
		Delete(&failedevent.FailedEvent{})
	if result.Error != nil {
		return 0, apperrors.WithCode(apperrors.ErrCodeDatabaseError, result.Error, "清理失败事件失败")
	}
	return result.RowsAffected, nil
}
