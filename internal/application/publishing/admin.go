package publishing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/stockhub/internal/domain/failedevent"
	apperrors "github.com/xiebiao/stockhub/pkg/errors"
)

// ErrInvalidRetention 保留天数不合法
var ErrInvalidRetention = apperrors.New(apperrors.ErrCodeInvalidParams, "保留天数必须大于0")

// ErrInvalidStatus 状态过滤值不合法
var ErrInvalidStatus = apperrors.New(apperrors.ErrCodeInvalidParams, "未知的事件状态")

// AdminUseCase 门店节点失败事件运维
type AdminUseCase struct {
	store     failedevent.Repository
	scheduler *Scheduler
	now       func() time.Time
	log       *zap.Logger
}

// NewAdminUseCase 创建运维用例
func NewAdminUseCase(store failedevent.Repository, scheduler *Scheduler, log *zap.Logger, now func() time.Time) *AdminUseCase {
	if now == nil {
		now = time.Now
	}
	return &AdminUseCase{store: store, scheduler: scheduler, now: now, log: log}
}

// ListResult 分页结果
type ListResult struct {
	Items    []*failedevent.FailedEvent
	Total    int64
	Page     int
	PageSize int
	Counts   map[failedevent.Status]int64
}

// List 按状态分页查询，status为空表示全部
func (uc *AdminUseCase) List(ctx context.Context, status failedevent.Status, page, pageSize int) (*ListResult, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := uc.store.List(ctx, status, page, pageSize)
	if err != nil {
		return nil, err
	}
	counts, err := uc.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	return &ListResult{Items: items, Total: total, Page: page, PageSize: pageSize, Counts: counts}, nil
}

// Retry 手动重试
func (uc *AdminUseCase) Retry(ctx context.Context, id uint) (*failedevent.FailedEvent, error) {
	fe, err := uc.scheduler.RetryNow(ctx, id)
	if err != nil {
		return nil, err
	}
	uc.log.Info("管理员手动重试失败事件", zap.Uint("id", id), zap.String("event_id", fe.EventID), zap.String("status", string(fe.Status)))
	return fe, nil
}

// Cancel 取消事件，之后不再补偿
func (uc *AdminUseCase) Cancel(ctx context.Context, id uint) (*failedevent.FailedEvent, error) {
	fe, err := uc.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := fe.Status
	fe.Cancel(uc.now())
	if err := uc.store.Update(ctx, fe, from); err != nil {
		return nil, err
	}

	uc.log.Info("管理员取消失败事件", zap.Uint("id", id), zap.String("event_id", fe.EventID))
	return fe, nil
}

// Purge 删除N天前已结束(SUCCEEDED/CANCELLED)的事件
func (uc *AdminUseCase) Purge(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		return 0, ErrInvalidRetention
	}

	before := uc.now().AddDate(0, 0, -olderThanDays)
	n, err := uc.store.PurgeResolved(ctx, before)
	if err != nil {
		return 0, err
	}

	uc.log.Info("清理已结束的失败事件", zap.Int("older_than_days", olderThanDays), zap.Int64("deleted", n))
	return n, nil
}
