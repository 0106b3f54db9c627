package aggregation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/stockhub/internal/domain/central"
	apperrors "github.com/xiebiao/stockhub/pkg/errors"
)

// ErrInvalidStatus 台账状态过滤值不合法
var ErrInvalidStatus = apperrors.New(apperrors.ErrCodeInvalidParams, "未知的处理状态")

// AdminUseCase 中心台账运维
type AdminUseCase struct {
	ledger central.EventLedger
	now    func() time.Time
	log    *zap.Logger
}

// NewAdminUseCase 创建台账运维用例
func NewAdminUseCase(ledger central.EventLedger, log *zap.Logger, now func() time.Time) *AdminUseCase {
	if now == nil {
		now = time.Now
	}
	return &AdminUseCase{ledger: ledger, now: now, log: log}
}

// ListEvents 按条件分页查询台账
func (uc *AdminUseCase) ListEvents(ctx context.Context, filter central.EventFilter) ([]*central.InventoryEvent, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	filter.Page.Normalize()
	return uc.ledger.List(ctx, filter)
}

// PurgeEvents 删除N天前接收的台账记录
func (uc *AdminUseCase) PurgeEvents(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		return 0, central.ErrInvalidRetention
	}

	before := uc.now().AddDate(0, 0, -olderThanDays)
	n, err := uc.ledger.PurgeBefore(ctx, before)
	if err != nil {
		return 0, err
	}

	uc.log.Info("清理事件台账", zap.Int("older_than_days", olderThanDays), zap.Time("before", before), zap.Int64("deleted", n))
	return n, nil
}
