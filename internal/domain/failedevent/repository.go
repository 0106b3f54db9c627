package failedevent

import (
	"context"
	"time"
)

// Repository 失败事件存储
type Repository interface {
	// Save 新建失败事件；同一EventID重复保存视为成功（发布器可能被重放）
	Save(ctx context.Context, event *FailedEvent) error

	// Update 写回状态、重试次数、时间等字段
	// 仅当存储中的状态仍为from时生效，否则返回ErrStateChanged
	Update(ctx context.Context, event *FailedEvent, from Status) error

	// FindByID 按主键查询
	FindByID(ctx context.Context, id uint) (*FailedEvent, error)

	// ClaimReady 领取最多limit条可重试事件并置为PROCESSING
	// 条件：status=PENDING且next_retry_at<=now，
	// 或status=PROCESSING且last_retry_at<=staleBefore（上次扫描中途宕机）
	// 领取通过条件UPDATE完成，多实例并发扫描不会重复领取
	ClaimReady(ctx context.Context, now, staleBefore time.Time, limit int) ([]*FailedEvent, error)

	// Claim 领取单条事件（管理员手动重试），已被领取返回ErrAlreadyClaimed
	Claim(ctx context.Context, id uint, now time.Time) (*FailedEvent, error)

	// List 按状态分页查询，status为空表示全部
	List(ctx context.Context, status Status, page, pageSize int) ([]*FailedEvent, int64, error)

	// CountByStatus 各状态数量
	CountByStatus(ctx context.Context) (map[Status]int64, error)

	// PurgeResolved 删除before之前已结束(SUCCEEDED/CANCELLED)的事件
	PurgeResolved(ctx context.Context, before time.Time) (int64, error)
}
