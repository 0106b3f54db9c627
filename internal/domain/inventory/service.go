package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/stockhub/pkg/retry"
)

// Service 库存预留引擎（领域服务）
//
// 所有写操作都是"读-改-条件写"：
//  1. 读取当前记录（带version）
//  2. 在实体上执行业务规则
//  3. UPDATE ... WHERE version = ?，版本不匹配则按退避策略重新读取再试
//
// 多实例部署时正确性只依赖数据库里的version列。
type Service interface {
	// CreateRecord 首次入库，产生RESTOCK变更
	CreateRecord(ctx context.Context, params CreateParams) (*Transition, error)

	// Reserve 预留qty件：可售-qty，预留+qty
	Reserve(ctx context.Context, sku, storeID string, qty int) (*Transition, error)

	// Cancel 取消预留qty件：可售+qty，预留-qty
	Cancel(ctx context.Context, sku, storeID string, qty int) (*Transition, error)

	// Commit 提交预留qty件：预留-qty，可售不变
	Commit(ctx context.Context, sku, storeID string, qty int) (*Transition, error)

	// UpdateQuantity 直接设置可售数量（newQty >= 0），不影响预留
	UpdateQuantity(ctx context.Context, sku, storeID string, newQty int) (*Transition, error)

	// Restock 补货qty件
	Restock(ctx context.Context, sku, storeID string, qty int) (*Transition, error)

	// Deactivate 停用记录，产生UPDATE变更
	Deactivate(ctx context.Context, sku, storeID string) (*Transition, error)

	// Get 查询单条记录
	Get(ctx context.Context, sku, storeID string) (*Record, error)

	// ListByStore 分页查询门店库存
	ListByStore(ctx context.Context, storeID string, params ListParams) ([]*Record, int64, error)
}

// CreateParams 首次入库参数
type CreateParams struct {
	SKU      string
	StoreID  string
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// service 领域服务实现
type service struct {
	repo     Repository
	executor *retry.Executor
	now      func() time.Time
}

// Option 服务选项
type Option func(*serviceOptions)

type serviceOptions struct {
	now    func() time.Time
	notify retry.NotifyFunc
}

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		o.now = now
	}
}

// WithRetryNotify 乐观锁冲突重试时回调（日志/指标）
func WithRetryNotify(fn retry.NotifyFunc) Option {
	return func(o *serviceOptions) {
		o.notify = fn
	}
}

// NewService 创建库存预留引擎
func NewService(repo Repository, policy retry.Policy, opts ...Option) Service {
	o := serviceOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	var retryOpts []retry.Option
	if o.notify != nil {
		retryOpts = append(retryOpts, retry.WithNotify(o.notify))
	}

	return &service{
		repo:     repo,
		executor: retry.NewExecutor(policy, IsVersionConflict, retryOpts...),
		now:      o.now,
	}
}

// IsVersionConflict 只有版本冲突可以重试，业务错误一律不重试
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// CreateRecord 首次入库
func (s *service) CreateRecord(ctx context.Context, params CreateParams) (*Transition, error) {
	record, err := NewRecord(params.SKU, params.StoreID, params.Name, params.Price, params.Quantity, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	return &Transition{
		Type:     ChangeRestock,
		Quantity: params.Quantity,
		Before:   Record{SKU: record.SKU, StoreID: record.StoreID, Name: record.Name, Price: record.Price, Active: true},
		After:    *record,
	}, nil
}

// Reserve 预留
func (s *service) Reserve(ctx context.Context, sku, storeID string, qty int) (*Transition, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.mutate(ctx, sku, storeID, ChangeReserve, qty, func(r *Record) error {
		return r.Reserve(qty)
	})
}

// Cancel 取消预留
func (s *service) Cancel(ctx context.Context, sku, storeID string, qty int) (*Transition, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.mutate(ctx, sku, storeID, ChangeCancel, qty, func(r *Record) error {
		return r.Cancel(qty)
	})
}

// Commit 提交预留
func (s *service) Commit(ctx context.Context, sku, storeID string, qty int) (*Transition, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.mutate(ctx, sku, storeID, ChangeCommit, qty, func(r *Record) error {
		return r.Commit(qty)
	})
}

// UpdateQuantity 盘点设置可售数量
// 只校验newQty >= 0：可售与预留是两个独立的计数，覆盖可售数量不会让任何一方变成负数
func (s *service) UpdateQuantity(ctx context.Context, sku, storeID string, newQty int) (*Transition, error) {
	if newQty < 0 {
		return nil, ErrNegativeQuantity
	}
	return s.mutate(ctx, sku, storeID, ChangeUpdate, newQty, func(r *Record) error {
		return r.SetQuantity(newQty)
	})
}

// Restock 补货
func (s *service) Restock(ctx context.Context, sku, storeID string, qty int) (*Transition, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.mutate(ctx, sku, storeID, ChangeRestock, qty, func(r *Record) error {
		return r.Restock(qty)
	})
}

// Deactivate 停用
func (s *service) Deactivate(ctx context.Context, sku, storeID string) (*Transition, error) {
	return s.mutate(ctx, sku, storeID, ChangeUpdate, 0, func(r *Record) error {
		r.Deactivate()
		return nil
	})
}

// Get 查询单条记录
func (s *service) Get(ctx context.Context, sku, storeID string) (*Record, error) {
	if err := validateKey(sku, storeID); err != nil {
		return nil, err
	}
	return s.repo.FindBySKUAndStore(ctx, sku, storeID)
}

// ListByStore 分页查询门店库存
func (s *service) ListByStore(ctx context.Context, storeID string, params ListParams) ([]*Record, int64, error) {
	if storeID == "" {
		return nil, 0, ErrInvalidStore
	}
	params.Normalize()
	return s.repo.ListByStore(ctx, storeID, params)
}

// mutate 乐观锁读-改-写，版本冲突时重新读取最新状态再执行apply
func (s *service) mutate(ctx context.Context, sku, storeID string, typ ChangeType, qty int, apply func(*Record) error) (*Transition, error) {
	if err := validateKey(sku, storeID); err != nil {
		return nil, err
	}

	var tr *Transition
	err := s.executor.Do(ctx, func(ctx context.Context) error {
		record, err := s.repo.FindBySKUAndStore(ctx, sku, storeID)
		if err != nil {
			return err
		}

		before := *record
		if err := apply(record); err != nil {
			return err
		}
		record.UpdatedAt = s.now()

		if err := s.repo.UpdateWithVersion(ctx, record); err != nil {
			return err
		}

		tr = &Transition{Type: typ, Quantity: qty, Before: before, After: *record}
		return nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return nil, fmt.Errorf("%w: sku=%s store=%s: %v", ErrConcurrencyConflictUnresolved, sku, storeID, err)
		}
		return nil, err
	}

	return tr, nil
}

func validateKey(sku, storeID string) error {
	if sku == "" {
		return ErrInvalidSKU
	}
	if storeID == "" {
		return ErrInvalidStore
	}
	return nil
}
