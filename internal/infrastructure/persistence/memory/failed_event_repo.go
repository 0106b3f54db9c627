package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xiebiao/stockhub/internal/domain/failedevent"
)

// FailedEventRepository 内存失败事件存储
type FailedEventRepository struct {
	mu      sync.Mutex
	nextID  uint
	events  map[uint]failedevent.FailedEvent
	byEvent map[string]uint

	// SaveErr 非nil时Save直接返回该错误，模拟存储不可用
	SaveErr error
}

// NewFailedEventRepository 创建内存失败事件存储
func NewFailedEventRepository() *FailedEventRepository {
	return &FailedEventRepository{
		events:  make(map[uint]failedevent.FailedEvent),
		byEvent: make(map[string]uint),
	}
}

// Save 新建，EventID重复时回填已有ID并视为成功
func (r *FailedEventRepository) Save(ctx context.Context, event *failedevent.FailedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.SaveErr != nil {
		return r.SaveErr
	}
	if id, ok := r.byEvent[event.EventID]; ok {
		event.ID = id
		return nil
	}

	r.nextID++
	event.ID = r.nextID
	r.events[event.ID] = *event
	r.byEvent[event.EventID] = event.ID
	return nil
}

// Update 状态仍为from时整行写回
func (r *FailedEventRepository) Update(ctx context.Context, event *failedevent.FailedEvent, from failedevent.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.events[event.ID]
	if !ok {
		return failedevent.ErrNotFound
	}
	if current.Status != from {
		return failedevent.ErrStateChanged
	}
	r.events[event.ID] = *event
	return nil
}

// FindByID 按主键查询
func (r *FailedEventRepository) FindByID(ctx context.Context, id uint) (*failedevent.FailedEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[id]
	if !ok {
		return nil, failedevent.ErrNotFound
	}
	return &e, nil
}

// ClaimReady 领取到期事件，按next_retry_at升序
func (r *FailedEventRepository) ClaimReady(ctx context.Context, now, staleBefore time.Time, limit int) ([]*failedevent.FailedEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ready []failedevent.FailedEvent
	for _, e := range r.events {
		if e.IsReadyForRetry(now) || isStale(e, staleBefore) {
			ready = append(ready, e)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return sortKey(ready[i]).Before(sortKey(ready[j])) })

	claimed := make([]*failedevent.FailedEvent, 0, limit)
	for _, e := range ready {
		if limit > 0 && len(claimed) >= limit {
			break
		}
		e.Status = failedevent.StatusProcessing
		e.LastRetryAt = &now
		e.UpdatedAt = now
		r.events[e.ID] = e
		claimed = append(claimed, &e)
	}
	return claimed, nil
}

// Claim 领取单条事件，PROCESSING状态不可再次领取
func (r *FailedEventRepository) Claim(ctx context.Context, id uint, now time.Time) (*failedevent.FailedEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[id]
	if !ok {
		return nil, failedevent.ErrNotFound
	}
	if err := e.MarkProcessing(now); err != nil {
		return nil, failedevent.ErrAlreadyClaimed
	}
	r.events[id] = e
	return &e, nil
}

// List 按状态分页，ID倒序
func (r *FailedEventRepository) List(ctx context.Context, status failedevent.Status, page, pageSize int) ([]*failedevent.FailedEvent, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*failedevent.FailedEvent
	for _, e := range r.events {
		if status != "" && e.Status != status {
			continue
		}
		e := e
		all = append(all, &e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	return paginate(all, (page-1)*pageSize, pageSize), int64(len(all)), nil
}

// CountByStatus 各状态数量
func (r *FailedEventRepository) CountByStatus(ctx context.Context) (map[failedevent.Status]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[failedevent.Status]int64)
	for _, e := range r.events {
		counts[e.Status]++
	}
	return counts, nil
}

// PurgeResolved 删除已结束的旧事件
func (r *FailedEventRepository) PurgeResolved(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, e := range r.events {
		if (e.Status == failedevent.StatusSucceeded || e.Status == failedevent.StatusCancelled) && e.UpdatedAt.Before(before) {
			delete(r.events, id)
			delete(r.byEvent, e.EventID)
			n++
		}
	}
	return n, nil
}

func isStale(e failedevent.FailedEvent, staleBefore time.Time) bool {
	return e.Status == failedevent.StatusProcessing && e.LastRetryAt != nil && !e.LastRetryAt.After(staleBefore)
}

func sortKey(e failedevent.FailedEvent) time.Time {
	if e.NextRetryAt != nil {
		return *e.NextRetryAt
	}
	return e.UpdatedAt
}
