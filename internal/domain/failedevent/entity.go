package failedevent

import (
	"math"
	"math/rand/v2"
	"time"
)

// Status 失败事件状态
//
//	PENDING --重试成功--> SUCCEEDED
//	PENDING --重试失败且retryCount<maxRetries--> PENDING（推迟nextRetryAt）
//	PENDING --重试失败且retryCount==maxRetries--> FAILED（清空nextRetryAt）
//	任意状态 --管理员--> CANCELLED
//
// 补偿扫描领取事件时短暂进入PROCESSING
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSucceeded  Status = "SUCCEEDED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// Terminal 是否为终态
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Valid 是否为已知状态
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

const (
	// DefaultMaxRetries 默认最大重试次数
	DefaultMaxRetries = 10

	// DefaultBaseDelay 退避基数
	DefaultBaseDelay = time.Minute

	// MaxDelay 单次退避上限（不含抖动）
	MaxDelay = 24 * time.Hour

	// jitterRatio 抖动上限占退避时长的比例
	jitterRatio = 0.1
)

// FailedEvent 同步发布失败后落库的事件
// 它是"尚未确认投递"的唯一事实来源，只在同步发布失败时创建
type FailedEvent struct {
	ID           uint       `gorm:"primaryKey"`
	EventID      string     `gorm:"uniqueIndex;size:64;not null;comment:领域事件ID"`
	EventType    string     `gorm:"size:32;not null;comment:事件类型"`
	Destination  string     `gorm:"size:128;not null;comment:目标通道"`
	PartitionKey string     `gorm:"size:64;not null;comment:分区键"`
	Payload      []byte     `gorm:"type:blob;not null;comment:序列化后的事件"`
	RetryCount   int        `gorm:"not null;comment:已重试次数"`
	MaxRetries   int        `gorm:"not null;comment:最大重试次数"`
	LastError    string     `gorm:"type:text;comment:最后一次错误"`
	Status       Status     `gorm:"size:16;not null;index:idx_failed_events_status_next,priority:1;comment:状态"`
	CreatedAt    time.Time  `gorm:"index;comment:创建时间"`
	LastRetryAt  *time.Time `gorm:"comment:最后重试时间"`
	NextRetryAt  *time.Time `gorm:"index:idx_failed_events_status_next,priority:2;comment:下次重试时间"`
	UpdatedAt    time.Time  `gorm:"comment:更新时间"`
}

// TableName 表名
func (FailedEvent) TableName() string {
	return "failed_events"
}

// Backoff 重试退避参数
type Backoff struct {
	Base     time.Duration
	Max      time.Duration
	jitterFn func(max time.Duration) time.Duration
}

// DefaultBackoff 1分钟起步，上限24小时
func DefaultBackoff() Backoff {
	return Backoff{Base: DefaultBaseDelay, Max: MaxDelay}
}

// WithJitter 替换抖动函数（测试用）
func (b Backoff) WithJitter(fn func(max time.Duration) time.Duration) Backoff {
	b.jitterFn = fn
	return b
}

// Delay 第retryCount次失败后的等待：min(base*2^retryCount, max) + jitter
func (b Backoff) Delay(retryCount int) time.Duration {
	base, max := b.Base, b.Max
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if max <= 0 {
		max = MaxDelay
	}

	d := max
	if exp := math.Pow(2, float64(retryCount)); float64(base)*exp < float64(max) {
		d = time.Duration(float64(base) * exp)
	}

	return d + b.jitter(time.Duration(float64(d)*jitterRatio))
}

func (b Backoff) jitter(max time.Duration) time.Duration {
	if b.jitterFn != nil {
		return b.jitterFn(max)
	}
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}

// NewParams 创建失败事件所需信息
type NewParams struct {
	EventID      string
	EventType    string
	Destination  string
	PartitionKey string
	Payload      []byte
	MaxRetries   int
	LastError    string
}

// New 同步发布失败后创建PENDING事件，首次补偿时间为now+base
func New(p NewParams, backoff Backoff, now time.Time) *FailedEvent {
	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	next := now.Add(backoff.Delay(0))
	return &FailedEvent{
		EventID:      p.EventID,
		EventType:    p.EventType,
		Destination:  p.Destination,
		PartitionKey: p.PartitionKey,
		Payload:      p.Payload,
		MaxRetries:   maxRetries,
		LastError:    p.LastError,
		Status:       StatusPending,
		CreatedAt:    now,
		NextRetryAt:  &next,
		UpdatedAt:    now,
	}
}

// IncrementRetry 记录一次补偿失败
// retryCount达到maxRetries时进入FAILED并清空nextRetryAt，否则按指数退避推迟
func (e *FailedEvent) IncrementRetry(now time.Time, lastErr string, backoff Backoff) {
	e.RetryCount++
	e.LastError = lastErr
	e.LastRetryAt = &now
	e.UpdatedAt = now

	if e.RetryCount >= e.MaxRetries {
		e.Status = StatusFailed
		e.NextRetryAt = nil
		return
	}

	next := now.Add(backoff.Delay(e.RetryCount))
	e.Status = StatusPending
	e.NextRetryAt = &next
}

// IsReadyForRetry 状态为PENDING且已到重试时间
func (e *FailedEvent) IsReadyForRetry(now time.Time) bool {
	return e.Status == StatusPending && e.NextRetryAt != nil && !e.NextRetryAt.After(now)
}

// MarkProcessing 补偿扫描领取
func (e *FailedEvent) MarkProcessing(now time.Time) error {
	if e.Status != StatusPending {
		return ErrInvalidTransition
	}
	e.Status = StatusProcessing
	e.LastRetryAt = &now
	e.UpdatedAt = now
	return nil
}

// MarkAsSucceeded 补偿投递成功
func (e *FailedEvent) MarkAsSucceeded(now time.Time) {
	e.Status = StatusSucceeded
	e.NextRetryAt = nil
	e.LastRetryAt = &now
	e.UpdatedAt = now
}

// Cancel 管理员取消，任意状态均可取消
func (e *FailedEvent) Cancel(now time.Time) {
	e.Status = StatusCancelled
	e.NextRetryAt = nil
	e.UpdatedAt = now
}

// Requeue 管理员手动重试：重新进入PENDING并立即可被领取
// 已成功的事件不允许重新投递
func (e *FailedEvent) Requeue(now time.Time) error {
	if e.Status == StatusSucceeded {
		return ErrInvalidTransition
	}
	if e.RetryCount >= e.MaxRetries {
		// 给人工重试留出一次机会
		e.MaxRetries = e.RetryCount + 1
	}
	e.Status = StatusPending
	e.NextRetryAt = &now
	e.UpdatedAt = now
	return nil
}
