// Package retry 显式的重试策略对象
//
// Executor = {最大尝试次数, 指数退避策略, 可重试错误判定}。
// 库存乐观锁冲突重试和消息发布的同步重试共用这一套实现，只是策略参数不同：
//
//	乐观锁:   5次, 100ms起步, x2, 单次上限2s, 带抖动
//	消息发布: 5次, 1s起步,    x2, 单次上限30s, 带抖动
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy 退避策略
type Policy struct {
	MaxAttempts         int           // 最大尝试次数（含第一次）
	InitialInterval     time.Duration // 第一次重试前的等待
	Multiplier          float64       // 退避倍数
	MaxInterval         time.Duration // 单次等待上限（抖动前）
	RandomizationFactor float64       // 抖动系数，0.5表示在[0.5x, 1.5x]之间随机
}

// ConcurrencyPolicy 乐观锁冲突的默认策略
func ConcurrencyPolicy() Policy {
	return Policy{
		MaxAttempts:         5,
		InitialInterval:     100 * time.Millisecond,
		Multiplier:          2,
		MaxInterval:         2 * time.Second,
		RandomizationFactor: 0.5,
	}
}

// PublishPolicy 消息同步发布的默认策略
func PublishPolicy() Policy {
	return Policy{
		MaxAttempts:         5,
		InitialInterval:     time.Second,
		Multiplier:          2,
		MaxInterval:         30 * time.Second,
		RandomizationFactor: 0.5,
	}
}

func (p Policy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxInterval
	b.RandomizationFactor = p.RandomizationFactor
	b.MaxElapsedTime = 0 // 只按次数终止
	b.Reset()
	return b
}

// ErrExhausted 重试次数耗尽
var ErrExhausted = errors.New("retry attempts exhausted")

// ExhaustedError 携带最后一次错误
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry attempts exhausted after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap 同时暴露ErrExhausted和最后一次错误
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}

// NotifyFunc 每次重试前回调（attempt从1开始，表示刚失败的那次）
type NotifyFunc func(attempt int, err error, wait time.Duration)

// Executor 重试执行器
type Executor struct {
	policy    Policy
	retryable func(error) bool
	notify    NotifyFunc
}

// Option 执行器选项
type Option func(*Executor)

// WithNotify 设置重试回调（通常用于打日志和指标）
func WithNotify(fn NotifyFunc) Option {
	return func(e *Executor) {
		e.notify = fn
	}
}

// NewExecutor 创建重试执行器
// retryable为nil时所有错误都重试
func NewExecutor(policy Policy, retryable func(error) bool, opts ...Option) *Executor {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if retryable == nil {
		retryable = func(error) bool { return true }
	}
	e := &Executor{
		policy:    policy,
		retryable: retryable,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy 当前策略
func (e *Executor) Policy() Policy {
	return e.policy
}

// Do 执行fn，直到成功、遇到不可重试错误、次数耗尽或ctx取消
//
// 返回值：
//   - nil：成功
//   - 不可重试错误：原样返回
//   - 次数耗尽：*ExhaustedError（errors.Is(err, ErrExhausted)为true）
//   - ctx取消：ctx.Err()
func (e *Executor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempt := 0
	var last error

	op := func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		last = err
		if !e.retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(e.policy.newBackOff(), uint64(e.policy.MaxAttempts-1)),
		ctx,
	)

	err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		if e.notify != nil {
			e.notify(attempt, err, wait)
		}
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return ctxErr
	}
	if last != nil && e.retryable(last) && attempt >= e.policy.MaxAttempts {
		return &ExhaustedError{Attempts: attempt, Last: last}
	}
	return err
}
