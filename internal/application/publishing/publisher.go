// Package publishing 库存事件的可靠发布与失败补偿
package publishing

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/stockhub/internal/domain/event"
	"github.com/xiebiao/stockhub/internal/domain/failedevent"
	"github.com/xiebiao/stockhub/pkg/circuitbreaker"
	"github.com/xiebiao/stockhub/pkg/metrics"
	"github.com/xiebiao/stockhub/pkg/mq"
	"github.com/xiebiao/stockhub/pkg/retry"
	"github.com/xiebiao/stockhub/pkg/tracing"
)

const tracerName = "stockhub/publishing"

// Outcome 一次发布的最终结果
type Outcome string

const (
	// OutcomeDelivered 同步投递成功
	OutcomeDelivered Outcome = "delivered"
	// OutcomeQueued 同步投递失败，已落失败事件表等待补偿
	OutcomeQueued Outcome = "queued"
	// OutcomeLost 同步投递失败且落库失败
	OutcomeLost Outcome = "lost"
)

// Config 发布器配置
type Config struct {
	Channel     string              // 逻辑通道，默认inventory.events
	Policy      retry.Policy        // 同步重试策略
	SendTimeout time.Duration       // 单次发送超时
	MaxRetries  int                 // 落库后的最大补偿次数
	Backoff     failedevent.Backoff // 补偿退避
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Channel:     "inventory.events",
		Policy:      retry.PublishPolicy(),
		SendTimeout: 5 * time.Second,
		MaxRetries:  failedevent.DefaultMaxRetries,
		Backoff:     failedevent.DefaultBackoff(),
	}
}

// Publisher 可靠事件发布器
//
// 流程：序列化 → 熔断器保护下发送 → 临时性故障按策略内联重试
// → 仍失败（或遇到不可重试错误）则写入失败事件表，由Scheduler补偿。
// Publish从不向调用方返回错误：库存变更已经提交，发布失败只影响中心节点的同步时效。
type Publisher struct {
	sender   mq.Sender
	breaker  *circuitbreaker.CircuitBreaker
	store    failedevent.Repository
	executor *retry.Executor
	cfg      Config
	now      func() time.Time
	log      *zap.Logger
}

// Option 发布器选项
type Option func(*Publisher)

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// NewPublisher 创建发布器
func NewPublisher(sender mq.Sender, breaker *circuitbreaker.CircuitBreaker, store failedevent.Repository, cfg Config, log *zap.Logger, opts ...Option) *Publisher {
	if cfg.Channel == "" {
		cfg.Channel = "inventory.events"
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 5 * time.Second
	}

	metrics.InitMetrics()

	p := &Publisher{
		sender:  sender,
		breaker: breaker,
		store:   store,
		cfg:     cfg,
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.executor = retry.NewExecutor(cfg.Policy, IsTransient, retry.WithNotify(func(attempt int, err error, wait time.Duration) {
		p.log.Warn("事件发布失败，准备重试",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}))

	return p
}

// IsTransient 可内联重试的错误：超时、网络、代理不可用、熔断打开
func IsTransient(err error) bool {
	return errors.Is(err, circuitbreaker.ErrOpenState) || mq.IsTransient(err)
}

// Publish 发布一条领域事件
func (p *Publisher) Publish(ctx context.Context, evt *event.DomainEvent) Outcome {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Publisher.Publish")
	span.SetAttributes(
		attribute.String("event.id", evt.EventID),
		attribute.String("event.type", string(evt.Type)),
		attribute.String("store.id", evt.StoreID),
	)

	start := time.Now()
	outcome, err := p.publish(ctx, evt)

	metrics.ObserveHistogram(metrics.EventPublishDuration, time.Since(start).Seconds())
	metrics.IncCounterVec(metrics.EventsPublishedTotal, map[string]string{"outcome": string(outcome)})
	span.SetAttributes(attribute.String("publish.outcome", string(outcome)))
	tracing.EndSpan(span, err)

	return outcome
}

func (p *Publisher) publish(ctx context.Context, evt *event.DomainEvent) (Outcome, error) {
	body, err := evt.Marshal()
	if err != nil {
		p.log.Error("事件序列化失败，事件丢失", zap.String("event_id", evt.EventID), zap.Error(err))
		return OutcomeLost, err
	}

	msg := p.message(ctx, evt.EventID, string(evt.Type), evt.PartitionKey(), p.cfg.Channel, body)

	sendErr := p.executor.Do(ctx, func(ctx context.Context) error {
		return p.send(ctx, msg)
	})
	if sendErr == nil {
		p.log.Debug("事件已发布", zap.String("event_id", evt.EventID), zap.String("store_id", evt.StoreID))
		return OutcomeDelivered, nil
	}

	p.log.Warn("事件同步发布失败，转入失败事件表",
		zap.String("event_id", evt.EventID),
		zap.String("sku", evt.SKU),
		zap.String("store_id", evt.StoreID),
		zap.Error(sendErr),
	)

	fe := failedevent.New(failedevent.NewParams{
		EventID:      evt.EventID,
		EventType:    string(evt.Type),
		Destination:  p.cfg.Channel,
		PartitionKey: evt.PartitionKey(),
		Payload:      body,
		MaxRetries:   p.cfg.MaxRetries,
		LastError:    sendErr.Error(),
	}, p.cfg.Backoff, p.now())

	// 调用方的ctx可能已经取消（客户端断开），落库不能跟着取消
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := p.store.Save(saveCtx, fe); err != nil {
		p.log.Error("失败事件落库失败，事件丢失",
			zap.String("event_id", evt.EventID),
			zap.String("sku", evt.SKU),
			zap.String("store_id", evt.StoreID),
			zap.ByteString("payload", body),
			zap.NamedError("send_error", sendErr),
			zap.Error(err),
		)
		return OutcomeLost, errors.Join(sendErr, err)
	}

	return OutcomeQueued, sendErr
}

// Resend 补偿重发一条失败事件（单次尝试，退避由失败事件自身的nextRetryAt控制）
func (p *Publisher) Resend(ctx context.Context, fe *failedevent.FailedEvent) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Publisher.Resend")
	span.SetAttributes(
		attribute.String("event.id", fe.EventID),
		attribute.Int("retry.count", fe.RetryCount),
	)

	msg := p.message(ctx, fe.EventID, fe.EventType, fe.PartitionKey, fe.Destination, fe.Payload)
	err := p.send(ctx, msg)

	tracing.EndSpan(span, err)
	return err
}

// send 熔断器保护下的单次发送
func (p *Publisher) send(ctx context.Context, msg mq.Message) error {
	name := p.breaker.Name()

	err := p.breaker.Execute(func() error {
		sendCtx, cancel := context.WithTimeout(ctx, p.cfg.SendTimeout)
		defer cancel()
		return p.sender.Send(sendCtx, msg)
	})

	result := "success"
	switch {
	case errors.Is(err, circuitbreaker.ErrOpenState):
		result = "rejected"
	case err != nil:
		result = "failure"
	}
	metrics.IncCounterVec(metrics.CircuitBreakerRequests, map[string]string{"name": name, "result": result})
	return err
}

func (p *Publisher) message(ctx context.Context, eventID, eventType, key, channel string, body []byte) mq.Message {
	headers := map[string]string{
		"eventId":      eventID,
		"eventType":    eventType,
		"partitionKey": key,
	}
	tracing.Inject(ctx, headers)

	return mq.Message{
		Channel: channel,
		Key:     key,
		Body:    body,
		Headers: headers,
	}
}

// ObserveBreaker 熔断器状态变化写入指标和日志
func ObserveBreaker(cb *circuitbreaker.CircuitBreaker, log *zap.Logger) {
	metrics.InitMetrics()
	metrics.SetGaugeVec(metrics.CircuitBreakerState, map[string]string{"name": cb.Name()}, float64(cb.State()))
	cb.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		metrics.SetGaugeVec(metrics.CircuitBreakerState, map[string]string{"name": name}, float64(to))
		log.Warn("熔断器状态变化",
			zap.String("name", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
}
