package mq

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	exchangeType = "topic"

	// dialTimeout ctx没有截止时间时，建连和AMQP握手的上限
	dialTimeout = 10 * time.Second
)

// RabbitPublisher RabbitMQ发送端
//
// 开启publisher confirm：Send只有在broker确认后才返回nil。
// 连接在第一次Send时建立，断开后下一次Send自动重连；
// 建连受Send的ctx截止时间约束，且不持有锁，慢连接不会阻塞其他发送。
type RabbitPublisher struct {
	url      string
	exchange string
	log      *zap.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool
}

// NewRabbitPublisher 创建发送端，不立即连接
// broker不可用时事件会走失败事件表，由补偿任务在broker恢复后重发
func NewRabbitPublisher(url, exchange string, log *zap.Logger) *RabbitPublisher {
	return &RabbitPublisher{url: url, exchange: exchange, log: log}
}

// dialAMQP 按ctx截止时间建立TCP连接并完成AMQP握手
// 握手完成后amqp091会清除连接上的deadline
func dialAMQP(ctx context.Context, url string) (*amqp.Connection, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dialTimeout)
		defer cancel()
	}

	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			var d net.Dialer
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if deadline, ok := ctx.Deadline(); ok {
				if err := conn.SetDeadline(deadline); err != nil {
					conn.Close()
					return nil, err
				}
			}
			return conn, nil
		},
	})
}

// connect 建立连接、Channel，声明Exchange并开启confirm模式
func (p *RabbitPublisher) connect(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := dialAMQP(ctx, p.url)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: 连接RabbitMQ失败: %v", ErrUnavailable, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("%w: 创建Channel失败: %v", ErrUnavailable, err)
	}

	// Durable=true：broker重启后Exchange不丢失
	if err := ch.ExchangeDeclare(p.exchange, exchangeType, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("声明Exchange失败: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("开启confirm模式失败: %w", err)
	}

	return conn, ch, nil
}

// session 返回可用的Channel，必要时重连
func (p *RabbitPublisher) session(ctx context.Context) (*amqp.Channel, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if p.healthyLocked() {
		ch := p.channel
		p.mu.Unlock()
		return ch, nil
	}
	p.resetLocked()
	p.mu.Unlock()

	conn, ch, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		ch.Close()
		conn.Close()
		return nil, ErrClosed
	}
	// 并发重连时保留先建好的连接
	if p.healthyLocked() {
		ch.Close()
		conn.Close()
		return p.channel, nil
	}

	p.conn, p.channel = conn, ch
	p.log.Info("RabbitMQ发送端已连接", zap.String("exchange", p.exchange))
	return ch, nil
}

func (p *RabbitPublisher) healthyLocked() bool {
	return p.conn != nil && !p.conn.IsClosed() && p.channel != nil && !p.channel.IsClosed()
}

// Send 发送一条持久化消息并等待broker确认
func (p *RabbitPublisher) Send(ctx context.Context, msg Message) error {
	ch, err := p.session(ctx)
	if err != nil {
		return err
	}

	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}

	dc, err := ch.PublishWithDeferredConfirmWithContext(
		ctx,
		p.exchange,
		RoutingKey(msg.Channel, msg.Key),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    msg.Headers["eventId"],
			Headers:      headers,
			Body:         msg.Body,
		},
	)
	if err != nil {
		return classifyAMQPError(err)
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return classifyAMQPError(err)
	}
	if !acked {
		return fmt.Errorf("%w: broker拒绝消息", ErrUnavailable)
	}
	return nil
}

func (p *RabbitPublisher) resetLocked() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

// Close 关闭发送端
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.resetLocked()
	return nil
}

func classifyAMQPError(err error) error {
	var amqpErr *amqp.Error
	if errors.Is(err, amqp.ErrClosed) || (errors.As(err, &amqpErr) && amqpErr.Recover) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// RabbitConsumer RabbitMQ消费端
type RabbitConsumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    string
	prefetch int
	log      *zap.Logger
}

// NewRabbitConsumer 声明Exchange、持久化队列并绑定路由键
// bindingKeys支持通配符，如inventory.events.#
func NewRabbitConsumer(url, exchange, queue string, bindingKeys []string, prefetch int, log *zap.Logger) (*RabbitConsumer, error) {
	conn, err := dialAMQP(context.Background(), url)
	if err != nil {
		return nil, fmt.Errorf("%w: 连接RabbitMQ失败: %v", ErrUnavailable, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	closeAll := func() {
		ch.Close()
		conn.Close()
	}

	if err := ch.ExchangeDeclare(exchange, exchangeType, true, false, false, false, nil); err != nil {
		closeAll()
		return nil, fmt.Errorf("声明Exchange失败: %w", err)
	}

	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("声明Queue失败: %w", err)
	}

	for _, key := range bindingKeys {
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			closeAll()
			return nil, fmt.Errorf("绑定Queue失败: %w", err)
		}
	}

	if prefetch <= 0 {
		prefetch = 10
	}

	log.Info("RabbitMQ消费端已创建", zap.String("queue", q.Name), zap.Strings("binding_keys", bindingKeys))

	return &RabbitConsumer{conn: conn, channel: ch, queue: q.Name, prefetch: prefetch, log: log}, nil
}

// Consume 手动确认消费
// handler返回错误时Nack并重新入队，返回nil时Ack
func (c *RabbitConsumer) Consume(ctx context.Context, handler Handler) error {
	if err := c.channel.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("设置Qos失败: %w", err)
	}

	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("开始消费失败: %w", err)
	}

	c.log.Info("开始消费", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			c.log.Info("消费者退出", zap.String("queue", c.queue))
			return nil

		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: 消息Channel已关闭", ErrUnavailable)
			}

			msg := Message{
				Channel: d.RoutingKey,
				Body:    d.Body,
				Headers: stringHeaders(d.Headers),
			}
			msg.Key = msg.Headers["partitionKey"]

			if err := handler(ctx, msg); err != nil {
				c.log.Warn("消息处理失败，重新入队",
					zap.String("routing_key", d.RoutingKey),
					zap.String("message_id", d.MessageId),
					zap.Error(err),
				)
				if nackErr := d.Nack(false, true); nackErr != nil {
					return classifyAMQPError(nackErr)
				}
				continue
			}

			if err := d.Ack(false); err != nil {
				return classifyAMQPError(err)
			}
		}
	}
}

// Close 关闭消费端
func (c *RabbitConsumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func stringHeaders(t amqp.Table) map[string]string {
	out := make(map[string]string, len(t))
	for k, v := range t {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
