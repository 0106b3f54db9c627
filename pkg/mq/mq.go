// Package mq 事件传输
//
// 门店节点通过Sender把库存事件发到逻辑通道（默认inventory.events），
// 中心节点通过Receiver消费。两种实现：
//   - RabbitMQ：Topic Exchange，routing key = <channel>.<key>，持久化投递，手动ack
//   - Kafka：消息Key = 分区键（门店编号），同一门店的事件进入同一分区
//
// 语义都是"至少一次"：消费端必须幂等。
package mq

import (
	"context"
	"errors"
	"net"
)

// Message 传输层消息
type Message struct {
	Channel string            // 逻辑通道
	Key     string            // 分区键
	Body    []byte            // 消息体
	Headers map[string]string // 附加头（事件ID、事件类型等）
}

// Sender 发送端
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

// Handler 消息处理函数
// 返回nil表示确认（ack），返回错误表示稍后重投
type Handler func(ctx context.Context, msg Message) error

// Receiver 消费端，阻塞直到ctx取消或连接断开
type Receiver interface {
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

var (
	// ErrUnavailable 代理不可用（连接断开、未连接）
	ErrUnavailable = errors.New("message broker unavailable")

	// ErrClosed 已关闭
	ErrClosed = errors.New("transport closed")
)

// IsTransient 是否为临时性故障（超时、网络、代理不可用）
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// RoutingKey RabbitMQ路由键
func RoutingKey(channel, key string) string {
	if key == "" {
		return channel
	}
	return channel + "." + key
}
