package mq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaWriter Kafka发送端
// 使用Hash分区器：同一Key（门店编号）总是落到同一分区
type KafkaWriter struct {
	writer *kafka.Writer
}

// NewKafkaWriter 创建发送端（kafka-go的Writer惰性连接）
func NewKafkaWriter(brokers []string, topic string) *KafkaWriter {
	return &KafkaWriter{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

// Send 同步写入，所有副本确认后返回
func (w *KafkaWriter) Send(ctx context.Context, msg Message) error {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	err := w.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.Key),
		Value:   msg.Body,
		Headers: headers,
		Time:    time.Now(),
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, io.ErrClosedPipe) || isKafkaTemporary(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// Close 关闭发送端
func (w *KafkaWriter) Close() error {
	return w.writer.Close()
}

// KafkaReader Kafka消费端（消费组）
//
// 只有handler成功后才提交offset。handler失败时按指数退避原地重试同一条消息，
// 不会跳过，保证同一分区内事件有序。
type KafkaReader struct {
	reader *kafka.Reader
	log    *zap.Logger
	retry  func() backoff.BackOff
}

// NewKafkaReader 创建消费端
func NewKafkaReader(brokers []string, topic, groupID string, log *zap.Logger) *KafkaReader {
	return &KafkaReader{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		log: log,
		retry: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Consume 拉取-处理-提交
func (r *KafkaReader) Consume(ctx context.Context, handler Handler) error {
	r.log.Info("开始消费", zap.String("topic", r.reader.Config().Topic), zap.String("group_id", r.reader.Config().GroupID))

	for {
		m, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				r.log.Info("消费者退出")
				return nil
			}
			return fmt.Errorf("%w: 拉取消息失败: %v", ErrUnavailable, err)
		}

		msg := Message{
			Channel: m.Topic,
			Key:     string(m.Key),
			Body:    m.Value,
			Headers: make(map[string]string, len(m.Headers)),
		}
		for _, h := range m.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}

		err = backoff.RetryNotify(
			func() error { return handler(ctx, msg) },
			backoff.WithContext(r.retry(), ctx),
			func(err error, wait time.Duration) {
				r.log.Warn("消息处理失败，稍后重试",
					zap.Int("partition", m.Partition),
					zap.Int64("offset", m.Offset),
					zap.Duration("wait", wait),
					zap.Error(err),
				)
			},
		)
		if err != nil {
			// 只会是ctx取消
			return nil
		}

		if err := r.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("提交offset失败: %w", err)
		}
	}
}

// Close 关闭消费端
func (r *KafkaReader) Close() error {
	return r.reader.Close()
}

func isKafkaTemporary(err error) bool {
	var werr kafka.WriteErrors
	if errors.As(err, &werr) {
		for _, e := range werr {
			if e != nil && !isKafkaTemporary(e) {
				return false
			}
		}
		return true
	}
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}
	return IsTransient(err)
}
