package aggregation

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/stockhub/internal/domain/event"
	"github.com/xiebiao/stockhub/pkg/mq"
	"github.com/xiebiao/stockhub/pkg/tracing"
)

// MessageHandler 把入库用例适配为消息处理函数
// 返回error时消息重投（RabbitMQ nack/requeue，Kafka不提交offset）
func MessageHandler(uc *IngestUseCase, log *zap.Logger) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		ctx = tracing.Extract(ctx, msg.Headers)

		evt, err := event.Unmarshal(msg.Body)
		if err != nil {
			// 无法解析的消息重投也没用，只保留消息头里的事件ID记入台账
			log.Warn("消息体无法解析", zap.String("event_id", msg.Headers["eventId"]), zap.Error(err))
			evt = &event.DomainEvent{EventID: msg.Headers["eventId"]}
		}

		_, err = uc.Handle(ctx, evt, msg.Body)
		return err
	}
}
