package realtime

import (
	"context"

	"github.com/dailyyoga/datakit/kafka"
	"github.com/dailyyoga/datakit/logger"
	"go.uber.org/zap"
)

// Handler adapts d to a Kafka consumer. Malformed messages are logged and
// skipped so their offsets commit; a closed dispatcher fails the message.
func Handler(log logger.Logger, d *Dispatcher) kafka.ConsumerMsgHandler {
	log = logger.OrNop(log)
	return func(_ context.Context, msg *kafka.Message) error {
		c, err := Decode(msg.Value)
		if err != nil {
			log.Warn("realtime message skipped",
				zap.String("topic", msg.Topic()),
				zap.Int64("offset", int64(msg.TopicPartition.Offset)),
				zap.Error(err),
			)
			return nil
		}
		return d.Publish(c)
	}
}
