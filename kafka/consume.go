package kafka

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/datakit/logger"
	"github.com/dailyyoga/datakit/retry"
	"github.com/dailyyoga/datakit/routine"
	"go.uber.org/zap"
)

// consumeInstance represents a single kafka consumer instance
type consumeInstance struct {
	logger logger.Logger
	runner routine.Runner

	config *ConsumerConfig
	name   string
	c      *kafka.Consumer

	closed atomic.Bool
}

func newConsumeInstance(name string, config *ConsumerConfig, log logger.Logger) (*consumeInstance, error) {
	consumer, err := kafka.NewConsumer(config.BuildConfigMap())
	if err != nil {
		return nil, ErrConnection(err)
	}

	if err := consumer.SubscribeTopics(config.Topics, nil); err != nil {
		consumer.Close()
		return nil, ErrSubscribe(config.Topics, err)
	}

	return &consumeInstance{
		config: config,
		name:   name,
		c:      consumer,
		logger: log,
		runner: routine.New(log),
	}, nil
}

// Start starts the kafka consumer consume loop
func (c *consumeInstance) Start(ctx context.Context, handler ConsumerMsgHandler) error {
	c.runner.GoNamedWithContext(ctx, c.name, func(ctx context.Context) {
		if err := c.consumeLoop(ctx, handler); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka consumer loop exited with error",
				zap.String("instance_name", c.name),
				zap.Error(err))
		}
	})
	c.logger.Info("kafka consumer instance started", zap.String("instance_name", c.name))
	return nil
}

// Close stops the consume loop and closes the underlying consumer. The loop
// notices within one poll timeout.
func (c *consumeInstance) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.runner.Wait()
	if err := c.c.Close(); err != nil {
		return ErrConnection(err)
	}
	c.logger.Info("kafka consumer instance closed", zap.String("instance_name", c.name))
	return nil
}

// consumeLoop is the main loop for consuming messages from kafka
func (c *consumeInstance) consumeLoop(ctx context.Context, handler ConsumerMsgHandler) error {
	pollMs := int(c.config.PollTimeout.Milliseconds())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.closed.Load() {
			return nil
		}

		ev := c.c.Poll(pollMs)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			if err := c.handleMessage(ctx, e, handler); err != nil {
				// The offset stays uncommitted; the message is redelivered
				// after a rebalance or restart.
				c.logger.Error("kafka consumer handle message failed",
					zap.String("instance_name", c.name),
					zap.Int32("partition", e.TopicPartition.Partition),
					zap.Int64("offset", int64(e.TopicPartition.Offset)),
					zap.Error(err),
				)
			}
		case kafka.Error:
			c.logger.Error("kafka consumer error", zap.Int("code", int(e.Code())), zap.String("error", e.String()))

			if e.Code() == kafka.ErrAllBrokersDown {
				c.logger.Error("all kafka brokers are down", zap.Error(e))
				return ErrConsume(e)
			}
		case kafka.OffsetsCommitted:
			if e.Error != nil {
				c.logger.Error("failed to commit offsets", zap.Error(e.Error))
			}
		default:
			c.logger.Debug("received unknown event", zap.String("type", fmt.Sprintf("%T", e)))
		}
	}
}

// handleMessage runs the handler and commits the offset on success.
func (c *consumeInstance) handleMessage(ctx context.Context, msg *kafka.Message, handler ConsumerMsgHandler) error {
	startTime := time.Now()

	m := toMessage(msg)
	if err := c.process(ctx, m, handler); err != nil {
		return err
	}

	if !c.config.EnableAutoCommit {
		if _, err := c.c.CommitMessage(msg); err != nil {
			return ErrCommit(err)
		}
	}

	c.logger.Debug("kafka consumer instance processed message successfully",
		zap.String("topic", m.Topic()),
		zap.Int32("partition", m.TopicPartition.Partition),
		zap.Int64("offset", int64(m.TopicPartition.Offset)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// process calls handler with retries. A handler panic counts as a failed
// attempt.
func (c *consumeInstance) process(ctx context.Context, msg *Message, handler ConsumerMsgHandler) error {
	policy := retry.Policy{
		MaxRetries: c.config.MaxRetries,
		BaseDelay:  c.config.RetryDelay,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			c.logger.Warn("kafka message handler failed, retrying",
				zap.String("topic", msg.Topic()),
				zap.Int64("offset", int64(msg.TopicPartition.Offset)),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
				zap.Error(err),
			)
		},
	}

	_, err := retry.Do(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, routine.Safe(c.logger, c.name, func() error {
			return handler(ctx, msg)
		})
	})
	if err != nil {
		return ErrHandle(msg.Topic(), msg.TopicPartition.Offset, err)
	}
	return nil
}
