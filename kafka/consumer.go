package kafka

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dailyyoga/datakit/logger"
)

type defaultConsumer struct {
	consumerInstances []*consumeInstance

	closed atomic.Bool
}

// NewConsumer validates config, checks that the brokers are reachable and
// subscribes InstanceNum consumers to the configured topics.
func NewConsumer(ctx context.Context, log logger.Logger, config *ConsumerConfig) (Consumer, error) {
	log = logger.OrNop(log)
	if config == nil {
		config = DefaultConsumerConfig()
	} else {
		merged := *config
		config = &merged
	}
	config.MergeDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := validateKafkaCluster(ctx, log, config.Brokers); err != nil {
		return nil, err
	}

	consumerInstances := make([]*consumeInstance, 0, config.InstanceNum)
	for i := 0; i < config.InstanceNum; i++ {
		instanceName := fmt.Sprintf("%s-instance-%d", config.GroupID, i+1)
		instance, err := newConsumeInstance(instanceName, config, log)
		if err != nil {
			for _, started := range consumerInstances {
				_ = started.Close()
			}
			return nil, err
		}
		consumerInstances = append(consumerInstances, instance)
	}

	return &defaultConsumer{consumerInstances: consumerInstances}, nil
}

// Start starts the kafka consumer
func (c *defaultConsumer) Start(ctx context.Context, handler ConsumerMsgHandler) error {
	if handler == nil {
		return ErrNilHandler
	}
	if c.closed.Load() {
		return ErrConsumerClosed
	}
	if len(c.consumerInstances) == 0 {
		return ErrNoConsumerInstances
	}

	for _, instance := range c.consumerInstances {
		if err := instance.Start(ctx, handler); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the kafka consumer
func (c *defaultConsumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	if len(c.consumerInstances) == 0 {
		return ErrNoConsumerInstances
	}

	var firstErr error
	for _, instance := range c.consumerInstances {
		if err := instance.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
