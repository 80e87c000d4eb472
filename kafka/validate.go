package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/datakit/logger"
	"github.com/dailyyoga/datakit/retry"
	"go.uber.org/zap"
)

var clusterCheckPolicy = retry.Policy{
	MaxRetries: 2,
	BaseDelay:  2 * time.Second,
	Backoff:    retry.Linear,
}

// validateKafkaCluster validates the kafka cluster connection
func validateKafkaCluster(ctx context.Context, log logger.Logger, brokers []string) error {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(brokers, ","),
		"request.timeout.ms": 10000, // 10s
	}

	policy := clusterCheckPolicy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.Warn("failed to create kafka admin client, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", policy.MaxRetries),
			zap.Duration("backoff", delay),
		)
	}

	adminClient, err := retry.Do(ctx, policy, func(context.Context) (*kafka.AdminClient, error) {
		return kafka.NewAdminClient(configMap)
	})
	if err != nil {
		return ErrConnection(fmt.Errorf("create admin client: %w", err))
	}
	defer adminClient.Close()

	// try to get cluster metadata to verify connection
	if _, err = adminClient.GetMetadata(nil, false, int((10 * time.Second).Milliseconds())); err != nil {
		return ErrConnection(err)
	}

	log.Info("kafka brokers connection validated", zap.Strings("brokers", brokers))
	return nil
}
