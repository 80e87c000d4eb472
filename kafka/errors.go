package kafka

import (
	"errors"
	"fmt"
)

var (
	// ErrNoConsumerInstances no consumer instances
	ErrNoConsumerInstances = errors.New("kafka: no consumer instances")
	// ErrNilHandler is returned by Start without a handler.
	ErrNilHandler = errors.New("kafka: nil message handler")
	// ErrConsumerClosed is returned by Start after Close.
	ErrConsumerClosed = errors.New("kafka: consumer closed")
)

// ErrInvalidConfig Kafka configuration error
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("kafka: invalid config: %s", msg)
}

// ErrConnection Kafka connection error
func ErrConnection(err error) error {
	return fmt.Errorf("kafka: connection failed: %w", err)
}

// ErrSubscribe subscribe error
func ErrSubscribe(topics []string, err error) error {
	return fmt.Errorf("kafka: subscribe to topics %v failed: %w", topics, err)
}

// ErrConsume consume message error
func ErrConsume(err error) error {
	return fmt.Errorf("kafka: consume message failed: %w", err)
}

// ErrCommit commit message error
func ErrCommit(err error) error {
	return fmt.Errorf("kafka: commit offsets failed: %w", err)
}

// ErrHandle wraps the last handler error once retries run out.
func ErrHandle(topic string, offset Offset, err error) error {
	return fmt.Errorf("kafka: handle message %s@%d failed: %w", topic, offset, err)
}
