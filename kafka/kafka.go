// Package kafka consumes change events from Kafka topics.
//
// Each consumer instance polls on its own goroutine and hands messages to a
// ConsumerMsgHandler. Offsets are committed only after the handler succeeds,
// unless auto commit is enabled.
package kafka

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Message is the message of a kafka message
type Message struct {
	Value          []byte
	Key            []byte
	Timestamp      time.Time
	TopicPartition TopicPartition
	Headers        []Header
}

// GetHeader gets the header value by key
func (m *Message) GetHeader(k string) []byte {
	for _, header := range m.Headers {
		if header.Key == k {
			return header.Value
		}
	}
	return nil
}

// Topic returns the topic name or "" when unset.
func (m *Message) Topic() string {
	if m.TopicPartition.Topic == nil {
		return ""
	}
	return *m.TopicPartition.Topic
}

// TopicPartition is the topic and partition of a kafka message
type TopicPartition struct {
	Topic     *string
	Partition int32
	Offset    Offset
}

// Offset is the offset of a kafka message
type Offset int64

// Header is the header of a kafka message
type Header struct {
	Key   string
	Value []byte
}

// ConsumerMsgHandler is the function type for handling a single message from kafka
type ConsumerMsgHandler func(ctx context.Context, msg *Message) error

// Consumer is the interface for kafka consumer
type Consumer interface {
	Start(ctx context.Context, handler ConsumerMsgHandler) error
	Close() error
}

// toMessage copies a confluent message into a Message.
func toMessage(msg *kafka.Message) *Message {
	message := &Message{
		Value:     msg.Value,
		Key:       msg.Key,
		Timestamp: msg.Timestamp,
		TopicPartition: TopicPartition{
			Topic:     msg.TopicPartition.Topic,
			Partition: msg.TopicPartition.Partition,
			Offset:    Offset(msg.TopicPartition.Offset),
		},
		Headers: make([]Header, len(msg.Headers)),
	}

	for i, header := range msg.Headers {
		message.Headers[i] = Header{
			Key:   header.Key,
			Value: header.Value,
		}
	}

	return message
}
