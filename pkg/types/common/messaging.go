package common

import (
	"context"
	"time"
)

// ProducerMessage is a message to be published to the bus.
type ProducerMessage struct {
	Topic     string            `json:"topic"`
	Key       []byte            `json:"key,omitempty"`
	Value     []byte            `json:"value"`
	Headers   map[string]string `json:"headers,omitempty"`
	Timestamp time.Time         `json:"timestamp,omitempty"`
}

// Message is a message received from the bus.
type Message struct {
	Topic     string            `json:"topic"`
	Partition int               `json:"partition"`
	Offset    int64             `json:"offset"`
	Key       []byte            `json:"key,omitempty"`
	Value     []byte            `json:"value"`
	Headers   map[string]string `json:"headers,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// MessageHandler processes one received message.  Returning an error triggers
// the consumer's retry policy; after the retries are exhausted the message
// goes to the dead-letter topic.
type MessageHandler func(ctx context.Context, msg *Message) error

// BatchPublishResult reports the outcome of a batch publish.
type BatchPublishResult struct {
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	Errors    []error `json:"-"`
}

// TopicConfig describes a topic to be created by the topic manager.
type TopicConfig struct {
	Name              string `json:"name"`
	NumPartitions     int    `json:"num_partitions"`
	ReplicationFactor int    `json:"replication_factor"`
	RetentionMS       int64  `json:"retention_ms,omitempty"`
}
