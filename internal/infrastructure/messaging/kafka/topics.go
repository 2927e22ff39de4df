// Package kafka provides the event producer, the ingest consumer, and the
// topic catalogue for the platform's message bus.
package kafka

import (
	"encoding/json"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/openregulatory/licensure/internal/config"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/pkg/errors"
	"github.com/openregulatory/licensure/pkg/types/common"
)

// Topic catalogue.  Board uploads land on the raw topic; the worker
// normalizes them and emits canonical events on the updated topic.
const (
	TopicLicenseRecordsRaw = "licensure.records.raw"
	TopicLicenseUpdated    = "licensure.license.updated"
	TopicDeadLetter        = "licensure.records.dlq"
)

// EventEnvelope is the wire shape of every event the platform publishes.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEventEnvelope wraps a payload in the standard envelope.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessageQueue, "encoding event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the envelope payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 {
		return errors.New(errors.ErrCodeMessageQueue, "event payload is empty")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeMessageQueue, "decoding event payload")
	}
	return nil
}

// PlatformTopics returns the topics the deployment needs, shaped by the
// Kafka section of the config.
func PlatformTopics(cfg config.KafkaConfig) []common.TopicConfig {
	partitions := cfg.NumPartitions
	if partitions <= 0 {
		partitions = 3
	}
	replication := cfg.ReplicationFactor
	if replication <= 0 {
		replication = 1
	}
	return []common.TopicConfig{
		{Name: TopicLicenseRecordsRaw, NumPartitions: partitions, ReplicationFactor: replication},
		{Name: TopicLicenseUpdated, NumPartitions: partitions, ReplicationFactor: replication},
		{Name: TopicDeadLetter, NumPartitions: 1, ReplicationFactor: replication},
	}
}

// EnsureTopics creates any missing topics.  Intended for development and
// single-cluster deployments where auto-creation is enabled in config.
func EnsureTopics(cfg config.KafkaConfig, log logging.Logger) error {
	if !cfg.AutoCreateTopics {
		return nil
	}
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "kafka brokers are required")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMessageQueue, "dialing kafka broker")
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMessageQueue, "resolving kafka controller")
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMessageQueue, "dialing kafka controller")
	}
	defer controllerConn.Close()

	var topicConfigs []kafka.TopicConfig
	for _, t := range PlatformTopics(cfg) {
		topicConfigs = append(topicConfigs, kafka.TopicConfig{
			Topic:             t.Name,
			NumPartitions:     t.NumPartitions,
			ReplicationFactor: t.ReplicationFactor,
		})
	}

	if err := controllerConn.CreateTopics(topicConfigs...); err != nil {
		return errors.Wrap(err, errors.ErrCodeMessageQueue, "creating kafka topics")
	}
	log.Info("kafka topics ensured", logging.Int("count", len(topicConfigs)))
	return nil
}
