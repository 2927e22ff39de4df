package kafka

import (
	"context"
	"encoding/json"

	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/pkg/errors"
	"github.com/openregulatory/licensure/pkg/types/common"
)

// EventPublisher adapts the Producer to the application layer's publisher
// contract.  Every event goes to the license-updated topic wrapped in the
// standard envelope, keyed by aggregate ID so a provider's events stay
// ordered within a partition.
type EventPublisher struct {
	producer *Producer
	source   string
	logger   logging.Logger
}

// NewEventPublisher builds the adapter.  source names the emitting binary
// ("worker", "apiserver") in the envelope.
func NewEventPublisher(producer *Producer, source string, log logging.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, source: source, logger: log}
}

// Publish wraps the payload in an envelope and sends it to the bus.
func (p *EventPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, p.source, payload)
	if err != nil {
		return err
	}

	data, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMessageQueue, "encoding event envelope")
	}

	var key []byte
	if evt, ok := payload.(common.DomainEvent); ok {
		key = []byte(evt.AggregateID())
	}

	return p.producer.Publish(ctx, &common.ProducerMessage{
		Topic: TopicLicenseUpdated,
		Key:   key,
		Value: data,
		Headers: map[string]string{
			"event_type": eventType,
		},
	})
}
