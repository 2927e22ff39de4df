package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/pkg/types/common"
)

type fakeWriter struct {
	written []kafka.Message
	err     error
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, logging.NewNopLogger())

	err := p.Publish(context.Background(), &common.ProducerMessage{
		Topic:   TopicLicenseUpdated,
		Key:     []byte("prov-1"),
		Value:   []byte(`{"license_id":"lic-1"}`),
		Headers: map[string]string{"event_type": "license.upserted"},
	})
	require.NoError(t, err)

	require.Len(t, w.written, 1)
	assert.Equal(t, TopicLicenseUpdated, w.written[0].Topic)
	assert.Equal(t, []byte("prov-1"), w.written[0].Key)
	require.Len(t, w.written[0].Headers, 1)
	assert.Equal(t, "event_type", w.written[0].Headers[0].Key)
	assert.EqualValues(t, 1, p.Sent())
}

func TestProducer_Publish_RequiresTopicAndValue(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{}, logging.NewNopLogger())

	assert.Error(t, p.Publish(context.Background(), &common.ProducerMessage{Value: []byte("x")}))
	assert.Error(t, p.Publish(context.Background(), &common.ProducerMessage{Topic: "t"}))
}

func TestProducer_Publish_AfterClose(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{}, logging.NewNopLogger())
	require.NoError(t, p.Close())

	err := p.Publish(context.Background(), &common.ProducerMessage{Topic: "t", Value: []byte("x")})
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestProducer_PublishBatch_PartialFailure(t *testing.T) {
	w := &fakeWriter{err: kafka.WriteErrors{nil, assert.AnError}}
	p := NewProducerWithWriter(w, logging.NewNopLogger())

	msgs := []*common.ProducerMessage{
		{Topic: "t", Value: []byte("a")},
		{Topic: "t", Value: []byte("b")},
	}
	result, err := p.PublishBatch(context.Background(), msgs)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, result.Errors, 1)
}

func TestProducer_CloseIsIdempotent(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, logging.NewNopLogger())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(configWithBrokers(nil), logging.NewNopLogger())
	assert.Error(t, err)
}
