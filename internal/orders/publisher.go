package orders

import (
	"context"
	"fmt"
	"time"

	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, env Envelope) error
}

func NewEnvelope(eventType, producer, traceID, orderID string, payload any) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
}

// KafkaPublisher routes envelopes to one producer per topic.
type KafkaPublisher struct {
	Producers map[string]*kafkax.Producer
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, env Envelope) error {
	prod, ok := p.Producers[topic]
	if !ok {
		return fmt.Errorf("no producer for topic %s", topic)
	}
	return prod.Publish(ctx, PartitionKey(env.CorrelationID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
