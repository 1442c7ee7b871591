package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// AccountLinked is emitted after an external identity has been durably
// linked to a platform account.
const AccountLinked = "identity.account_linked"

// Envelope is the wire format for every event this service publishes.
type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Source  string          `json:"source"`
	Time    time.Time       `json:"time"`
	Payload json.RawMessage `json:"payload"`
}

// AccountLinkedPayload carries the link facts for AccountLinked events.
type AccountLinkedPayload struct {
	UserID     string    `json:"user_id"`
	Provider   string    `json:"provider"`
	ExternalID string    `json:"external_id"`
	LinkedAt   time.Time `json:"linked_at"`
}

// Producer publishes service events to Kafka. Callers decide whether a
// publish failure matters; the producer itself just reports it.
type Producer struct {
	writer *kafka.Writer
	source string
}

// NewProducer builds a Kafka producer for the given brokers and topic.
func NewProducer(brokers []string, topic, source string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		source: source,
	}
}

// Publish wraps the payload in an Envelope and writes it, keyed by
// subject so events for one user stay ordered within a partition.
func (p *Producer) Publish(ctx context.Context, eventType, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: marshal payload: %w", err)
	}

	env := Envelope{
		ID:      uuid.NewString(),
		Type:    eventType,
		Source:  p.source,
		Time:    time.Now().UTC(),
		Payload: data,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(subject),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: write %s: %w", eventType, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
