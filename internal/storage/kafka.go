package storage

import (
	"context"
	"encoding/json"
	"fmt"

	kafka "github.com/segmentio/kafka-go"

	"github.com/IIP-Design/orchestra/internal/config"
	"github.com/IIP-Design/orchestra/internal/sources"
)

// Compile-time interface check.
var _ Sink = (*KafkaPublisher)(nil)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message is the JSON value published for each resource.
type Message struct {
	Website  string           `json:"website"`
	Resource sources.Resource `json:"resource"`
}

// KafkaPublisher publishes one message per resource, keyed by
// "<website>/<id>" so updates to a resource land on the same partition.
type KafkaPublisher struct {
	w MessageWriter
}

// NewKafkaPublisher creates a publisher writing to cfg.Topic on cfg.Brokers.
func NewKafkaPublisher(cfg config.Publish) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{},
	})
}

// NewKafkaPublisherWithWriter creates a publisher on an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Store(ctx context.Context, website string, resources []sources.Resource) error {
	if len(resources) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(resources))
	for _, r := range resources {
		value, err := json.Marshal(Message{Website: website, Resource: r})
		if err != nil {
			return fmt.Errorf("storage: encode resource %s/%s: %w", website, r.ID(), err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(website + "/" + r.ID()),
			Value:   value,
			Headers: []kafka.Header{{Key: "website", Value: []byte(website)}},
		})
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("storage: publish %d resources from %s: %w", len(msgs), website, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
