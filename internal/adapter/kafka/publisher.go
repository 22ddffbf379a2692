// Package kafka publishes filtered earthquake events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/quake-explorer/internal/domain"
)

// Header keys set on every published message.
const (
	HeaderQueryID   = "query_id"
	HeaderMagnitude = "magnitude"
)

// messageWriter is the subset of *kafkago.Writer used by Publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per event to a Kafka topic.
// It implements pipeline.EventPublisher.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes events and writes them in a single WriteMessages call.
// Messages are keyed by event id so updates to one event share a partition.
func (p *Publisher) Publish(ctx context.Context, queryID string, events []domain.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(queryID, events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	p.logger.Debug("events published", "query_id", queryID, "count", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an EventRecord into a Kafka message. The
// magnitude header is empty when the magnitude is unknown.
func serializeToMessage(queryID string, event domain.EventRecord) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize event %s: %w", event.ID, err)
	}
	var mag string
	if m, ok := event.Magnitude.Get(); ok {
		mag = strconv.FormatFloat(m, 'f', -1, 64)
	}
	return kafkago.Message{
		Key:   []byte(event.ID),
		Value: data,
		Time:  event.Time,
		Headers: []kafkago.Header{
			{Key: HeaderQueryID, Value: []byte(queryID)},
			{Key: HeaderMagnitude, Value: []byte(mag)},
		},
	}, nil
}
