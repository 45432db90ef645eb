package producer

import (
	"context"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/kafka"
)

// MessageWriter is the slice of Producer a Publisher writes through.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// Publisher writes kafka.Event envelopes as JSON.
type Publisher struct {
	w MessageWriter
}

func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{w: w}
}

// Publish writes event to topic.
func (p *Publisher) Publish(ctx context.Context, topic string, event kafka.Event) error {
	msg, err := encode(topic, event)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// encode keys the message by subject, falling back to the event id, so
// every event of one job lands on the same partition in order.
func encode(topic string, event kafka.Event) (kafkago.Message, error) {
	value, err := event.ToJSON()
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("encode %s: %w", event.Type, err)
	}
	key := event.ID
	if event.Subject != "" {
		key = event.Subject
	}
	headers := make([]kafkago.Header, 0, 3)
	for k, v := range map[string]string{
		"event-id":     event.ID,
		"event-type":   event.Type,
		"content-type": "application/json",
	} {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return kafkago.Message{Topic: topic, Key: []byte(key), Value: value, Headers: headers, Time: event.Timestamp}, nil
}
