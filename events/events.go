// Package events publishes job lifecycle events. With Kafka enabled they go
// to a topic through kafka/producer; otherwise Nop drops them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/logger"
)

// Event types.
const (
	TypeDispatched = "job.dispatched"
	TypeCompleted  = "job.completed"
	TypeFailed     = "job.failed"
)

const (
	source  = "scribe"
	version = "1"
)

// JobEvent is the payload of a lifecycle event.
type JobEvent struct {
	Type        string   `json:"-"`
	JobID       string   `json:"job_id"`
	UserID      string   `json:"user_id,omitempty"`
	Status      string   `json:"status,omitempty"`
	Suppliers   []string `json:"suppliers,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	DurationSec int      `json:"duration_sec,omitempty"`
	CostMinutes float64  `json:"cost_minutes,omitempty"`
}

// Publisher emits job events.
type Publisher interface {
	Publish(ctx context.Context, ev JobEvent) error
}

// topicPublisher is satisfied by *producer.Publisher.
type topicPublisher interface {
	Publish(ctx context.Context, topic string, event kafka.Event) error
}

// KafkaPublisher wraps job events in the kafka.Event envelope.
type KafkaPublisher struct {
	pub   topicPublisher
	topic string
	now   func() time.Time
}

// NewKafkaPublisher publishes to topic through pub.
func NewKafkaPublisher(pub topicPublisher, topic string) *KafkaPublisher {
	return &KafkaPublisher{pub: pub, topic: topic, now: time.Now}
}

// Publish sends ev keyed by job id.
func (p *KafkaPublisher) Publish(ctx context.Context, ev JobEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Type, err)
	}
	return p.pub.Publish(ctx, p.topic, kafka.Event{
		ID:        uuid.NewString(),
		Type:      ev.Type,
		Source:    source,
		Version:   version,
		Timestamp: p.now().UTC(),
		Subject:   ev.JobID,
		Data:      data,
	})
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, JobEvent) error { return nil }

// Emit publishes ev and logs a failure instead of returning it. Events are
// notifications; losing one never fails the job.
func Emit(ctx context.Context, p Publisher, log *logger.Logger, ev JobEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn("Job event not published", logger.Fields(logger.FieldJobID, ev.JobID, "type", ev.Type, logger.FieldError, err.Error()))
	}
}
