package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/validation"
)

// EventPackPurchased is the event type of a minute-pack purchase.
const EventPackPurchased = "billing.pack_purchased"

// PackGrant is the data of a pack purchase event.
type PackGrant struct {
	OrderNo   string     `json:"order_no" validate:"required,max=128"`
	UserID    string     `json:"user_id" validate:"required,max=64"`
	PackType  PackType   `json:"pack_type" validate:"required,oneof=standard high_accuracy"`
	Minutes   float64    `json:"minutes" validate:"gt=0"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// GrantConsumer turns purchase events into minute packs. Redelivered
// events carry the same order number and are ignored.
type GrantConsumer struct {
	ledger *Ledger
	log    *logger.Logger
}

// NewGrantConsumer creates a GrantConsumer writing through l.
func NewGrantConsumer(l *Ledger, log *logger.Logger) *GrantConsumer {
	return &GrantConsumer{ledger: l, log: log.WithComponent("ledger.grants")}
}

// Handle is a consumer.MessageHandler. Malformed events are logged and
// skipped so they do not block the partition.
func (g *GrantConsumer) Handle(ctx context.Context, msg kafkago.Message) error {
	var ev kafka.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		g.log.Warn("Skipping undecodable grant event", logger.Fields("offset", msg.Offset, logger.FieldError, err.Error()))
		return nil
	}
	if ev.Type != EventPackPurchased {
		return nil
	}

	var grant PackGrant
	if err := json.Unmarshal(ev.Data, &grant); err != nil {
		g.log.Warn("Skipping malformed grant", logger.Fields("event_id", ev.ID, logger.FieldError, err.Error()))
		return nil
	}
	if err := validation.Validate(grant); err != nil {
		g.log.Warn("Skipping invalid grant", logger.Fields("event_id", ev.ID, logger.FieldError, err.Error()))
		return nil
	}

	created, err := g.ledger.Grant(ctx, &MinutePack{
		UserID:       grant.UserID,
		PackType:     grant.PackType,
		MinutesTotal: round2(grant.Minutes),
		MinutesLeft:  round2(grant.Minutes),
		OrderNo:      grant.OrderNo,
		ExpiresAt:    grant.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("grant order %s: %w", grant.OrderNo, err)
	}
	g.log.Info("Minute pack granted", logger.Fields(
		logger.FieldUserID, grant.UserID, "order_no", grant.OrderNo, "minutes", grant.Minutes, "duplicate", !created))
	return nil
}
