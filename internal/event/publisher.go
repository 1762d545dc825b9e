package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/fairyhunter13/discount-campaign-service/internal/model"
)

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes envelopes to Kafka. Messages are keyed by campaign id so
// a campaign's events stay ordered within one partition.
type Publisher struct {
	writer           Writer
	redemptionsTopic string
	campaignsTopic   string
	now              func() time.Time
}

// NewKafkaWriter builds a synchronous writer for brokers. Topics are set per message.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// NewPublisher creates a Publisher over w.
func NewPublisher(w Writer, redemptionsTopic, campaignsTopic string) *Publisher {
	return &Publisher{
		writer:           w,
		redemptionsTopic: redemptionsTopic,
		campaignsTopic:   campaignsTopic,
		now:              time.Now,
	}
}

// PublishRedemption emits a TypeRedemptionApplied event.
func (p *Publisher) PublishRedemption(ctx context.Context, c *model.Campaign, r *model.Redemption) error {
	data := RedemptionApplied{
		RedemptionID:   r.ID,
		CampaignID:     r.CampaignID,
		CustomerID:     r.CustomerID,
		DiscountScope:  string(c.Scope),
		DiscountAmount: r.DiscountAmount,
		OrderRef:       r.OrderRef,
		AppliedAt:      r.CreatedAt,
	}
	return p.publish(ctx, p.redemptionsTopic, TypeRedemptionApplied, r.CampaignID, data)
}

// PublishCampaignChanged emits a TypeCampaignChanged event.
func (p *Publisher) PublishCampaignChanged(ctx context.Context, campaignID int64, action Action) error {
	data := CampaignChanged{CampaignID: campaignID, Action: action}
	return p.publish(ctx, p.campaignsTopic, TypeCampaignChanged, campaignID, data)
}

func (p *Publisher) publish(ctx context.Context, topic, eventType string, campaignID int64, data any) error {
	key := strconv.FormatInt(campaignID, 10)
	env, err := NewEnvelope(eventType, key, data, p.now())
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "source", Value: []byte(Source)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event to %s: %w", topic, err)
	}

	log.Debug().
		Str("topic", topic).
		Str("event_type", eventType).
		Str("event_id", env.EventID).
		Msg("event published")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Noop discards every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) PublishRedemption(context.Context, *model.Campaign, *model.Redemption) error {
	return nil
}

func (Noop) PublishCampaignChanged(context.Context, int64, Action) error {
	return nil
}
