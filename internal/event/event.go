// Package event publishes redemption and campaign lifecycle events to Kafka.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source identifies this service in every envelope.
const Source = "discount-campaign-service"

// Event types.
const (
	TypeRedemptionApplied = "discount.redemption.applied"
	TypeCampaignChanged   = "discount.campaign.changed"
)

// Action describes what happened to a campaign.
type Action string

const (
	ActionCreated     Action = "created"
	ActionUpdated     Action = "updated"
	ActionActivated   Action = "activated"
	ActionDeactivated Action = "deactivated"
	ActionDeleted     Action = "deleted"
)

// Envelope is the standard wrapper for every message.
type Envelope struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Version     int             `json:"version"`
	Timestamp   time.Time       `json:"timestamp"`
	Source      string          `json:"source"`
	Data        json.RawMessage `json:"data"`
}

// RedemptionApplied is the payload of TypeRedemptionApplied.
type RedemptionApplied struct {
	RedemptionID   int64           `json:"redemption_id"`
	CampaignID     int64           `json:"campaign_id"`
	CustomerID     string          `json:"customer_id"`
	DiscountScope  string          `json:"discount_scope"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	OrderRef       *string         `json:"order_id,omitempty"`
	AppliedAt      time.Time       `json:"applied_at"`
}

// CampaignChanged is the payload of TypeCampaignChanged.
type CampaignChanged struct {
	CampaignID int64  `json:"campaign_id"`
	Action     Action `json:"action"`
}

// NewEnvelope wraps data with a fresh event id and timestamp.
func NewEnvelope(eventType, aggregateID string, data any, now time.Time) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		EventID:     uuid.New().String(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Version:     1,
		Timestamp:   now.UTC(),
		Source:      Source,
		Data:        raw,
	}, nil
}
