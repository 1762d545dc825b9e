package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/discount-campaign-service/internal/event"
	"github.com/fairyhunter13/discount-campaign-service/internal/model"
	"github.com/fairyhunter13/discount-campaign-service/pkg/database"
)

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB is satisfied by *pgxpool.Pool: transactions plus snapshot reads.
type DB interface {
	TxBeginner
	database.TxQuerier
}

// ActiveCampaignCache holds the unexpired campaign candidates between
// resolutions. Get reports a miss for an instant before the entry was filled.
// Implementations treat backend failures as misses.
type ActiveCampaignCache interface {
	Get(ctx context.Context, at time.Time) ([]model.Campaign, bool)
	Set(ctx context.Context, filledAt time.Time, campaigns []model.Campaign)
	Invalidate(ctx context.Context)
}

// EventPublisher emits domain events after a successful commit.
type EventPublisher interface {
	PublishRedemption(ctx context.Context, c *model.Campaign, r *model.Redemption) error
	PublishCampaignChanged(ctx context.Context, campaignID int64, action event.Action) error
}

// Option configures the optional collaborators of a service.
type Option func(*options)

type options struct {
	cache  ActiveCampaignCache
	events EventPublisher
	loc    *time.Location
	now    func() time.Time
}

func buildOptions(opts []Option) options {
	o := options{
		events: event.Noop{},
		loc:    time.UTC,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCache enables the active-campaign cache.
func WithCache(c ActiveCampaignCache) Option {
	return func(o *options) { o.cache = c }
}

// WithPublisher sets the event sink. Defaults to a no-op publisher.
func WithPublisher(p EventPublisher) Option {
	return func(o *options) {
		if p != nil {
			o.events = p
		}
	}
}

// WithLocation sets the timezone whose calendar day bounds the daily cap.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// dayBounds returns [start of day, start of next day) for now in loc.
func dayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
