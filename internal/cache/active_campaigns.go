// Package cache keeps the candidate campaign list in Redis so resolution does
// not hit PostgreSQL on every request. Redemption never reads from it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/discount-campaign-service/internal/model"
)

// ActiveCampaignsKey is the Redis key holding the serialized list.
const ActiveCampaignsKey = "discount:active_campaigns"

// Client is the subset of *redis.Client the cache needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// ActiveCampaignCache is a read-through cache of the campaigns that are
// active and not yet ended. Entries include campaigns that start later, so
// callers filter by their own instant. Backend errors are logged and treated
// as misses.
type ActiveCampaignCache struct {
	client Client
	ttl    time.Duration
}

type entry struct {
	FilledAt  time.Time        `json:"filled_at"`
	Campaigns []model.Campaign `json:"campaigns"`
}

// NewActiveCampaignCache creates a cache whose entries live for ttl.
func NewActiveCampaignCache(client Client, ttl time.Duration) *ActiveCampaignCache {
	return &ActiveCampaignCache{client: client, ttl: ttl}
}

// Get returns the cached candidates and whether they may be used at at.
// An entry filled after at can miss campaigns that ended in between, so it
// counts as a miss.
func (c *ActiveCampaignCache) Get(ctx context.Context, at time.Time) ([]model.Campaign, bool) {
	raw, err := c.client.Get(ctx, ActiveCampaignsKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Error().Err(err).Msg("active campaign cache read failed")
		}
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		log.Error().Err(err).Msg("active campaign cache entry is corrupt")
		return nil, false
	}
	if at.Before(e.FilledAt) {
		return nil, false
	}
	return e.Campaigns, true
}

// Set stores the candidates read at filledAt for the configured TTL.
func (c *ActiveCampaignCache) Set(ctx context.Context, filledAt time.Time, campaigns []model.Campaign) {
	raw, err := json.Marshal(entry{FilledAt: filledAt, Campaigns: campaigns})
	if err != nil {
		log.Error().Err(err).Msg("encode active campaigns")
		return
	}
	if err := c.client.Set(ctx, ActiveCampaignsKey, raw, c.ttl).Err(); err != nil {
		log.Error().Err(err).Msg("active campaign cache write failed")
	}
}

// Invalidate drops the cached list.
func (c *ActiveCampaignCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, ActiveCampaignsKey).Err(); err != nil {
		log.Error().Err(err).Msg("active campaign cache invalidation failed")
	}
}

// NewRedisClient creates a new Redis client and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
