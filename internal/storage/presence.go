package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceKeyPrefix = "presence:"

// DefaultPresenceTTL is how long a participant stays online after its last request.
const DefaultPresenceTTL = 2 * time.Minute

// PresenceService keeps the online flag in Redis as expiring keys.
// A nil Redis client disables presence: nobody is online.
type PresenceService struct {
	Redis *redis.Client
	TTL   time.Duration
}

// NewPresenceService Constructor
func NewPresenceService(rdb *redis.Client, ttl time.Duration) *PresenceService {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &PresenceService{Redis: rdb, TTL: ttl}
}

func presenceKey(participantID string) string {
	return presenceKeyPrefix + participantID
}

// MarkOnline records activity of participantID.
func (p *PresenceService) MarkOnline(ctx context.Context, participantID string) error {
	if p.Redis == nil || participantID == "" {
		return nil
	}
	return p.Redis.Set(ctx, presenceKey(participantID), time.Now().Unix(), p.TTL).Err()
}

// Online reports which of the given participants had activity within the TTL.
func (p *PresenceService) Online(ctx context.Context, participantIDs ...string) (map[string]bool, error) {
	online := make(map[string]bool, len(participantIDs))
	if p.Redis == nil || len(participantIDs) == 0 {
		return online, nil
	}

	keys := make([]string, len(participantIDs))
	for i, id := range participantIDs {
		keys[i] = presenceKey(id)
	}

	values, err := p.Redis.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	for i, id := range participantIDs {
		online[id] = i < len(values) && values[i] != nil
	}
	return online, nil
}
