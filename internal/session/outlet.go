package session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOutletPrefs stores the selected outlet id in Redis, keyed by the
// browser session. Absence of the key means no prior selection.
type RedisOutletPrefs struct {
	client    *redis.Client
	sessionID string
	ttl       time.Duration
}

// NewOutletPrefs binds an outlet preference store to one session.
func NewOutletPrefs(client *redis.Client, sessionID string, ttl time.Duration) *RedisOutletPrefs {
	return &RedisOutletPrefs{client: client, sessionID: sessionID, ttl: ttl}
}

func (p *RedisOutletPrefs) key() string {
	return "outlet_pref:" + p.sessionID
}

// Load returns the persisted outlet id, if one exists and parses.
func (p *RedisOutletPrefs) Load(ctx context.Context) (int64, bool) {
	raw, err := p.client.Get(ctx, p.key()).Result()
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// Save persists the outlet id for the session's lifetime.
func (p *RedisOutletPrefs) Save(ctx context.Context, outletID int64) error {
	return p.client.Set(ctx, p.key(), strconv.FormatInt(outletID, 10), p.ttl).Err()
}

// Clear removes any persisted selection.
func (p *RedisOutletPrefs) Clear(ctx context.Context) error {
	err := p.client.Del(ctx, p.key()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

var _ OutletPrefs = (*RedisOutletPrefs)(nil)
