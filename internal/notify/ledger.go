package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultLedgerTTL = 30 * 24 * time.Hour

// Ledger remembers which (session, hash) pairs were already sent. Claim
// returns true exactly once per pair.
type Ledger interface {
	Claim(ctx context.Context, sessionID, hash string) (bool, error)
}

// RedisLedger stores claims as keys with a TTL.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisLedger returns nil when client is nil.
func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultLedgerTTL
	}
	return &RedisLedger{client: client, ttl: ttl, prefix: "wayloft:notified"}
}

func (l *RedisLedger) key(sessionID, hash string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, sessionID, hash)
}

func (l *RedisLedger) Claim(ctx context.Context, sessionID, hash string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(sessionID, hash), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("notify: claim %s: %w", hash, err)
	}
	return ok, nil
}

var _ Ledger = (*RedisLedger)(nil)
