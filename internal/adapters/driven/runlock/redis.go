package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
	"github.com/custodia-labs/actharvest/internal/logger"
)

// DefaultTTL bounds how long a crashed holder can block other runs.
const DefaultTTL = 30 * time.Minute

// releaseScript deletes the key only while it still holds our token.
// KEYS[1] = lock key
// ARGV[1] = token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// Ensure Redis implements the interface.
var _ driven.RunLock = (*Redis)(nil)

// Redis is a lock shared by every process using the same redis.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis creates a lock on an existing client. A non-positive ttl uses DefaultTTL.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// NewRedisClient connects to a single redis server.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Acquire sets key with a random token if it is absent.
func (l *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrRunInProgress
	}

	return func() {
		// The run's context may be gone by the time it releases.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			logger.Warn("runlock: releasing %s: %v", key, err)
		}
	}, nil
}
