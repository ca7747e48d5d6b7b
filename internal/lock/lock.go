package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrLocked = errors.New("resource is locked")

// Locker grants exclusive, expiring ownership of a key.
type Locker interface {
	// Acquire returns ErrLocked when another owner holds key.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Key builds the lock key for one document.
func Key(family string, id int64) string {
	return fmt.Sprintf("finetica:lock:%s:%d", family, id)
}

// releaseScript deletes the key only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	release := func() {
		// the request context may already be done
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}
	return release, nil
}

// MemoryLocker is the single-process fallback used when Redis is disabled.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryLocker(ttl time.Duration) *MemoryLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &MemoryLocker{
		held: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return nil, ErrLocked
	}
	expires := now.Add(l.ttl)
	l.held[key] = expires

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.held[key] == expires {
				delete(l.held, key)
			}
		})
	}, nil
}

// New returns a Redis-backed locker when client is set and reachable, otherwise the
// in-memory one.
func New(ctx context.Context, client *redis.Client, ttl time.Duration, logger *zap.Logger) Locker {
	if client == nil {
		logger.Info("Redis disabled, using in-memory document locks")
		return NewMemoryLocker(ttl)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis is offline, using in-memory document locks", zap.Error(err))
		return NewMemoryLocker(ttl)
	}

	logger.Info("Using Redis document locks")
	return NewRedisLocker(client, ttl, logger)
}
