package cache

import (
	"context"
	"log"

	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the shared cache backend for multi-replica deployments. TTL
// handling is delegated to redis key expiry, so there is no janitor.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func NewRedisStore(addr, password string, db int, ttl time.Duration) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{
		client: rdb,
		ttl:    ttl,
		logger: log.New(log.Writer(), "[CACHE] ", log.LstdFlags),
	}
}

func (s *RedisStore) Get(ctx context.Context, key Key) ([]byte, bool) {
	val, err := s.client.Get(ctx, "query:"+key.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Printf("redis get %s: %v", key, err)
		}
		missTotal.WithLabelValues(key.Kind).Inc()
		return nil, false
	}
	hitTotal.WithLabelValues(key.Kind).Inc()
	return val, true
}

func (s *RedisStore) Set(ctx context.Context, key Key, payload []byte) {
	if err := s.client.Set(ctx, "query:"+key.String(), payload, s.ttl).Err(); err != nil {
		// cache writes are best-effort; the next request falls through
		s.logger.Printf("redis set %s: %v", key, err)
	}
}
