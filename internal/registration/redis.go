package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPendingStore keeps pending registrations in Redis. Entries expire
// after TTL; expiry is equivalent to the registration never having started.
// Consume uses GETDEL so the read-and-invalidate is a single Redis operation.
type RedisPendingStore struct {
	Client *redis.Client
	TTL    time.Duration // default 1h
}

const redisPendingPrefix = "lti:pending:"

func (s *RedisPendingStore) Set(ctx context.Context, reg PendingRegistration) error {
	b, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, redisPendingPrefix+reg.ConfigurationEndpoint, b, s.ttl()).Err()
}

func (s *RedisPendingStore) Consume(ctx context.Context, endpoint string) (PendingRegistration, error) {
	raw, err := s.Client.GetDel(ctx, redisPendingPrefix+endpoint).Result()
	if errors.Is(err, redis.Nil) {
		return PendingRegistration{}, ErrPendingNotFound
	}
	if err != nil {
		return PendingRegistration{}, fmt.Errorf("pending store: %w", err)
	}
	var reg PendingRegistration
	if err := json.Unmarshal([]byte(raw), &reg); err != nil {
		return PendingRegistration{}, fmt.Errorf("pending store: decode: %w", err)
	}
	return reg, nil
}

func (s *RedisPendingStore) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return time.Hour
}
