package pending

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"enrollgate/internal/registration/models"
	dErrors "enrollgate/pkg/domain-errors"
)

const keyPrefix = "enrollgate:pending:"

// RedisStore backs the staging store with Redis so multiple replicas share
// pending state. Expiry rides on key TTL; SweepExpired is a no-op.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, rec models.PendingRegistration, ttl time.Duration) error {
	now := time.Now()
	rec.CreatedAt = now
	rec.ExpiresAt = now.Add(ttl)

	payload, err := json.Marshal(rec)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "marshal pending registration")
	}

	if err := s.client.Set(ctx, keyPrefix+rec.Address, payload, ttl).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "store pending registration")
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, address string) (models.PendingRegistration, error) {
	payload, err := s.client.Get(ctx, keyPrefix+address).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.PendingRegistration{}, ErrNotFound
		}
		return models.PendingRegistration{}, dErrors.Wrap(err, dErrors.CodeInternal, "fetch pending registration")
	}

	var rec models.PendingRegistration
	if err := json.Unmarshal(payload, &rec); err != nil {
		return models.PendingRegistration{}, dErrors.Wrap(err, dErrors.CodeInternal, "decode pending registration")
	}

	// Key TTL usually handles expiry, but guard against clock skew between
	// the stored absolute expiry and Redis eviction.
	if rec.ExpiredAt(time.Now()) {
		return models.PendingRegistration{}, ErrNotFound
	}
	return rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, address string) error {
	if err := s.client.Del(ctx, keyPrefix+address).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete pending registration")
	}
	return nil
}

func (s *RedisStore) SweepExpired(_ context.Context, _ time.Time) (int, error) {
	// Redis evicts expired keys itself.
	return 0, nil
}
