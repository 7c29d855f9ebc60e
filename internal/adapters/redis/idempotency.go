package redis

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// Idempotency keeps recorded responses and in-flight locks keyed by the
// client's Idempotency-Key.
type Idempotency struct {
	client *redis.Client
}

func NewIdempotency(client *redis.Client) *Idempotency {
	return &Idempotency{client: client}
}

func (i *Idempotency) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := i.client.Get(ctx, keyPrefix+"idemp:"+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get idempotency key %s", key)
	}
	return val, nil
}

func (i *Idempotency) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return errors.Wrapf(i.client.Set(ctx, keyPrefix+"idemp:"+key, data, ttl).Err(), "set idempotency key %s", key)
}

func (i *Idempotency) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := i.client.SetNX(ctx, keyPrefix+"idemp-lock:"+key, 1, ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "lock idempotency key %s", key)
	}
	return ok, nil
}

func (i *Idempotency) Unlock(ctx context.Context, key string) error {
	return errors.Wrapf(i.client.Del(ctx, keyPrefix+"idemp-lock:"+key).Err(), "unlock idempotency key %s", key)
}
