// Package idempotency records the responses of non-repeatable requests so a
// retried request with the same key gets the first answer back.
package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// lockTTL bounds how long a crashed request can block its key.
const lockTTL = 30 * time.Second

// Backend stores raw response blobs and short-lived locks.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type Idempotency struct {
	backend Backend
	ttl     time.Duration
}

func NewIdempotency(backend Backend, ttl time.Duration) *Idempotency {
	return &Idempotency{backend: backend, ttl: ttl}
}

type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Result      []byte `json:"result"`
}

// Get returns the recorded response for key, or nil.
func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	data, err := i.backend.Load(ctx, key)
	if err != nil || data == nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.Wrap(err, "decode recorded response")
	}
	return &resp, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return errors.Wrap(err, "encode response")
	}
	return i.backend.Save(ctx, key, data, i.ttl)
}

// Begin takes the key for one in-flight request. It reports false while
// another request holds it.
func (i *Idempotency) Begin(ctx context.Context, key string) (bool, error) {
	return i.backend.Lock(ctx, key, lockTTL)
}

func (i *Idempotency) End(ctx context.Context, key string) error {
	return i.backend.Unlock(ctx, key)
}
