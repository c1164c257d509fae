// Package cache stores parsed intents in Redis so repeated queries skip the language model.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"tripline/internal/domain"
)

const keyPrefix = "tripline:intent:"

// Redis implements intent.Cache.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedis connects to addr. The connection is checked with PING.
func NewRedis(ctx context.Context, addr, password string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// FromClient wraps an existing client.
func FromClient(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Key normalizes query so case and spacing differences share an entry.
func Key(query string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(norm))
	return keyPrefix + hex.EncodeToString(sum[:16])
}

func (r *Redis) Get(ctx context.Context, query string) (domain.Intent, bool, error) {
	raw, err := r.client.Get(ctx, Key(query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Intent{}, false, nil
	}
	if err != nil {
		return domain.Intent{}, false, err
	}
	var in domain.Intent
	if err := json.Unmarshal(raw, &in); err != nil {
		return domain.Intent{}, false, fmt.Errorf("decode cached intent: %w", err)
	}
	return in, true, nil
}

func (r *Redis) Set(ctx context.Context, query string, in domain.Intent) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, Key(query), data, r.ttl).Err()
}

// Close releases the connection when the client owns one.
func (r *Redis) Close() error {
	if c, ok := r.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
