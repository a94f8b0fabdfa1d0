package repository

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by TokenCache.Get when no value is stored under
// the key.
var ErrCacheMiss = errors.New("token cache miss")

// TokenCache stores short-lived access tokens between pipeline runs so the
// upstream token endpoint is not hit on every run.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
