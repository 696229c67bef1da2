package cache

import (
	"context"
	"errors"

	"coursepay/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// CartCache stores the rendered cart of a user between reads.
//
// Fills are versioned: read Version before loading the cart from the
// database and pass it to Set. Delete bumps the version, so a fill that
// raced with an eviction is dropped instead of caching a stale cart.
type CartCache interface {
	Get(ctx context.Context, userID int64) ([]domain.CartItem, error)
	Version(ctx context.Context, userID int64) (int64, error)
	Set(ctx context.Context, userID, version int64, items []domain.CartItem) error
	Delete(ctx context.Context, userID int64) error
}

// NoopCache is used when Redis is not configured; every read misses.
type NoopCache struct{}

func (NoopCache) Get(context.Context, int64) ([]domain.CartItem, error)      { return nil, ErrCacheMiss }
func (NoopCache) Version(context.Context, int64) (int64, error)              { return 0, nil }
func (NoopCache) Set(context.Context, int64, int64, []domain.CartItem) error { return nil }
func (NoopCache) Delete(context.Context, int64) error                        { return nil }
