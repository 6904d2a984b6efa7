// internal/cache/blockhash.go
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

const blockhashKey = "blockhash"

// BlockhashFetcher loads the latest blockhash from the network.
type BlockhashFetcher interface {
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
}

// BlockhashCache keeps a recent blockhash warm in a Store.
type BlockhashCache struct {
	store  *Store
	handle *Handle
	maxAge time.Duration
}

// NewBlockhashCache subscribes to the blockhash key. Values older than maxAge
// are refreshed synchronously on read.
func NewBlockhashCache(store *Store, fetcher BlockhashFetcher, interval, maxAge time.Duration) (*BlockhashCache, error) {
	fetch := func(ctx context.Context) (any, error) {
		return fetcher.GetRecentBlockhash(ctx)
	}
	h, err := store.Subscribe(blockhashKey, fetch, interval)
	if err != nil {
		return nil, err
	}
	return &BlockhashCache{store: store, handle: h, maxAge: maxAge}, nil
}

// GetRecentBlockhash returns the cached blockhash if it is fresh enough.
func (c *BlockhashCache) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	if snap, ok := c.store.Snapshot(blockhashKey); ok && snap.Value != nil && time.Since(snap.UpdatedAt) <= c.maxAge {
		if hash, ok := snap.Value.(solana.Hash); ok {
			return hash, nil
		}
	}

	v, err := c.store.Refresh(ctx, blockhashKey)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("refresh blockhash: %w", err)
	}
	hash, ok := v.(solana.Hash)
	if !ok {
		return solana.Hash{}, fmt.Errorf("unexpected blockhash value %T", v)
	}
	return hash, nil
}

// Close releases the subscription.
func (c *BlockhashCache) Close() {
	c.store.Unsubscribe(c.handle)
}
