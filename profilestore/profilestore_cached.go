package profilestore

import (
	"context"
	"time"

	"github.com/go-redis/cache/v9"

	"github.com/haven-community/vigil/profile"
)

// CachedProfileStore layers a TinyLFU local cache in front of another store.
// Writes go through to the inner store first and update the cache only after
// the write succeeds, so a persistence failure is never masked by a stale
// cache entry.
//
// Safe only when all updates for a given author flow through this instance
// (the engine holds a per-author lock across every profile update); a second
// writer in another process would leave this cache stale for the TTL.
type CachedProfileStore struct {
	Inner ProfileStore
	cache *cache.Cache
	ttl   time.Duration
}

var _ ProfileStore = (*CachedProfileStore)(nil)

func NewCachedProfileStore(inner ProfileStore, capacity int, ttl time.Duration) *CachedProfileStore {
	return &CachedProfileStore{
		Inner: inner,
		cache: cache.New(&cache.Options{
			LocalCache: cache.NewTinyLFU(capacity, ttl),
		}),
		ttl: ttl,
	}
}

func cacheKey(authorID string) string {
	return "profile/" + authorID
}

func (s *CachedProfileStore) GetProfile(ctx context.Context, authorID string) (*profile.Profile, error) {
	var p profile.Profile
	err := s.cache.Get(ctx, cacheKey(authorID), &p)
	if err == nil {
		return &p, nil
	}
	if err != cache.ErrCacheMiss {
		return nil, err
	}
	got, err := s.Inner.GetProfile(ctx, authorID)
	if err != nil || got == nil {
		return got, err
	}
	// best-effort backfill; a local cache set does not fail in practice
	_ = s.cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   cacheKey(authorID),
		Value: got,
		TTL:   s.ttl,
	})
	return got, nil
}

func (s *CachedProfileStore) PutProfile(ctx context.Context, p *profile.Profile) error {
	if err := s.Inner.PutProfile(ctx, p); err != nil {
		return err
	}
	return s.cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   cacheKey(p.AuthorID),
		Value: p.Clone(),
		TTL:   s.ttl,
	})
}
