package profilestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/haven-community/vigil/profile"
)

var redisProfilePrefix = "profile/"

// RedisProfileStore persists profiles as JSON blobs in redis, with no
// expiration: profiles are durable records, retention is a data-governance
// concern handled outside this store.
type RedisProfileStore struct {
	Client *redis.Client
}

var _ ProfileStore = (*RedisProfileStore)(nil)

func NewRedisProfileStore(redisURL string) (*RedisProfileStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisProfileStore{Client: rdb}, nil
}

func (s *RedisProfileStore) GetProfile(ctx context.Context, authorID string) (*profile.Profile, error) {
	raw, err := s.Client.Get(ctx, redisProfilePrefix+authorID).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading profile from redis: %w", err)
	}
	var p profile.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parsing stored profile %s: %w", authorID, err)
	}
	return &p, nil
}

func (s *RedisProfileStore) PutProfile(ctx context.Context, p *profile.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile %s: %w", p.AuthorID, err)
	}
	if err := s.Client.Set(ctx, redisProfilePrefix+p.AuthorID, raw, 0).Err(); err != nil {
		return fmt.Errorf("writing profile to redis: %w", err)
	}
	return nil
}
