package countstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisCountPrefix    = "vigil/count/"
	redisDistinctPrefix = "vigil/distinct/"
)

// Windowed buckets are retained only as long as the stats surfaces need
// them: hourly for the live dashboard, daily for the weekly moderation
// review. Totals never expire.
var periodTTL = map[string]time.Duration{
	PeriodHour: 2 * time.Hour,
	PeriodDay:  7 * 24 * time.Hour,
}

// allPeriods is the write fan-out order for a single increment.
var allPeriods = []string{PeriodHour, PeriodDay, PeriodTotal}

// RedisCountStore keeps plain counters as INCR keys and distinct counts as
// HyperLogLogs, one key per period bucket.
type RedisCountStore struct {
	Client *redis.Client
}

var _ CountStore = (*RedisCountStore)(nil)

func NewRedisCountStore(redisURL string) (*RedisCountStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
		return nil, err
	}
	return &RedisCountStore{Client: rdb}, nil
}

func (s *RedisCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	c, err := s.Client.Get(ctx, redisCountPrefix+periodBucket(name, val, period)).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}

// Increment bumps every period bucket for the counter in a single redis
// round-trip.
func (s *RedisCountStore) Increment(ctx context.Context, name, val string) error {
	multi := s.Client.Pipeline()
	for _, period := range allPeriods {
		key := redisCountPrefix + periodBucket(name, val, period)
		multi.Incr(ctx, key)
		if ttl, windowed := periodTTL[period]; windowed {
			multi.Expire(ctx, key, ttl)
		}
	}
	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisCountStore) GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error) {
	c, err := s.Client.PFCount(ctx, redisDistinctPrefix+periodBucket(name, bucket, period)).Result()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return int(c), nil
}

// IncrementDistinct adds val to every period's HyperLogLog in a single redis
// round-trip; re-adding a value the HLL has seen is a no-op, which is what
// makes the active-author counts idempotent across stream replays.
func (s *RedisCountStore) IncrementDistinct(ctx context.Context, name, bucket, val string) error {
	multi := s.Client.Pipeline()
	for _, period := range allPeriods {
		key := redisDistinctPrefix + periodBucket(name, bucket, period)
		multi.PFAdd(ctx, key, val)
		if ttl, windowed := periodTTL[period]; windowed {
			multi.Expire(ctx, key, ttl)
		}
	}
	_, err := multi.Exec(ctx)
	return err
}
