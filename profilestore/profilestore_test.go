package profilestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/haven-community/vigil/profile"
)

func TestMemProfileStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewMemProfileStore()

	got, err := s.GetProfile(ctx, "nobody")
	assert.NoError(err)
	assert.Nil(got)

	p := profile.NewProfile("author-1")
	p.MessageCount = 3
	p.FlagHistory["violence"] = 2
	assert.NoError(s.PutProfile(ctx, p))

	got, err = s.GetProfile(ctx, "author-1")
	assert.NoError(err)
	assert.Equal(int64(3), got.MessageCount)
	assert.Equal(int64(2), got.FlagHistory["violence"])

	// mutating a fetched profile must not leak back into the store
	got.FlagHistory["violence"] = 99
	again, err := s.GetProfile(ctx, "author-1")
	assert.NoError(err)
	assert.Equal(int64(2), again.FlagHistory["violence"])
}

func TestCachedProfileStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	inner := NewMemProfileStore()
	s := NewCachedProfileStore(inner, 100, time.Minute)

	got, err := s.GetProfile(ctx, "nobody")
	assert.NoError(err)
	assert.Nil(got)

	p := profile.NewProfile("author-1")
	p.MessageCount = 1
	assert.NoError(s.PutProfile(ctx, p))

	// served from cache, but identical to the inner store's copy
	cached, err := s.GetProfile(ctx, "author-1")
	assert.NoError(err)
	assert.Equal(int64(1), cached.MessageCount)

	stored, err := inner.GetProfile(ctx, "author-1")
	assert.NoError(err)
	assert.Equal(int64(1), stored.MessageCount)

	// writes update the cache through the inner store
	p2 := cached.Clone()
	p2.MessageCount = 2
	assert.NoError(s.PutProfile(ctx, p2))
	cached, err = s.GetProfile(ctx, "author-1")
	assert.NoError(err)
	assert.Equal(int64(2), cached.MessageCount)
}
