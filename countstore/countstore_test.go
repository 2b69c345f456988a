package countstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemCountStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	c, err := cs.GetCount(ctx, NameMessage, "chan1", PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)

	assert.NoError(cs.Increment(ctx, NameMessage, "chan1"))
	assert.NoError(cs.Increment(ctx, NameMessage, "chan1"))
	for _, period := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		c, err = cs.GetCount(ctx, NameMessage, "chan1", period)
		assert.NoError(err)
		assert.Equal(2, c)
	}

	assert.NoError(cs.IncrementDistinct(ctx, NameAuthors, "all", "author-1"))
	assert.NoError(cs.IncrementDistinct(ctx, NameAuthors, "all", "author-1"))
	assert.NoError(cs.IncrementDistinct(ctx, NameAuthors, "all", "author-2"))
	c, err = cs.GetCountDistinct(ctx, NameAuthors, "all", PeriodTotal)
	assert.NoError(err)
	assert.Equal(2, c)
}

func TestMemCountStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	// hammer the same counter from several goroutines; run with -race
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(cs.Increment(ctx, NameMessage, "chan1"))
				assert.NoError(cs.IncrementDistinct(ctx, NameAuthors, "all", "author-1"))
				_, err := cs.GetCount(ctx, NameMessage, "chan1", PeriodTotal)
				assert.NoError(err)
			}
		}()
	}
	wg.Wait()

	c, err := cs.GetCount(ctx, NameMessage, "chan1", PeriodTotal)
	assert.NoError(err)
	assert.Equal(400, c)

	c, err = cs.GetCountDistinct(ctx, NameAuthors, "all", PeriodTotal)
	assert.NoError(err)
	assert.Equal(1, c)
}
