package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/haven-community/vigil/profile"
)

// messages with a spread of risk scores, so out-of-order application would
// change TotalRiskScore (the decayed sum is order-sensitive)
var schedulerTestMessages = []string{
	"hello there",
	"I will destroy you",
	"this is sooooooo annoying",
	"kill murder massacre",
	"what a nice day",
	"you are subhuman vermin",
	"WHY DOES NOBODY EVER LISTEN TO ME",
	"have a good one",
}

func sequentialProfile(eng *Engine, authorID string, contents []string) *profile.Profile {
	var p *profile.Profile
	for _, content := range contents {
		asmt := eng.Classifier.Analyze(content)
		p = profile.Aggregate(p, authorID, asmt, eng.AggConfig, eng.now())
	}
	return p
}

func TestSchedulerSerializesPerAuthor(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	sched := NewScheduler(4, eng.Logger, func(ctx context.Context, evt MessageEvent) error {
		_, err := eng.ProcessMessage(ctx, evt)
		return err
	})

	// one producer per author, all interleaving across the worker pool
	const perAuthor = 60
	authors := []string{"author-1", "author-2", "author-3", "author-4", "author-5"}
	contents := make(map[string][]string)
	var wg sync.WaitGroup
	for _, author := range authors {
		msgs := make([]string, perAuthor)
		for i := range msgs {
			msgs[i] = schedulerTestMessages[(i+len(author))%len(schedulerTestMessages)]
		}
		contents[author] = msgs
		wg.Add(1)
		go func(author string, msgs []string) {
			defer wg.Done()
			for i, content := range msgs {
				err := sched.AddWork(ctx, MessageEvent{
					MessageID: fmt.Sprintf("%s-%d", author, i),
					AuthorID:  author,
					Content:   content,
				})
				assert.NoError(err)
			}
		}(author, msgs)
	}
	wg.Wait()
	sched.Shutdown()

	// each author's final profile must equal the sequential replay of that
	// author's messages in submission order
	for _, author := range authors {
		want := sequentialProfile(EngineTestFixture(), author, contents[author])
		got, err := eng.Profiles.GetProfile(ctx, author)
		assert.NoError(err)
		assert.Equal(want.MessageCount, got.MessageCount, author)
		assert.InDelta(want.TotalRiskScore, got.TotalRiskScore, 1e-9, author)
		assert.InDelta(want.AverageRiskScore, got.AverageRiskScore, 1e-9, author)
		assert.Equal(want.HighRiskCount, got.HighRiskCount, author)
		assert.Equal(want.FlagHistory, got.FlagHistory, author)
		assert.Equal(want.TrendingUp, got.TrendingUp, author)
	}
}

func TestSchedulerCanceledAddKeepsChainedWork(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	gate := make(chan struct{})
	var lk sync.Mutex
	var processed []string
	sched := NewScheduler(1, EngineTestFixture().Logger, func(ctx context.Context, evt MessageEvent) error {
		if evt.MessageID == "m1" {
			<-gate
		}
		lk.Lock()
		processed = append(processed, evt.MessageID)
		lk.Unlock()
		return nil
	})

	// occupy the only worker
	assert.NoError(sched.AddWork(ctx, MessageEvent{MessageID: "m1", AuthorID: "author-a"}))

	// this add blocks on the feeder until canceled
	cancelCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := sched.AddWork(cancelCtx, MessageEvent{MessageID: "m2", AuthorID: "author-b"})
		assert.ErrorIs(err, context.Canceled)
	}()

	// wait for the blocked add to register author-b as in flight, then chain
	// another item behind it
	for {
		sched.lk.Lock()
		_, inFlight := sched.active["author-b"]
		sched.lk.Unlock()
		if inFlight {
			break
		}
		time.Sleep(time.Millisecond)
	}
	assert.NoError(sched.AddWork(ctx, MessageEvent{MessageID: "m3", AuthorID: "author-b"}))

	// canceling m2 must not discard m3, which was acknowledged with nil; the
	// worker is still gated, so the only way author-b's chain empties is the
	// canceled add promoting m3 to head-of-line
	cancel()
	for {
		sched.lk.Lock()
		rem, inFlight := sched.active["author-b"]
		sched.lk.Unlock()
		if inFlight && len(rem) == 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	close(gate)
	wg.Wait()
	sched.Shutdown()

	lk.Lock()
	defer lk.Unlock()
	assert.Equal([]string{"m1", "m3"}, processed)
}

func TestSchedulerShutdownDrains(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var lk sync.Mutex
	processed := 0
	sched := NewScheduler(2, EngineTestFixture().Logger, func(ctx context.Context, evt MessageEvent) error {
		lk.Lock()
		processed++
		lk.Unlock()
		return nil
	})

	for i := 0; i < 100; i++ {
		// alternate two authors so work both chains and feeds
		author := fmt.Sprintf("author-%d", i%2)
		assert.NoError(sched.AddWork(ctx, MessageEvent{MessageID: fmt.Sprintf("m%d", i), AuthorID: author}))
	}
	sched.Shutdown()

	lk.Lock()
	defer lk.Unlock()
	assert.Equal(100, processed)
}
