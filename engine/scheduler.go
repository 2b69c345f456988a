package engine

import (
	"context"
	"log/slog"
	"sync"
)

// Scheduler runs message work on a fixed number of workers while keeping all
// work for one author strictly serialized: an item for an author with work
// already in flight is chained behind that work instead of being handed to
// another worker. Distinct authors proceed in parallel.
//
// Mutual exclusion on the profile read-modify-write is the engine's own
// per-author lock; what the scheduler adds for stream events is ordering:
// N updates for one author produce the same profile as the N updates applied
// sequentially in arrival order.
type Scheduler struct {
	maxConcurrency int

	do func(context.Context, MessageEvent) error

	feeder chan *schedulerTask
	out    chan struct{}

	lk     sync.Mutex
	active map[string][]*schedulerTask

	log *slog.Logger
}

type schedulerTask struct {
	author  string
	evt     MessageEvent
	control string
}

// NewScheduler starts maxC workers calling do for each scheduled event.
func NewScheduler(maxC int, logger *slog.Logger, do func(context.Context, MessageEvent) error) *Scheduler {
	s := &Scheduler{
		maxConcurrency: maxC,
		do:             do,
		feeder:         make(chan *schedulerTask),
		out:            make(chan struct{}),
		active:         make(map[string][]*schedulerTask),
		log:            logger.With("system", "author-scheduler"),
	}

	for i := 0; i < maxC; i++ {
		go s.worker()
	}
	schedulerWorkersActive.Set(float64(maxC))

	return s
}

// AddWork enqueues one event. If the author already has work in flight the
// event is chained behind it and AddWork returns immediately; otherwise it
// blocks until a worker is free (providing natural backpressure).
func (s *Scheduler) AddWork(ctx context.Context, evt MessageEvent) error {
	schedulerItemsAdded.Inc()
	t := &schedulerTask{
		author: evt.AuthorID,
		evt:    evt,
	}
	s.lk.Lock()

	a, ok := s.active[evt.AuthorID]
	if ok {
		s.active[evt.AuthorID] = append(a, t)
		s.lk.Unlock()
		return nil
	}

	s.active[evt.AuthorID] = []*schedulerTask{}
	s.lk.Unlock()

	select {
	case s.feeder <- t:
		return nil
	case <-ctx.Done():
		// never claimed by a worker; drop the in-flight marker, unless other
		// adds chained work behind this task in the meantime. Those were
		// acknowledged with nil and must still run: promote the first one to
		// head-of-line and deliver it in this task's place.
		s.lk.Lock()
		rem := s.active[evt.AuthorID]
		if len(rem) == 0 {
			delete(s.active, evt.AuthorID)
			s.lk.Unlock()
			return ctx.Err()
		}
		next := rem[0]
		s.active[evt.AuthorID] = rem[1:]
		s.lk.Unlock()
		s.feeder <- next
		return ctx.Err()
	}
}

// Shutdown drains all queued and chained work, then stops the workers.
func (s *Scheduler) Shutdown() {
	s.log.Info("shutting down author scheduler")

	for i := 0; i < s.maxConcurrency; i++ {
		s.feeder <- &schedulerTask{control: "stop"}
	}
	close(s.feeder)

	for i := 0; i < s.maxConcurrency; i++ {
		<-s.out
	}
	schedulerWorkersActive.Set(0)

	s.log.Info("author scheduler shutdown complete")
}

func (s *Scheduler) worker() {
	for work := range s.feeder {
		for work != nil {
			if work.control == "stop" {
				s.out <- struct{}{}
				return
			}

			if err := s.do(context.TODO(), work.evt); err != nil {
				s.log.Error("message handler failed", "err", err, "authorID", work.author)
			}
			schedulerItemsProcessed.Inc()

			s.lk.Lock()
			rem, ok := s.active[work.author]
			if !ok {
				s.log.Error("scheduler invariant violated: active entry missing for in-flight author")
			}

			if len(rem) == 0 {
				delete(s.active, work.author)
				work = nil
			} else {
				work = rem[0]
				s.active[work.author] = rem[1:]
			}
			s.lk.Unlock()
		}
	}
}
