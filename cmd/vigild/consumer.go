package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/haven-community/vigil/engine"
)

// streamEvent is one frame from the upstream message event stream.
type streamEvent struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"`
	// Message is set for "message" events.
	Message *engine.MessageEvent `json:"message,omitempty"`
	// AuthorID is set for "join" events.
	AuthorID string `json:"authorId,omitempty"`
}

const (
	evtTypeMessage = "message"
	evtTypeJoin    = "join"
)

// RunConsumer subscribes to the upstream event stream and feeds the analysis
// scheduler, reconnecting with backoff on failure. Resumes from the last
// cursor persisted in redis, when available.
func (s *Server) RunConsumer(ctx context.Context) error {
	cur, err := s.ReadLastCursor(ctx)
	if err != nil {
		return fmt.Errorf("reading subscription cursor: %w", err)
	}
	atomic.StoreInt64(&s.lastSeq, cur)

	// upstream redelivers recent frames after a reconnect; remember recently
	// seen message IDs so replays don't double-count in profiles
	seenMsgs := lru.NewLRU[string, bool](100_000, nil, time.Hour)

	var backoff time.Duration
	for {
		if ctx.Err() != nil {
			return nil
		}

		err := s.consumeOnce(ctx, seenMsgs)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("event stream disconnected, will reconnect", "err", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff += time.Second
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (s *Server) consumeOnce(ctx context.Context, seenMsgs *lru.LRU[string, bool]) error {
	u, err := url.Parse(s.upstreamHost)
	if err != nil {
		return fmt.Errorf("invalid upstream host: %w", err)
	}
	u.Path = "/stream/events"
	if cur := atomic.LoadInt64(&s.lastSeq); cur > 0 {
		u.RawQuery = fmt.Sprintf("cursor=%d", cur)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, u.String(), http.Header{
		"User-Agent": []string{fmt.Sprintf("vigild/%s", versioninfo.Short())},
	})
	if err != nil {
		return fmt.Errorf("dialing event stream: %w", err)
	}
	defer conn.Close()
	s.logger.Info("subscribed to event stream", "url", u.Redacted())

	// unblock ReadJSON when the context is cancelled
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var evt streamEvent
		if err := conn.ReadJSON(&evt); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading event frame: %w", err)
		}
		if err := s.handleStreamEvent(ctx, &evt, seenMsgs); err != nil {
			s.logger.Error("failed to handle stream event", "err", err, "seq", evt.Seq, "type", evt.Type)
			eventsFailed.Inc()
		}
		if evt.Seq > 0 {
			atomic.StoreInt64(&s.lastSeq, evt.Seq)
			currentSeq.Set(float64(evt.Seq))
		}
	}
}

func (s *Server) handleStreamEvent(ctx context.Context, evt *streamEvent, seenMsgs *lru.LRU[string, bool]) error {
	switch evt.Type {
	case evtTypeMessage:
		if evt.Message == nil || evt.Message.AuthorID == "" {
			return fmt.Errorf("malformed message event (seq %d)", evt.Seq)
		}
		eventsReceived.Inc()
		if evt.Message.MessageID != "" {
			if _, ok := seenMsgs.Get(evt.Message.MessageID); ok {
				return nil
			}
			seenMsgs.Add(evt.Message.MessageID, true)
		}
		return s.sched.AddWork(ctx, *evt.Message)
	case evtTypeJoin:
		if evt.AuthorID == "" {
			return fmt.Errorf("malformed join event (seq %d)", evt.Seq)
		}
		joinsReceived.Inc()
		return s.engine.ProcessAuthorJoin(ctx, evt.AuthorID)
	default:
		s.logger.Debug("ignoring unknown event type", "type", evt.Type, "seq", evt.Seq)
		return nil
	}
}
