// Package engine couples the stateless classifier to the stateful per-author
// profile pipeline: classify, read profile, aggregate, write profile, decide,
// and fan out alerts.
//
// The profile update is a read-modify-write; the engine holds a per-author
// lock across it, so concurrent calls for one author (scheduler workers, the
// synchronous analyze endpoint) are mutually exclusive. The Scheduler
// additionally keeps stream events for one author in arrival order. Updates
// for distinct authors are fully independent.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haven-community/vigil/alertstore"
	"github.com/haven-community/vigil/assessmentstore"
	"github.com/haven-community/vigil/classifier"
	"github.com/haven-community/vigil/countstore"
	"github.com/haven-community/vigil/notify"
	"github.com/haven-community/vigil/profile"
	"github.com/haven-community/vigil/profilestore"
)

// MessageEvent is one inbound message to analyze.
type MessageEvent struct {
	MessageID string `json:"messageId"`
	AuthorID  string `json:"authorId"`
	ChannelID string `json:"channelId,omitempty"`
	Content   string `json:"content"`
}

// Result is returned by ProcessMessage for synchronous callers (the analyze
// API endpoint); stream consumers ignore it.
type Result struct {
	Assessment *classifier.Assessment `json:"assessment"`
	Profile    *profile.Profile       `json:"profile"`
	Decision   profile.Decision       `json:"decision"`
}

// Engine executes the analysis pipeline. Several fields must be non-nil:
// Logger, Classifier, Profiles, Thresholds via NewEngine defaults.
type Engine struct {
	Logger     *slog.Logger
	Classifier *classifier.Classifier
	Profiles   profilestore.ProfileStore
	Alerts     alertstore.AlertStore
	History    assessmentstore.AssessmentStore
	Counters   countstore.CountStore
	Notifier   notify.Notifier
	AggConfig  profile.AggregatorConfig
	Thresholds profile.Thresholds
	// Now is the clock used for profile timestamps and alert records;
	// defaults to time.Now.
	Now func() time.Time

	locks authorLocks
}

func (eng *Engine) now() time.Time {
	if eng.Now != nil {
		return eng.Now()
	}
	return time.Now()
}

// ProcessMessage runs the full pipeline for one message. A profile persist
// failure is returned to the caller (the message must not be treated as
// analyzed); alert store and notification failures are logged and counted
// but do not fail the call, since the profile update and the alert side
// effects are deliberately not transactionally coupled.
func (eng *Engine) ProcessMessage(ctx context.Context, evt MessageEvent) (res *Result, err error) {
	// recover any panics from the analysis path, like an HTTP server would
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("message processing exception", "err", r, "authorID", evt.AuthorID, "messageID", evt.MessageID)
			err = fmt.Errorf("panic during message processing: %v", r)
		}
	}()
	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("message").Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues("message").Inc()

	asmt := eng.Classifier.Analyze(evt.Content)

	unlock := eng.locks.Lock(evt.AuthorID)
	defer unlock()

	prior, err := eng.Profiles.GetProfile(ctx, evt.AuthorID)
	if err != nil {
		eventErrorCount.WithLabelValues("message").Inc()
		return nil, fmt.Errorf("reading profile for %s: %w", evt.AuthorID, err)
	}

	updated := profile.Aggregate(prior, evt.AuthorID, asmt, eng.AggConfig, eng.now())
	if err := eng.Profiles.PutProfile(ctx, updated); err != nil {
		eventErrorCount.WithLabelValues("message").Inc()
		return nil, fmt.Errorf("persisting profile for %s: %w", evt.AuthorID, err)
	}

	eng.recordHistory(ctx, evt, asmt)
	eng.incrementCounters(ctx, evt, asmt)

	decision := eng.Thresholds.Decide(asmt)
	if decision.ShouldAlert {
		eng.raiseAlert(ctx, evt, asmt, updated, decision)
	}

	eng.Logger.Debug("message processed",
		"authorID", evt.AuthorID,
		"messageID", evt.MessageID,
		"riskScore", asmt.RiskScore,
		"flags", asmt.Flags,
		"severity", decision.Severity,
		"shouldAlert", decision.ShouldAlert,
	)

	return &Result{Assessment: asmt, Profile: updated, Decision: decision}, nil
}

// ProcessAuthorJoin materializes an empty profile the first time an author is
// seen via a membership-join event, so moderator tooling can see the account
// before its first message.
func (eng *Engine) ProcessAuthorJoin(ctx context.Context, authorID string) error {
	eventProcessCount.WithLabelValues("join").Inc()
	unlock := eng.locks.Lock(authorID)
	defer unlock()
	existing, err := eng.Profiles.GetProfile(ctx, authorID)
	if err != nil {
		eventErrorCount.WithLabelValues("join").Inc()
		return fmt.Errorf("reading profile for %s: %w", authorID, err)
	}
	if existing != nil {
		return nil
	}
	if err := eng.Profiles.PutProfile(ctx, profile.NewProfile(authorID)); err != nil {
		eventErrorCount.WithLabelValues("join").Inc()
		return fmt.Errorf("materializing profile for %s: %w", authorID, err)
	}
	eng.Logger.Info("new author profile created", "authorID", authorID)
	return nil
}

// recordHistory leaves one assessment record per analyzed message, backing
// the author risk-history API. Like counters, a write failure loses audit
// detail only, never the profile update, so it is logged rather than
// returned.
func (eng *Engine) recordHistory(ctx context.Context, evt MessageEvent, asmt *classifier.Assessment) {
	if eng.History == nil {
		return
	}
	rec := &assessmentstore.Record{
		ID:             uuid.New().String(),
		AuthorID:       evt.AuthorID,
		MessageID:      evt.MessageID,
		ChannelID:      evt.ChannelID,
		RiskScore:      asmt.RiskScore,
		SentimentScore: asmt.SentimentScore,
		Flags:          asmt.Flags,
		CreatedAt:      eng.now().UTC(),
	}
	if err := eng.History.Add(ctx, rec); err != nil {
		historyFailed.Inc()
		eng.Logger.Error("failed to record assessment history", "err", err, "authorID", evt.AuthorID, "messageID", evt.MessageID)
	}
}

func (eng *Engine) incrementCounters(ctx context.Context, evt MessageEvent, asmt *classifier.Assessment) {
	if eng.Counters == nil {
		return
	}
	channel := evt.ChannelID
	if channel == "" {
		channel = "unknown"
	}
	// counter failures are operational-visibility loss only; log and move on
	if err := eng.Counters.Increment(ctx, countstore.NameMessage, channel); err != nil {
		eng.Logger.Warn("failed to increment message counter", "err", err)
	}
	if err := eng.Counters.Increment(ctx, countstore.NameMessage, "all"); err != nil {
		eng.Logger.Warn("failed to increment message counter", "err", err)
	}
	if err := eng.Counters.IncrementDistinct(ctx, countstore.NameAuthors, "all", evt.AuthorID); err != nil {
		eng.Logger.Warn("failed to increment author counter", "err", err)
	}
	if asmt.RiskScore >= eng.AggConfig.HighRiskThreshold {
		if err := eng.Counters.Increment(ctx, countstore.NameHighRisk, evt.AuthorID); err != nil {
			eng.Logger.Warn("failed to increment high-risk counter", "err", err)
		}
	}
}

func (eng *Engine) raiseAlert(ctx context.Context, evt MessageEvent, asmt *classifier.Assessment, prof *profile.Profile, decision profile.Decision) {
	alertsRaised.WithLabelValues(string(decision.Severity)).Inc()
	if eng.Counters != nil {
		if err := eng.Counters.Increment(ctx, countstore.NameAlert, string(decision.Severity)); err != nil {
			eng.Logger.Warn("failed to increment alert counter", "err", err)
		}
	}

	if eng.Alerts != nil {
		alert := &alertstore.Alert{
			ID:        uuid.New().String(),
			AuthorID:  evt.AuthorID,
			Severity:  decision.Severity,
			RiskScore: asmt.RiskScore,
			Flags:     asmt.Flags,
			Status:    alertstore.StatusOpen,
			CreatedAt: eng.now().UTC(),
		}
		if err := eng.Alerts.Add(ctx, alert); err != nil {
			alertsFailed.WithLabelValues("store").Inc()
			eng.Logger.Error("failed to persist alert", "err", err, "authorID", evt.AuthorID)
		}
	}

	if eng.Notifier != nil {
		if err := eng.Notifier.Send(ctx, asmt, prof, decision); err != nil {
			alertsFailed.WithLabelValues("notify").Inc()
			eng.Logger.Error("failed to send alert notification", "err", err, "authorID", evt.AuthorID)
		}
	}
}
