// Package notify delivers alert notifications to external channels.
//
// Delivery is best-effort by design: a failed send is logged and counted but
// never retried indefinitely and never rolls back the profile update that
// triggered it.
package notify

import (
	"context"
	"log/slog"

	"github.com/haven-community/vigil/classifier"
	"github.com/haven-community/vigil/profile"
)

// Notifier sends one alert notification carrying both the triggering
// assessment and the author's updated profile.
type Notifier interface {
	Send(ctx context.Context, asmt *classifier.Assessment, prof *profile.Profile, decision profile.Decision) error
}

// LogNotifier writes alerts to the structured log. Used when no external
// channel is configured, so alert visibility never silently disappears.
type LogNotifier struct {
	Logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func (n *LogNotifier) Send(ctx context.Context, asmt *classifier.Assessment, prof *profile.Profile, decision profile.Decision) error {
	n.Logger.Warn("risk alert",
		"authorID", prof.AuthorID,
		"severity", decision.Severity,
		"riskScore", asmt.RiskScore,
		"flags", asmt.Flags,
		"messageCount", prof.MessageCount,
		"highRiskCount", prof.HighRiskCount,
		"trendingUp", prof.TrendingUp,
	)
	return nil
}

// MultiNotifier fans out to several channels, returning the first error
// after attempting all of them.
type MultiNotifier []Notifier

var _ Notifier = (MultiNotifier)(nil)

func (m MultiNotifier) Send(ctx context.Context, asmt *classifier.Assessment, prof *profile.Profile, decision profile.Decision) error {
	var firstErr error
	for _, n := range m {
		if err := n.Send(ctx, asmt, prof, decision); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
