package profile

import (
	"time"

	"github.com/haven-community/vigil/classifier"
)

const (
	// DefaultDecay is the discount applied to previously accumulated risk
	// before a new message's score is added.
	DefaultDecay = 0.95
	// DefaultHighRiskThreshold is the per-message score at or above which
	// HighRiskCount is incremented.
	DefaultHighRiskThreshold = 0.8

	// trend detection is skipped until an author has more than this many
	// messages; below it the signal is too noisy
	trendMinMessages = 5
	// the current message's score must exceed the updated average by this
	// factor to flag escalation
	trendFactor = 1.2
)

// AggregatorConfig carries the tunables of profile aggregation. The zero
// value is not usable; construct with DefaultAggregatorConfig.
type AggregatorConfig struct {
	Decay             float64
	HighRiskThreshold float64
}

func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Decay:             DefaultDecay,
		HighRiskThreshold: DefaultHighRiskThreshold,
	}
}

// Aggregate folds one assessment into an author's profile and returns the
// updated copy. A nil prior profile is materialized with zero values first.
// The input profile is not mutated.
//
// The running average uses a decayed effective-count denominator
// (messageCount*decay + 1) rather than a plain message count: TotalRiskScore
// is itself a decayed sum, and this denominator keeps the ratio bounded in
// roughly [0,1], converging toward the incoming score under sustained
// repetition.
//
// Trend detection compares the incoming raw score against the average that
// already includes that score. That asymmetry is inherited behavior; keep it
// unless the product requirement changes (see DESIGN.md).
func Aggregate(prior *Profile, authorID string, asmt *classifier.Assessment, cfg AggregatorConfig, now time.Time) *Profile {
	var p *Profile
	if prior == nil {
		p = NewProfile(authorID)
	} else {
		p = prior.Clone()
	}
	if p.FlagHistory == nil {
		p.FlagHistory = map[string]int64{}
	}

	p.MessageCount++
	p.TotalRiskScore = p.TotalRiskScore*cfg.Decay + asmt.RiskScore
	p.AverageRiskScore = p.TotalRiskScore / (float64(p.MessageCount)*cfg.Decay + 1)

	if asmt.RiskScore >= cfg.HighRiskThreshold {
		p.HighRiskCount++
	}

	for _, flag := range asmt.Flags {
		p.FlagHistory[flag]++
	}

	if p.MessageCount > trendMinMessages {
		p.TrendingUp = asmt.RiskScore > p.AverageRiskScore*trendFactor
	}

	ts := now.UTC()
	p.LastAnalyzedAt = &ts
	return p
}
