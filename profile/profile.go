// Package profile holds the per-author risk profile, the decay-weighted
// aggregation applied to it on each new assessment, and the alert threshold
// decision.
//
// Aggregate and Decide are pure functions. Serialization of concurrent
// updates to one author's profile is the caller's responsibility (see the
// engine package's scheduler); the functions here assume exclusive access to
// their inputs.
package profile

import (
	"time"
)

// Profile is the durable per-author record, keyed by author identity. It is
// created lazily with zero values the first time an author is seen and only
// ever mutated through Aggregate.
type Profile struct {
	AuthorID string `json:"authorId"`
	// MessageCount only increases.
	MessageCount int64 `json:"messageCount"`
	// TotalRiskScore is a decay-weighted cumulative sum, not an average:
	// each previously accumulated unit is worth Decay of its prior value
	// relative to a freshly arriving unit.
	TotalRiskScore float64 `json:"totalRiskScore"`
	// AverageRiskScore is always derived from TotalRiskScore and
	// MessageCount, never set independently.
	AverageRiskScore float64 `json:"averageRiskScore"`
	HighRiskCount    int64   `json:"highRiskCount"`
	// FlagHistory counts only increase.
	FlagHistory    map[string]int64 `json:"flagHistory,omitempty"`
	TrendingUp     bool             `json:"trendingUp"`
	LastAnalyzedAt *time.Time       `json:"lastAnalyzedAt,omitempty"`
}

// NewProfile returns the all-zero profile for an author.
func NewProfile(authorID string) *Profile {
	return &Profile{
		AuthorID:    authorID,
		FlagHistory: map[string]int64{},
	}
}

// Clone returns a deep copy, so stores can hand out profiles without sharing
// the flag history map.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	out.FlagHistory = make(map[string]int64, len(p.FlagHistory))
	for k, v := range p.FlagHistory {
		out.FlagHistory[k] = v
	}
	if p.LastAnalyzedAt != nil {
		t := *p.LastAnalyzedAt
		out.LastAnalyzedAt = &t
	}
	return &out
}
