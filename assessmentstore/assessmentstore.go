// Package assessmentstore persists the per-message assessment records that
// back an author's risk history: every analyzed message leaves one row, so
// moderators can see how a profile's running state was arrived at. The
// profile itself (profilestore) is the aggregate; this is the trail.
package assessmentstore

import (
	"context"
	"time"
)

type Record struct {
	ID             string    `json:"id"`
	AuthorID       string    `json:"authorId"`
	MessageID      string    `json:"messageId,omitempty"`
	ChannelID      string    `json:"channelId,omitempty"`
	RiskScore      float64   `json:"riskScore"`
	SentimentScore float64   `json:"sentimentScore"`
	Flags          []string  `json:"flags,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type AssessmentStore interface {
	Add(ctx context.Context, rec *Record) error
	// ListByAuthor returns the author's records newest-first, at most limit
	// (implementations default limit to 50).
	ListByAuthor(ctx context.Context, authorID string, limit int) ([]*Record, error)
}

const defaultListLimit = 50
