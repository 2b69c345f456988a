// Package alertstore persists raised alerts for the moderator-facing API.
//
// The alert *decision* itself is ephemeral (profile.Decision); what is stored
// here is the resulting moderator work item, with an open/acknowledged/
// resolved lifecycle.
package alertstore

import (
	"context"
	"errors"
	"time"

	"github.com/haven-community/vigil/profile"
)

const (
	StatusOpen         = "open"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
)

var ErrNotFound = errors.New("alert not found")

type Alert struct {
	ID              string           `json:"id"`
	AuthorID        string           `json:"authorId"`
	Severity        profile.Severity `json:"severity"`
	RiskScore       float64          `json:"riskScore"`
	Flags           []string         `json:"flags"`
	Status          string           `json:"status"`
	CreatedAt       time.Time        `json:"createdAt"`
	ResolvedAt      *time.Time       `json:"resolvedAt,omitempty"`
	ResolutionNotes string           `json:"resolutionNotes,omitempty"`
}

// ListQuery filters and paginates alert listings. Zero-value fields are
// ignored; Limit defaults to 50 in implementations.
type ListQuery struct {
	AuthorID string
	Status   string
	Severity profile.Severity
	Offset   int
	Limit    int
}

type AlertStore interface {
	Add(ctx context.Context, alert *Alert) error
	Get(ctx context.Context, id string) (*Alert, error)
	// List returns alerts newest-first.
	List(ctx context.Context, q ListQuery) ([]*Alert, error)
	// UpdateStatus transitions an alert; resolving stamps ResolvedAt and
	// records the notes. Returns ErrNotFound for an unknown id.
	UpdateStatus(ctx context.Context, id, status, notes string, now time.Time) error
	CountByStatus(ctx context.Context, status string) (int, error)
}

func validStatus(status string) bool {
	switch status {
	case StatusOpen, StatusAcknowledged, StatusResolved:
		return true
	}
	return false
}
