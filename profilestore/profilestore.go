// Package profilestore provides durable per-author profile persistence.
//
// All implementations share the same contract: GetProfile returns (nil, nil)
// for an author that has never been seen, and PutProfile surfaces persistence
// failures as errors so a lost write is never silently treated as applied.
package profilestore

import (
	"context"

	"github.com/haven-community/vigil/profile"
)

type ProfileStore interface {
	GetProfile(ctx context.Context, authorID string) (*profile.Profile, error)
	PutProfile(ctx context.Context, p *profile.Profile) error
}
