package profilestore

import (
	"context"
	"sync"

	"github.com/haven-community/vigil/profile"
)

// MemProfileStore is a mutex-guarded in-memory store, for tests and
// redis-less deployments. Profiles are cloned on the way in and out so
// callers never share the flag history map with the store.
type MemProfileStore struct {
	lk   sync.RWMutex
	data map[string]*profile.Profile
}

var _ ProfileStore = (*MemProfileStore)(nil)

func NewMemProfileStore() *MemProfileStore {
	return &MemProfileStore{
		data: make(map[string]*profile.Profile),
	}
}

func (s *MemProfileStore) GetProfile(ctx context.Context, authorID string) (*profile.Profile, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	p, ok := s.data[authorID]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (s *MemProfileStore) PutProfile(ctx context.Context, p *profile.Profile) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.data[p.AuthorID] = p.Clone()
	return nil
}
