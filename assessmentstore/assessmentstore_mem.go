package assessmentstore

import (
	"context"
	"sync"
)

type MemAssessmentStore struct {
	lk sync.Mutex
	// newest last, per author; ListByAuthor walks backwards
	byAuthor map[string][]*Record
}

var _ AssessmentStore = (*MemAssessmentStore)(nil)

func NewMemAssessmentStore() *MemAssessmentStore {
	return &MemAssessmentStore{
		byAuthor: make(map[string][]*Record),
	}
}

func (s *MemAssessmentStore) Add(ctx context.Context, rec *Record) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	cp := *rec
	s.byAuthor[rec.AuthorID] = append(s.byAuthor[rec.AuthorID], &cp)
	return nil
}

func (s *MemAssessmentStore) ListByAuthor(ctx context.Context, authorID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	recs := s.byAuthor[authorID]
	out := []*Record{}
	for i := len(recs) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *recs[i]
		out = append(out, &cp)
	}
	return out, nil
}
