package alertstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type MemAlertStore struct {
	lk sync.Mutex
	// newest last; List walks backwards
	alerts []*Alert
	byID   map[string]*Alert
}

var _ AlertStore = (*MemAlertStore)(nil)

func NewMemAlertStore() *MemAlertStore {
	return &MemAlertStore{
		byID: make(map[string]*Alert),
	}
}

func (s *MemAlertStore) Add(ctx context.Context, alert *Alert) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	cp := *alert
	s.alerts = append(s.alerts, &cp)
	s.byID[cp.ID] = &cp
	return nil
}

func (s *MemAlertStore) Get(ctx context.Context, id string) (*Alert, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemAlertStore) List(ctx context.Context, q ListQuery) ([]*Alert, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	out := []*Alert{}
	skipped := 0
	for i := len(s.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		a := s.alerts[i]
		if q.AuthorID != "" && a.AuthorID != q.AuthorID {
			continue
		}
		if q.Status != "" && a.Status != q.Status {
			continue
		}
		if q.Severity != "" && a.Severity != q.Severity {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemAlertStore) UpdateStatus(ctx context.Context, id, status, notes string, now time.Time) error {
	if !validStatus(status) {
		return fmt.Errorf("invalid alert status: %s", status)
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	if status == StatusResolved {
		ts := now.UTC()
		a.ResolvedAt = &ts
		a.ResolutionNotes = notes
	}
	return nil
}

func (s *MemAlertStore) CountByStatus(ctx context.Context, status string) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	n := 0
	for _, a := range s.alerts {
		if a.Status == status {
			n++
		}
	}
	return n, nil
}
