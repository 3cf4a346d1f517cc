package pending

import (
	"context"
	"sync"
	"time"

	"enrollgate/internal/registration/models"
)

// InMemoryStore keeps pending registrations in a process-local map. It is
// the default backing for single-replica deployments and the unit-test
// substrate.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.PendingRegistration
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]models.PendingRegistration)}
}

func (s *InMemoryStore) Put(_ context.Context, rec models.PendingRegistration, ttl time.Duration) error {
	now := time.Now()
	rec.CreatedAt = now
	rec.ExpiresAt = now.Add(ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Address] = rec
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, address string) (models.PendingRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[address]
	if !ok || rec.ExpiredAt(time.Now()) {
		return models.PendingRegistration{}, ErrNotFound
	}
	return rec, nil
}

func (s *InMemoryStore) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, address)
	return nil
}

func (s *InMemoryStore) SweepExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for address, rec := range s.records {
		if rec.ExpiredAt(now) {
			delete(s.records, address)
			removed++
		}
	}
	return removed, nil
}
