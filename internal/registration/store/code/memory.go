package code

import (
	"context"
	"sync"
	"time"

	"enrollgate/internal/registration/models"
)

// InMemoryStore keeps code rows in a slice per address. All mutation runs
// under one mutex, so Consume's check-and-set is atomic by construction.
type InMemoryStore struct {
	mu   sync.Mutex
	rows map[string][]models.VerificationCode
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rows: make(map[string][]models.VerificationCode)}
}

func (s *InMemoryStore) Insert(_ context.Context, rec models.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rec.Address] = append(s.rows[rec.Address], rec)
	return nil
}

func (s *InMemoryStore) DeleteUnconsumed(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rows[address][:0]
	for _, rec := range s.rows[address] {
		if rec.Consumed {
			kept = append(kept, rec)
		}
	}
	if len(kept) == 0 {
		delete(s.rows, address)
		return nil
	}
	s.rows[address] = kept
	return nil
}

func (s *InMemoryStore) Consume(_ context.Context, address, code string, now time.Time) (models.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[address]
	for i := len(rows) - 1; i >= 0; i-- {
		rec := rows[i]
		if rec.Code != code || rec.Consumed || rec.ExpiredAt(now) {
			continue
		}
		rows[i].Consumed = true
		rec.Consumed = true
		return rec, nil
	}
	return models.VerificationCode{}, ErrNotFound
}

func (s *InMemoryStore) FindUnconsumed(_ context.Context, address, code string) (models.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[address]
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Code == code && !rows[i].Consumed {
			return rows[i], nil
		}
	}
	return models.VerificationCode{}, ErrNotFound
}

func (s *InMemoryStore) SweepExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for address, rows := range s.rows {
		kept := rows[:0]
		for _, rec := range rows {
			if rec.ExpiredAt(now) {
				removed++
				continue
			}
			kept = append(kept, rec)
		}
		if len(kept) == 0 {
			delete(s.rows, address)
			continue
		}
		s.rows[address] = kept
	}
	return removed, nil
}
