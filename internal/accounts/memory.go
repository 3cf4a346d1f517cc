package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps accounts in a process-local map keyed by address.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{accounts: make(map[string]Account)}
}

func (s *InMemoryStore) Exists(_ context.Context, address string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[address]
	return ok, nil
}

func (s *InMemoryStore) Create(_ context.Context, account Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.Address]; ok {
		return Account{}, ErrDuplicate
	}

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.CreatedAt = time.Now()
	s.accounts[account.Address] = account
	return account, nil
}

func (s *InMemoryStore) FindByAddress(_ context.Context, address string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[address]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}
