package memory

import (
	"context"
	"sync"

	"engage-quiz/internal/domain"
)

// LedgerStore keeps points balances in process memory.
type LedgerStore struct {
	mu      sync.RWMutex
	ledgers map[string]domain.Ledger
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{ledgers: make(map[string]domain.Ledger)}
}

func (s *LedgerStore) GetLedger(_ context.Context, userID string) (domain.Ledger, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ledger, ok := s.ledgers[userID]
	return ledger, ok, nil
}

func (s *LedgerStore) Credit(_ context.Context, userID string, opening, points int) (domain.Ledger, domain.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.currentLocked(userID, opening)
	after := before.Credit(points)
	s.ledgers[userID] = after
	return before, after, nil
}

func (s *LedgerStore) Redeem(_ context.Context, userID string, opening int, reward domain.Reward) (domain.Ledger, domain.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.currentLocked(userID, opening)
	after, err := before.Redeem(reward)
	if err != nil {
		return before, before, err
	}
	s.ledgers[userID] = after
	return before, after, nil
}

func (s *LedgerStore) currentLocked(userID string, opening int) domain.Ledger {
	if ledger, ok := s.ledgers[userID]; ok {
		return ledger
	}
	return domain.Ledger{UserID: userID, Balance: opening}
}
