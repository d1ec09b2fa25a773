package session

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu      sync.RWMutex
	wallets map[string]string
	prefs   map[string]Preferences
}

// NewMemoryStore builds an in-process session store.
func NewMemoryStore() Store {
	return &memoryStore{wallets: make(map[string]string), prefs: make(map[string]Preferences)}
}

func (s *memoryStore) Get(_ context.Context, userID string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := State{ActiveWalletID: s.wallets[userID], Preferences: DefaultPreferences()}
	if p, ok := s.prefs[userID]; ok {
		state.Preferences = p
	}
	return state, nil
}

func (s *memoryStore) SetActiveWallet(_ context.Context, userID, walletID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[userID] = walletID
	return nil
}

func (s *memoryStore) SetPreferences(_ context.Context, userID string, prefs Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[userID] = prefs
	return nil
}

func (s *memoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wallets, userID)
	return nil
}
