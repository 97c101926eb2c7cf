// Package memory is an in-process watchlist store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/newthinker/stockwatch/internal/core"
)

// Store keeps entries per user in insertion order.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]core.WatchlistEntry
}

// New creates an empty memory store.
func New() *Store {
	return &Store{
		entries: make(map[string][]core.WatchlistEntry),
	}
}

// Find returns a copy of the user's entries.
func (s *Store) Find(ctx context.Context, userID string) ([]core.WatchlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]core.WatchlistEntry, len(s.entries[userID]))
	copy(result, s.entries[userID])
	return result, nil
}

// InsertOne adds an entry unless (UserID, Symbol) is already present.
func (s *Store) InsertOne(ctx context.Context, entry core.WatchlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries[entry.UserID] {
		if e.Symbol == entry.Symbol {
			return core.WrapError(core.ErrAlreadyExists,
				fmt.Errorf("duplicate key (%s, %s)", entry.UserID, entry.Symbol))
		}
	}
	s.entries[entry.UserID] = append(s.entries[entry.UserID], entry)
	return nil
}

// DeleteOne removes the (userID, symbol) entry if present.
func (s *Store) DeleteOne(ctx context.Context, userID, symbol string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.entries[userID]
	for i, e := range list {
		if e.Symbol == symbol {
			s.entries[userID] = append(list[:i:i], list[i+1:]...)
			if len(s.entries[userID]) == 0 {
				delete(s.entries, userID)
			}
			return true, nil
		}
	}
	return false, nil
}
