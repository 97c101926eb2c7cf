// Package store defines the durable watchlist backend.
//
// Implementations enforce (UserID, Symbol) uniqueness atomically inside
// InsertOne. That constraint, not any application-level membership check,
// is what keeps concurrent adds of the same symbol from producing two entries.
package store

import (
	"context"
	"sort"

	"github.com/newthinker/stockwatch/internal/core"
)

// Store is symbol-set CRUD for one user identity.
type Store interface {
	// Find returns the user's entries in insertion order.
	Find(ctx context.Context, userID string) ([]core.WatchlistEntry, error)

	// InsertOne stores a new entry, or returns core.ErrAlreadyExists if the
	// user already tracks the symbol.
	InsertOne(ctx context.Context, entry core.WatchlistEntry) error

	// DeleteOne removes the entry if present. It never fails because the entry
	// is absent; removed reports whether anything was deleted.
	DeleteOne(ctx context.Context, userID, symbol string) (removed bool, err error)
}

// SortEntries orders entries by AddedAt, breaking ties by symbol.
func SortEntries(entries []core.WatchlistEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].AddedAt.Equal(entries[j].AddedAt) {
			return entries[i].Symbol < entries[j].Symbol
		}
		return entries[i].AddedAt.Before(entries[j].AddedAt)
	})
}
