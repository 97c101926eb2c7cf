// Package storetest holds the behavioural contract every store.Store
// implementation must satisfy.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/stockwatch/internal/core"
	"github.com/newthinker/stockwatch/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) store.Store

var base = time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC)

func entry(user, symbol string, offset time.Duration) core.WatchlistEntry {
	return core.WatchlistEntry{
		ID:      user + "-" + symbol,
		UserID:  user,
		Symbol:  symbol,
		Company: symbol + " Inc.",
		AddedAt: base.Add(offset),
	}
}

// Run exercises the store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertAndFind", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.InsertOne(ctx, entry("u1", "AAPL", 0)))

		got, err := s.Find(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "AAPL", got[0].Symbol)
		assert.Equal(t, "AAPL Inc.", got[0].Company)
		assert.Equal(t, "u1-AAPL", got[0].ID)
		assert.True(t, got[0].AddedAt.Equal(base), "added_at should round-trip")
	})

	t.Run("FindEmpty", func(t *testing.T) {
		s := newStore(t)

		got, err := s.Find(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("DuplicateKey", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.InsertOne(ctx, entry("u1", "AAPL", 0)))
		err := s.InsertOne(ctx, entry("u1", "AAPL", time.Minute))
		assert.True(t, errors.Is(err, core.ErrAlreadyExists), "expected ALREADY_EXISTS, got %v", err)

		got, _ := s.Find(ctx, "u1")
		assert.Len(t, got, 1)
	})

	t.Run("InsertionOrder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i, sym := range []string{"TSLA", "AAPL", "MSFT"} {
			require.NoError(t, s.InsertOne(ctx, entry("u1", sym, time.Duration(i)*time.Second)))
		}

		got, err := s.Find(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"TSLA", "AAPL", "MSFT"}, symbols(got))
	})

	t.Run("UsersIsolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.InsertOne(ctx, entry("u1", "AAPL", 0)))
		require.NoError(t, s.InsertOne(ctx, entry("u2", "AAPL", 0)))

		removed, err := s.DeleteOne(ctx, "u2", "AAPL")
		require.NoError(t, err)
		assert.True(t, removed)

		got, _ := s.Find(ctx, "u1")
		assert.Equal(t, []string{"AAPL"}, symbols(got))
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.InsertOne(ctx, entry("u1", "AAPL", 0)))
		require.NoError(t, s.InsertOne(ctx, entry("u1", "MSFT", time.Second)))

		removed, err := s.DeleteOne(ctx, "u1", "AAPL")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = s.DeleteOne(ctx, "u1", "AAPL")
		require.NoError(t, err)
		assert.False(t, removed)

		got, _ := s.Find(ctx, "u1")
		assert.Equal(t, []string{"MSFT"}, symbols(got))
	})

	t.Run("ConcurrentInsertSameSymbol", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const n = 8
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.InsertOne(ctx, entry("u1", "AAPL", time.Duration(i)))
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			assert.True(t, errors.Is(err, core.ErrAlreadyExists), "loser should see ALREADY_EXISTS, got %v", err)
		}
		assert.Equal(t, 1, wins)

		got, _ := s.Find(ctx, "u1")
		assert.Len(t, got, 1)
	})
}

func symbols(entries []core.WatchlistEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Symbol
	}
	return out
}
