// Package blobstore stores watchlists as one JSON document per entry on a
// blob.Storage backend (local disk or S3).
package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/newthinker/stockwatch/internal/core"
	"github.com/newthinker/stockwatch/internal/storage/blob"
	"github.com/newthinker/stockwatch/internal/store"
	"go.uber.org/zap"
)

const root = "watchlists"

// Store implements store.Store. Uniqueness comes from the backend's
// create-if-absent primitive on the (user, symbol) path.
type Store struct {
	blobs  blob.Storage
	logger *zap.Logger
}

// New wraps a blob backend.
func New(blobs blob.Storage, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{blobs: blobs, logger: logger}
}

func userPrefix(userID string) string {
	return root + "/" + url.PathEscape(userID) + "/"
}

func entryPath(userID, symbol string) string {
	return userPrefix(userID) + url.PathEscape(symbol) + ".json"
}

func (s *Store) Find(ctx context.Context, userID string) ([]core.WatchlistEntry, error) {
	paths, err := s.blobs.List(ctx, userPrefix(userID))
	if err != nil {
		return nil, core.WrapError(core.ErrStoreUnavailable, err)
	}

	entries := make([]core.WatchlistEntry, 0, len(paths))
	for _, p := range paths {
		if !strings.HasSuffix(p, ".json") {
			continue
		}
		data, err := s.blobs.Read(ctx, p)
		if err != nil {
			// Removed between List and Read
			if errors.Is(err, core.ErrNotFound) {
				continue
			}
			return nil, core.WrapError(core.ErrStoreUnavailable, err)
		}
		var e core.WatchlistEntry
		if err := json.Unmarshal(data, &e); err != nil {
			s.logger.Warn("skipping undecodable entry", zap.String("path", p), zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	store.SortEntries(entries)
	return entries, nil
}

func (s *Store) InsertOne(ctx context.Context, entry core.WatchlistEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}

	err = s.blobs.Create(ctx, entryPath(entry.UserID, entry.Symbol), data)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrAlreadyExists):
		return err
	default:
		return core.WrapError(core.ErrStoreUnavailable, err)
	}
}

func (s *Store) DeleteOne(ctx context.Context, userID, symbol string) (bool, error) {
	err := s.blobs.Delete(ctx, entryPath(userID, symbol))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, core.ErrNotFound):
		return false, nil
	default:
		return false, core.WrapError(core.ErrStoreUnavailable, err)
	}
}
