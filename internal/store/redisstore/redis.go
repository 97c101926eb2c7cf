// Package redisstore keeps watchlists in Redis, one hash per user keyed by symbol.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/go-redis/redis/v8"
	"github.com/newthinker/stockwatch/internal/core"
	"github.com/newthinker/stockwatch/internal/store"
	"go.uber.org/zap"
)

// Store implements store.Store on a Redis hash per user. HSETNX gives the
// atomic (user, symbol) uniqueness check.
type Store struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// New connects to Redis with the given options.
func New(opts Options, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("initializing redis watchlist store",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
	)
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewWithClient(rdb, opts.Prefix, logger)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "stockwatch"
	}
	return &Store{client: client, prefix: prefix, logger: logger}
}

func (s *Store) key(userID string) string {
	return s.prefix + ":watchlist:" + userID
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return core.WrapError(core.ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Find(ctx context.Context, userID string) ([]core.WatchlistEntry, error) {
	fields, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		s.logger.Error("HGETALL failed", zap.String("user_id", userID), zap.Error(err))
		return nil, core.WrapError(core.ErrStoreUnavailable, err)
	}

	entries := make([]core.WatchlistEntry, 0, len(fields))
	for symbol, raw := range fields {
		var e core.WatchlistEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			s.logger.Warn("skipping undecodable entry",
				zap.String("user_id", userID),
				zap.String("symbol", symbol),
				zap.Error(err),
			)
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

	ok, err := s.client.HSetNX(ctx, s.key(entry.UserID), entry.Symbol, data).Result()
	if err != nil {
		s.logger.Error("HSETNX failed",
			zap.String("user_id", entry.UserID),
			zap.String("symbol", entry.Symbol),
			zap.Error(err),
		)
		return core.WrapError(core.ErrStoreUnavailable, err)
	}
	if !ok {
		return core.WrapError(core.ErrAlreadyExists,
			fmt.Errorf("duplicate key (%s, %s)", entry.UserID, entry.Symbol))
	}
	return nil
}

func (s *Store) DeleteOne(ctx context.Context, userID, symbol string) (bool, error) {
	n, err := s.client.HDel(ctx, s.key(userID), symbol).Result()
	if err != nil {
		s.logger.Error("HDEL failed",
			zap.String("user_id", userID),
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return false, core.WrapError(core.ErrStoreUnavailable, err)
	}
	return n > 0, nil
}
