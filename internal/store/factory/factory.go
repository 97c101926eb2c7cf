package factory

import (
	"fmt"

	"github.com/newthinker/stockwatch/internal/config"
	"github.com/newthinker/stockwatch/internal/storage/blob"
	"github.com/newthinker/stockwatch/internal/store"
	"github.com/newthinker/stockwatch/internal/store/blobstore"
	"github.com/newthinker/stockwatch/internal/store/memory"
	"github.com/newthinker/stockwatch/internal/store/redisstore"
	"go.uber.org/zap"
)

// New creates a watchlist store based on configuration.
func New(cfg config.StoreConfig, logger *zap.Logger) (store.Store, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.New(), nil
	case "redis":
		return redisstore.New(redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, logger), nil
	case "localfs":
		fs, err := blob.NewLocalFS(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening local store: %w", err)
		}
		return blobstore.New(fs, logger), nil
	case "s3":
		s3, err := blob.NewS3(blob.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("opening s3 store: %w", err)
		}
		return blobstore.New(s3, logger), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
