// Package watchlist implements the per-user watchlist: race-safe toggling of
// membership and on-demand enrichment with live market data.
package watchlist

import (
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/stockwatch/internal/identity"
	"github.com/newthinker/stockwatch/internal/marketdata"
	"github.com/newthinker/stockwatch/internal/store"
	"go.uber.org/zap"
)

// Recorder receives toggle and enrichment observations.
type Recorder interface {
	RecordToggle(action, result string)
	RecordEnrich(entries, kept int, duration float64)
}

// Deps are the collaborators of a Service. Directory and Metrics are optional.
type Deps struct {
	Store     store.Store
	Gateway   marketdata.Gateway
	Resolver  identity.Resolver
	Directory identity.Directory
	Metrics   Recorder
	Logger    *zap.Logger
}

// Service is the only component that mutates the watchlist store.
type Service struct {
	store     store.Store
	gateway   marketdata.Gateway
	resolver  identity.Resolver
	directory identity.Directory
	metrics   Recorder
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

// New creates a watchlist service.
func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     deps.Store,
		gateway:   deps.Gateway,
		resolver:  deps.Resolver,
		directory: deps.Directory,
		metrics:   deps.Metrics,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *Service) recordToggle(action, result string) {
	if s.metrics != nil {
		s.metrics.RecordToggle(action, result)
	}
}

func (s *Service) recordEnrich(entries, kept int, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordEnrich(entries, kept, d.Seconds())
	}
}
