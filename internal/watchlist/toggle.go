package watchlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/newthinker/stockwatch/internal/core"
	"github.com/newthinker/stockwatch/internal/identity"
	"go.uber.org/zap"
)

const (
	msgNotAuthenticated = "User not authenticated"
	msgUserNotFound     = "User ID not found"
	msgInvalidSymbol    = "Invalid symbol"
	msgAlreadyExists    = "Stock is already in your watchlist"
	msgToggleFailed     = "Failed to toggle watchlist status"
)

// Toggle adds or removes symbol for the current user. present is the
// caller's belief about membership and only selects the action; the reported
// outcome comes from the store, whose uniqueness constraint is authoritative.
// Toggle never returns an error: every failure becomes a ToggleResult.
func (s *Service) Toggle(ctx context.Context, symbol, company string, present bool) core.ToggleResult {
	action := "add"
	if present {
		action = "remove"
	}

	userID, err := s.resolver.Resolve(ctx)
	if err != nil {
		msg := msgNotAuthenticated
		if _, ok := identity.PrincipalFrom(ctx); ok {
			msg = msgUserNotFound
		}
		s.recordToggle(action, core.ErrUnauthenticated.Code)
		return core.ToggleResult{Message: msg, Code: core.ErrUnauthenticated.Code, InWatchlist: present}
	}

	sym, err := core.NormalizeSymbol(symbol)
	if err != nil {
		s.recordToggle(action, core.ErrInvalidSymbol.Code)
		return core.ToggleResult{Message: msgInvalidSymbol, Code: core.ErrInvalidSymbol.Code, InWatchlist: present}
	}

	if present {
		return s.remove(ctx, userID, sym)
	}
	return s.add(ctx, userID, sym, company)
}

// Add is Toggle for a symbol the caller believes is absent.
func (s *Service) Add(ctx context.Context, symbol, company string) core.ToggleResult {
	return s.Toggle(ctx, symbol, company, false)
}

// Remove is Toggle for a symbol the caller believes is present.
func (s *Service) Remove(ctx context.Context, symbol string) core.ToggleResult {
	return s.Toggle(ctx, symbol, "", true)
}

func (s *Service) add(ctx context.Context, userID, symbol, company string) core.ToggleResult {
	if company == "" {
		company = symbol
	}
	entry := core.WatchlistEntry{
		ID:      s.newID(),
		UserID:  userID,
		Symbol:  symbol,
		Company: company,
		AddedAt: s.now().UTC(),
	}

	err := s.store.InsertOne(ctx, entry)
	switch {
	case err == nil:
		s.recordToggle("add", "ok")
		s.logger.Info("watchlist entry added",
			zap.String("user_id", userID),
			zap.String("symbol", symbol))
		return core.ToggleResult{
			Success:     true,
			Message:     fmt.Sprintf("Added %s to watchlist", symbol),
			InWatchlist: true,
		}
	case errors.Is(err, core.ErrAlreadyExists):
		s.recordToggle("add", core.ErrAlreadyExists.Code)
		return core.ToggleResult{
			Message:     msgAlreadyExists,
			Code:        core.ErrAlreadyExists.Code,
			InWatchlist: true,
		}
	default:
		s.recordToggle("add", core.ErrStoreUnavailable.Code)
		s.logger.Error("watchlist insert failed",
			zap.String("user_id", userID),
			zap.String("symbol", symbol),
			zap.Error(err))
		return core.ToggleResult{Message: msgToggleFailed, Code: core.ErrStoreUnavailable.Code}
	}
}

func (s *Service) remove(ctx context.Context, userID, symbol string) core.ToggleResult {
	removed, err := s.store.DeleteOne(ctx, userID, symbol)
	if err != nil {
		s.recordToggle("remove", core.ErrStoreUnavailable.Code)
		s.logger.Error("watchlist delete failed",
			zap.String("user_id", userID),
			zap.String("symbol", symbol),
			zap.Error(err))
		return core.ToggleResult{Message: msgToggleFailed, Code: core.ErrStoreUnavailable.Code, InWatchlist: true}
	}

	s.recordToggle("remove", "ok")
	if !removed {
		s.logger.Debug("remove of absent entry",
			zap.String("user_id", userID),
			zap.String("symbol", symbol))
		return core.ToggleResult{
			Success: true,
			Message: fmt.Sprintf("%s was not in your watchlist", symbol),
		}
	}
	s.logger.Info("watchlist entry removed",
		zap.String("user_id", userID),
		zap.String("symbol", symbol))
	return core.ToggleResult{
		Success: true,
		Message: fmt.Sprintf("Removed %s from watchlist", symbol),
	}
}
