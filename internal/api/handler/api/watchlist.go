package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/newthinker/stockwatch/internal/api/response"
	"github.com/newthinker/stockwatch/internal/core"
)

// WatchlistService defines the interface needed from watchlist.Service.
type WatchlistService interface {
	Watchlist(ctx context.Context) []core.EnrichedRow
	CurrentSymbols(ctx context.Context) []string
	Toggle(ctx context.Context, symbol, company string, present bool) core.ToggleResult
}

// WatchlistHandler handles watchlist API requests.
type WatchlistHandler struct {
	svc WatchlistService
}

// NewWatchlistHandler creates a new watchlist handler.
func NewWatchlistHandler(svc WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{svc: svc}
}

// AddRequest is the request body for adding a symbol.
type AddRequest struct {
	Symbol  string `json:"symbol"`
	Company string `json:"company,omitempty"`
}

// ToggleRequest is the request body for a toggle. InWatchlist is the
// client's current belief about membership.
type ToggleRequest struct {
	Symbol      string `json:"symbol"`
	Company     string `json:"company,omitempty"`
	InWatchlist bool   `json:"in_watchlist"`
}

// ToggleResponse carries the outcome plus, on success, the refreshed view.
type ToggleResponse struct {
	core.ToggleResult
	Rows []core.EnrichedRow `json:"rows,omitempty"`
}

// List returns the caller's enriched watchlist.
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	rows := h.svc.Watchlist(r.Context())
	response.JSON(w, http.StatusOK, map[string]any{
		"rows":  rows,
		"count": len(rows),
	})
}

// Symbols returns the caller's raw watchlist symbols.
func (h *WatchlistHandler) Symbols(w http.ResponseWriter, r *http.Request) {
	symbols := h.svc.CurrentSymbols(r.Context())
	response.JSON(w, http.StatusOK, map[string]any{
		"symbols": symbols,
		"count":   len(symbols),
	})
}

// Toggle handles POST /api/v1/watchlist/toggle.
func (h *WatchlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidSymbol, err))
		return
	}
	h.respond(w, r, h.svc.Toggle(r.Context(), req.Symbol, req.Company, req.InWatchlist), http.StatusOK)
}

// Add adds a symbol to the watchlist.
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidSymbol, err))
		return
	}
	h.respond(w, r, h.svc.Toggle(r.Context(), req.Symbol, req.Company, false), http.StatusCreated)
}

// Remove removes the {symbol} path value from the watchlist.
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.Toggle(r.Context(), r.PathValue("symbol"), "", true), http.StatusOK)
}

func (h *WatchlistHandler) respond(w http.ResponseWriter, r *http.Request, res core.ToggleResult, okStatus int) {
	if !res.Success {
		response.JSON(w, response.StatusFor(res.Code), ToggleResponse{ToggleResult: res})
		return
	}
	rows := h.svc.Watchlist(r.Context())
	response.JSON(w, okStatus, ToggleResponse{ToggleResult: res, Rows: rows})
}
