package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shai-hub/brokai/internal/portfolio"
	"github.com/shai-hub/brokai/internal/store"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log    *zap.Logger
	store  *store.Store
	prices portfolio.PriceSource
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, st *store.Store, prices portfolio.PriceSource) *APIHandler {
	return &APIHandler{log: log, store: st, prices: prices}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// insufficientLotsResponse identifies the pair that made a computation fail.
type insufficientLotsResponse struct {
	Error     string          `json:"error"`
	ClientID  string          `json:"client_id"`
	Symbol    string          `json:"symbol"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
}

// loadLedger builds a fresh ledger from the persisted trade log. Each
// request gets its own ledger so handlers share no mutable state.
func (h *APIHandler) loadLedger(clientID string) (*portfolio.Ledger, error) {
	recs, err := h.store.LoadTrades(clientID)
	if err != nil {
		return nil, err
	}
	ledger := portfolio.NewLedger()
	ledger.Merge(recs)
	return ledger, nil
}

// addTradeRequest is the POST /api/trades body.
type addTradeRequest struct {
	ClientID string          `json:"client_id"`
	Symbol   string          `json:"symbol"`
	Market   string          `json:"market"`
	Side     string          `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Time     *time.Time      `json:"time,omitempty"`
}

// TradesHandler lists trades on GET and ingests one trade on POST.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTrades(w, r)
	case http.MethodPost:
		h.addTrade(w, r)
	default:
		h.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}
}

func (h *APIHandler) listTrades(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client")
	ledger, err := h.loadLedger(clientID)
	if err != nil {
		h.log.Error("Failed to load trades", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load trades"})
		return
	}
	trades := ledger.Trades(clientID)
	if trades == nil {
		trades = []portfolio.TradeRecord{}
	}
	h.writeJSON(w, http.StatusOK, trades)
}

func (h *APIHandler) addTrade(w http.ResponseWriter, r *http.Request) {
	var req addTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	var at time.Time
	if req.Time != nil {
		at = *req.Time
	}

	ledger, err := h.loadLedger(req.ClientID)
	if err != nil {
		h.log.Error("Failed to load trades", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load trades"})
		return
	}

	rec, err := ledger.AddTrade(req.ClientID, req.Symbol, portfolio.Market(req.Market),
		portfolio.Side(req.Side), req.Quantity, req.Price, at)
	if err != nil {
		var invalid *portfolio.ValidationError
		if errors.As(err, &invalid) {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: invalid.Error()})
			return
		}
		h.log.Error("Failed to add trade", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to add trade"})
		return
	}

	if err := h.store.SaveTrade(rec); err != nil {
		h.log.Error("Failed to persist trade", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to persist trade"})
		return
	}

	h.log.Info("Trade recorded",
		zap.String("client_id", rec.ClientID),
		zap.String("symbol", rec.Symbol),
		zap.String("side", string(rec.Side)),
		zap.String("quantity", rec.Quantity.String()),
	)
	h.writeJSON(w, http.StatusCreated, rec)
}

// computeError maps an engine failure to the right HTTP response.
func (h *APIHandler) computeError(w http.ResponseWriter, err error) {
	var insufficient *portfolio.InsufficientLotsError
	if errors.As(err, &insufficient) {
		h.writeJSON(w, http.StatusConflict, insufficientLotsResponse{
			Error:     insufficient.Error(),
			ClientID:  insufficient.ClientID,
			Symbol:    insufficient.Symbol,
			Requested: insufficient.Requested,
			Available: insufficient.Available,
		})
		return
	}
	h.log.Error("Failed to compute positions", zap.Error(err))
	h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to compute positions"})
}

// PositionsHandler computes every position for a client, open or closed.
func (h *APIHandler) PositionsHandler(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client")
	ledger, err := h.loadLedger(clientID)
	if err != nil {
		h.log.Error("Failed to load trades", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load trades"})
		return
	}

	positions, err := ledger.ComputePositions(h.prices, clientID)
	if err != nil {
		h.computeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, positions)
}

// HoldingsHandler returns only the client's open positions.
func (h *APIHandler) HoldingsHandler(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client")
	if clientID == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "client query parameter is required"})
		return
	}

	ledger, err := h.loadLedger(clientID)
	if err != nil {
		h.log.Error("Failed to load trades", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load trades"})
		return
	}

	holdings, err := ledger.Holdings(h.prices, clientID)
	if err != nil {
		h.computeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, holdings)
}

// RealizedHandler recomputes the client's positions and returns the realized
// ledger produced by that pass.
func (h *APIHandler) RealizedHandler(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client")
	ledger, err := h.loadLedger(clientID)
	if err != nil {
		h.log.Error("Failed to load trades", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load trades"})
		return
	}

	if _, err := ledger.ComputePositions(h.prices, clientID); err != nil {
		h.computeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ledger.RealizedPnL(clientID))
}

// SnapshotHandler returns the client's holdings, realized ledger and totals.
func (h *APIHandler) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client")
	if clientID == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "client query parameter is required"})
		return
	}

	ledger, err := h.loadLedger(clientID)
	if err != nil {
		h.log.Error("Failed to load trades", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load trades"})
		return
	}

	snap, err := ledger.Snapshot(h.prices, clientID)
	if err != nil {
		h.computeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}
