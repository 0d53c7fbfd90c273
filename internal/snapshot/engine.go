package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shai-hub/brokai/internal/config"
	"github.com/shai-hub/brokai/internal/portfolio"
	"github.com/shai-hub/brokai/internal/store"
)

// Engine periodically rebuilds every client's portfolio snapshot from the
// persisted trade log and current prices, and writes it back to the store.
type Engine struct {
	logger *zap.Logger
	cfg    *config.Config
	store  *store.Store
	prices portfolio.PriceSource
}

// NewEngine creates a new snapshot engine.
func NewEngine(logger *zap.Logger, cfg *config.Config, st *store.Store, prices portfolio.PriceSource) *Engine {
	return &Engine{
		logger: logger,
		cfg:    cfg,
		store:  st,
		prices: prices,
	}
}

// Run starts the snapshot loop and blocks until the context is cancelled.
// One pass runs immediately on startup so a restart refreshes stale
// snapshots without waiting a full interval.
func (e *Engine) Run(ctx context.Context) {
	interval := time.Duration(e.cfg.Portfolio.SnapshotInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Starting snapshot loop", zap.Duration("interval", interval))

	if err := e.refresh(); err != nil {
		e.logger.Error("Snapshot pass failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping snapshot engine...")
			return
		case <-ticker.C:
			if err := e.refresh(); err != nil {
				e.logger.Error("Snapshot pass failed", zap.Error(err))
			}
		}
	}
}

// refresh recomputes and saves a snapshot for every known client. A client
// whose ledger fails validation is logged and skipped; the pass continues
// with the remaining clients.
func (e *Engine) refresh() error {
	clients, err := e.store.Clients()
	if err != nil {
		return fmt.Errorf("could not list clients: %w", err)
	}
	e.logger.Info("Refreshing client snapshots", zap.Int("clients", len(clients)))

	failed := 0
	for _, clientID := range clients {
		if err := e.snapshotClient(clientID); err != nil {
			failed++
			var insufficient *portfolio.InsufficientLotsError
			if errors.As(err, &insufficient) {
				e.logger.Error("Ledger rejected during snapshot, skipping client",
					zap.String("client_id", insufficient.ClientID),
					zap.String("symbol", insufficient.Symbol),
					zap.String("requested", insufficient.Requested.String()),
					zap.String("available", insufficient.Available.String()),
				)
				continue
			}
			e.logger.Error("Failed to snapshot client",
				zap.String("client_id", clientID), zap.Error(err))
		}
	}

	if failed > 0 {
		e.logger.Warn("Snapshot pass finished with failures",
			zap.Int("failed", failed), zap.Int("total", len(clients)))
	}
	return nil
}

// snapshotClient rebuilds one client's ledger from the store, computes the
// snapshot and persists it.
func (e *Engine) snapshotClient(clientID string) error {
	recs, err := e.store.LoadTrades(clientID)
	if err != nil {
		return err
	}

	ledger := portfolio.NewLedger()
	ledger.Merge(recs)

	snap, err := ledger.Snapshot(e.prices, clientID)
	if err != nil {
		return err
	}

	if err := e.store.SaveSnapshot(clientID, snap); err != nil {
		return err
	}

	e.logger.Info("Saved client snapshot",
		zap.String("client_id", clientID),
		zap.Int("holdings", len(snap.Holdings)),
		zap.Int("realized_events", len(snap.Realized)),
		zap.String("total_market_value", snap.Totals.TotalMarketValue.String()),
	)
	return nil
}
