package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shai-hub/brokai/internal/models"
	"github.com/shai-hub/brokai/internal/portfolio"
)

// Store persists the trade log and snapshot projections. The engine treats
// it as a collaborator: trades round-trip field for field, snapshot tables
// are replaced wholesale per client and never read back as source of truth.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open database connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SaveTrade appends one trade record to the log.
func (s *Store) SaveTrade(rec portfolio.TradeRecord) error {
	row := models.Trade{
		ClientID:  rec.ClientID,
		Symbol:    rec.Symbol,
		Market:    string(rec.Market),
		Side:      string(rec.Side),
		Quantity:  rec.Quantity,
		Price:     rec.Price,
		TradeTime: rec.Time,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

// LoadTrades returns every stored trade for the client, in insertion order,
// ready to be merged into a ledger. An empty clientID loads all clients; a
// client with no trades yields an empty slice, not an error.
func (s *Store) LoadTrades(clientID string) ([]portfolio.TradeRecord, error) {
	q := s.db.Order("id asc")
	if clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}

	var rows []models.Trade
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	recs := make([]portfolio.TradeRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, portfolio.TradeRecord{
			ClientID: row.ClientID,
			Symbol:   row.Symbol,
			Market:   portfolio.Market(row.Market),
			Side:     portfolio.Side(row.Side),
			Quantity: row.Quantity,
			Price:    row.Price,
			Time:     row.TradeTime,
		})
	}
	return recs, nil
}

// Clients lists the distinct client ids present in the trade log.
func (s *Store) Clients() ([]string, error) {
	var ids []string
	err := s.db.Model(&models.Trade{}).
		Distinct("client_id").
		Order("client_id asc").
		Pluck("client_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return ids, nil
}

// SaveSnapshot replaces the client's snapshot projection (holdings, realized
// ledger, totals) in one transaction. Saving the same snapshot twice leaves
// the tables unchanged apart from row ids.
func (s *Store) SaveSnapshot(clientID string, snap *portfolio.PortfolioSnapshot) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Projections are replaceable, so prior rows are hard-deleted.
		if err := tx.Unscoped().Where("client_id = ?", clientID).Delete(&models.PositionRow{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("client_id = ?", clientID).Delete(&models.RealizedRow{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("client_id = ?", clientID).Delete(&models.SnapshotTotals{}).Error; err != nil {
			return err
		}

		for _, h := range snap.Holdings {
			row := models.PositionRow{
				ClientID:      h.ClientID,
				Symbol:        h.Symbol,
				Market:        string(h.Market),
				Quantity:      h.Quantity,
				AvgCost:       h.AvgCost,
				CostBasis:     h.CostBasis,
				LastPrice:     h.LastPrice,
				MarketValue:   h.MarketValue,
				UnrealizedPnL: h.UnrealizedPnL,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		for _, ev := range snap.Realized {
			row := models.RealizedRow{
				ClientID:     ev.ClientID,
				Symbol:       ev.Symbol,
				Market:       string(ev.Market),
				ClosedAt:     ev.ClosedAt,
				QuantitySold: ev.QuantitySold,
				Proceeds:     ev.Proceeds,
				Cost:         ev.Cost,
				RealizedPnL:  ev.RealizedPnL,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		totals := models.SnapshotTotals{
			ClientID:           clientID,
			TotalCostBasis:     snap.Totals.TotalCostBasis,
			TotalMarketValue:   snap.Totals.TotalMarketValue,
			TotalUnrealizedPnL: snap.Totals.TotalUnrealizedPnL,
			ComputedAt:         time.Now().UTC(),
		}
		return tx.Create(&totals).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot for client %s: %w", clientID, err)
	}
	return nil
}
