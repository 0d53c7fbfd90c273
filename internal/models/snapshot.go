package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// The snapshot tables are pure projections of the trade log. They are
// replaced wholesale per client on every save and never read back as
// authoritative state.

// PositionRow is one open holding in the latest saved snapshot.
type PositionRow struct {
	gorm.Model
	ClientID      string           `gorm:"index;not null" json:"client_id"`
	Symbol        string           `gorm:"not null" json:"symbol"`
	Market        string           `json:"market"`
	Quantity      decimal.Decimal  `gorm:"type:decimal(20,8)" json:"quantity"`
	AvgCost       decimal.Decimal  `gorm:"type:decimal(20,8)" json:"avg_cost"`
	CostBasis     decimal.Decimal  `gorm:"type:decimal(20,8)" json:"cost_basis"`
	LastPrice     *decimal.Decimal `gorm:"type:decimal(20,8)" json:"last_price"`
	MarketValue   decimal.Decimal  `gorm:"type:decimal(20,8)" json:"market_value"`
	UnrealizedPnL decimal.Decimal  `gorm:"type:decimal(20,8)" json:"unrealized_pnl"`
}

// RealizedRow is one realized-PnL event in the latest saved snapshot.
type RealizedRow struct {
	gorm.Model
	ClientID     string          `gorm:"index;not null" json:"client_id"`
	Symbol       string          `gorm:"not null" json:"symbol"`
	Market       string          `json:"market"`
	ClosedAt     time.Time       `json:"closed_at"`
	QuantitySold decimal.Decimal `gorm:"type:decimal(20,8)" json:"quantity_sold"`
	Proceeds     decimal.Decimal `gorm:"type:decimal(20,8)" json:"proceeds"`
	Cost         decimal.Decimal `gorm:"type:decimal(20,8)" json:"cost"`
	RealizedPnL  decimal.Decimal `gorm:"type:decimal(20,8)" json:"realized_pnl"`
}

// SnapshotTotals is the single totals row per client in the latest snapshot.
type SnapshotTotals struct {
	gorm.Model
	ClientID           string          `gorm:"index;not null" json:"client_id"`
	TotalCostBasis     decimal.Decimal `gorm:"type:decimal(20,8)" json:"total_cost_basis"`
	TotalMarketValue   decimal.Decimal `gorm:"type:decimal(20,8)" json:"total_market_value"`
	TotalUnrealizedPnL decimal.Decimal `gorm:"type:decimal(20,8)" json:"total_unrealized_pnl"`
	ComputedAt         time.Time       `json:"computed_at"`
}
