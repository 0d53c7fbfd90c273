package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Trade is one persisted trade record. Rows are append-only: they are never
// updated or deleted, corrections are entered as compensating trades.
type Trade struct {
	gorm.Model
	ClientID  string          `gorm:"index:idx_client_symbol;not null" json:"client_id"`
	Symbol    string          `gorm:"index:idx_client_symbol;not null" json:"symbol"`
	Market    string          `gorm:"not null" json:"market"`
	Side      string          `gorm:"not null" json:"side"` // "BUY" or "SELL"
	Quantity  decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"price"`
	TradeTime time.Time       `gorm:"index;not null" json:"trade_time"`
}
