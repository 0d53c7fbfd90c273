package portfolio

import (
	"github.com/shopspring/decimal"
)

// PriceSource supplies the last known price for a symbol. A lookup may fail
// for any reason (network, unknown symbol, no data); callers treat a false
// second return as "price unavailable", never as a fatal error.
type PriceSource interface {
	LastPrice(symbol string) (decimal.Decimal, bool)
}

// Position is a derived view of one (client, symbol) holding. It is never
// authoritative state; it is recomputed from the trade history on demand.
// LastPrice is nil when the price lookup failed, in which case MarketValue
// is zero and UnrealizedPnL degrades to the negated cost basis.
type Position struct {
	ClientID      string           `json:"client_id"`
	Symbol        string           `json:"symbol"`
	Market        Market           `json:"market"`
	Quantity      decimal.Decimal  `json:"quantity"`
	AvgCost       decimal.Decimal  `json:"avg_cost"`
	CostBasis     decimal.Decimal  `json:"cost_basis"`
	LastPrice     *decimal.Decimal `json:"last_price"`
	MarketValue   decimal.Decimal  `json:"market_value"`
	UnrealizedPnL decimal.Decimal  `json:"unrealized_pnl"`
}

// Totals aggregates a client's open positions.
type Totals struct {
	TotalCostBasis     decimal.Decimal `json:"total_cost_basis"`
	TotalMarketValue   decimal.Decimal `json:"total_market_value"`
	TotalUnrealizedPnL decimal.Decimal `json:"total_unrealized_pnl"`
}

// PortfolioSnapshot is the one-shot consistent view assembled for a client:
// open holdings, the realized ledger and derived totals.
type PortfolioSnapshot struct {
	Holdings []Position      `json:"holdings"`
	Realized []RealizedEvent `json:"realized"`
	Totals   Totals          `json:"totals"`
}

// aggregatePosition folds the residual open lots into one position row and
// values it against the price source. A fully closed position (no lots) is
// valid and reported with zero quantity and cost.
func aggregatePosition(clientID, symbol string, market Market, open []lot, prices PriceSource) Position {
	pos := Position{
		ClientID:      clientID,
		Symbol:        symbol,
		Market:        market,
		Quantity:      decimal.Zero,
		AvgCost:       decimal.Zero,
		CostBasis:     decimal.Zero,
		MarketValue:   decimal.Zero,
		UnrealizedPnL: decimal.Zero,
	}

	for _, l := range open {
		pos.Quantity = pos.Quantity.Add(l.Quantity)
		pos.CostBasis = pos.CostBasis.Add(l.Quantity.Mul(l.UnitCost))
	}
	if pos.Quantity.IsPositive() {
		pos.AvgCost = pos.CostBasis.Div(pos.Quantity)
	}

	if price, ok := prices.LastPrice(symbol); ok {
		pos.LastPrice = &price
		if pos.Quantity.IsPositive() {
			pos.MarketValue = pos.Quantity.Mul(price)
		}
	}
	pos.UnrealizedPnL = pos.MarketValue.Sub(pos.CostBasis)

	return pos
}
