package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// lot is an open purchase awaiting matching. Lots are owned by the matcher
// and consumed head-first as sells arrive.
type lot struct {
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
	OpenedAt time.Time
	Market   Market
}

// RealizedEvent is the profit or loss locked in by one completed SELL,
// computed against the FIFO-matched lot cost.
type RealizedEvent struct {
	ClientID     string          `json:"client_id"`
	Symbol       string          `json:"symbol"`
	Market       Market          `json:"market"`
	ClosedAt     time.Time       `json:"closed_at"`
	QuantitySold decimal.Decimal `json:"quantity_sold"`
	Proceeds     decimal.Decimal `json:"proceeds"`
	Cost         decimal.Decimal `json:"cost"`
	RealizedPnL  decimal.Decimal `json:"realized_pnl"`
}

// matchFIFO replays the trade history of a single (client, symbol) pair,
// consuming sells against the oldest open lots first. Trades must already be
// in ascending time order. It returns the residual open lots and the
// realized events; a sell that exceeds the open quantity yields an
// *InsufficientLotsError and no partial result.
func matchFIFO(trades []TradeRecord) ([]lot, []RealizedEvent, error) {
	var open []lot
	var realized []RealizedEvent

	for _, tr := range trades {
		if tr.Side == SideBuy {
			open = append(open, lot{
				Quantity: tr.Quantity,
				UnitCost: tr.Price,
				OpenedAt: tr.Time,
				Market:   tr.Market,
			})
			continue
		}

		available := decimal.Zero
		for _, l := range open {
			available = available.Add(l.Quantity)
		}
		if tr.Quantity.GreaterThan(available) {
			return nil, nil, &InsufficientLotsError{
				ClientID:  tr.ClientID,
				Symbol:    tr.Symbol,
				Requested: tr.Quantity,
				Available: available,
			}
		}

		remaining := tr.Quantity
		matchedCost := decimal.Zero
		for remaining.IsPositive() {
			head := &open[0]
			take := decimal.Min(remaining, head.Quantity)
			matchedCost = matchedCost.Add(take.Mul(head.UnitCost))
			head.Quantity = head.Quantity.Sub(take)
			remaining = remaining.Sub(take)
			if head.Quantity.IsZero() {
				open = open[1:]
			}
		}

		proceeds := tr.Quantity.Mul(tr.Price)
		realized = append(realized, RealizedEvent{
			ClientID:     tr.ClientID,
			Symbol:       tr.Symbol,
			Market:       tr.Market,
			ClosedAt:     tr.Time,
			QuantitySold: tr.Quantity,
			Proceeds:     proceeds,
			Cost:         matchedCost,
			RealizedPnL:  proceeds.Sub(matchedCost),
		})
	}

	return open, realized, nil
}
