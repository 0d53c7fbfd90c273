package portfolio

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// trade builds a test record with timestamps spaced a minute apart.
func trade(side Side, qty, price string, minute int) TradeRecord {
	return TradeRecord{
		ClientID: "c1",
		Symbol:   "AAPL",
		Market:   MarketUS,
		Side:     side,
		Quantity: d(qty),
		Price:    d(price),
		Time:     time.Date(2025, 3, 10, 14, minute, 0, 0, time.UTC),
	}
}

func TestMatchFIFO_ConsumesOldestLotsFirst(t *testing.T) {
	// Arrange: BUY 10@1, BUY 10@2, SELL 15@3
	trades := []TradeRecord{
		trade(SideBuy, "10", "1", 0),
		trade(SideBuy, "10", "2", 1),
		trade(SideSell, "15", "3", 2),
	}

	// Act
	open, realized, err := matchFIFO(trades)

	// Assert: realized = 15*3 - (10*1 + 5*2) = 25, residual lot 5@2
	require.NoError(t, err)
	require.Len(t, realized, 1)
	assert.True(t, realized[0].Proceeds.Equal(d("45")), "proceeds = %s", realized[0].Proceeds)
	assert.True(t, realized[0].Cost.Equal(d("20")), "cost = %s", realized[0].Cost)
	assert.True(t, realized[0].RealizedPnL.Equal(d("25")), "pnl = %s", realized[0].RealizedPnL)
	assert.True(t, realized[0].QuantitySold.Equal(d("15")))

	require.Len(t, open, 1)
	assert.True(t, open[0].Quantity.Equal(d("5")))
	assert.True(t, open[0].UnitCost.Equal(d("2")))
	assert.Equal(t, trades[1].Time, open[0].OpenedAt)
}

func TestMatchFIFO_SellExceedingOpenQuantityFails(t *testing.T) {
	trades := []TradeRecord{
		trade(SideBuy, "5", "1", 0),
		trade(SideSell, "10", "2", 1),
	}

	open, realized, err := matchFIFO(trades)

	require.Error(t, err)
	var insufficient *InsufficientLotsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "c1", insufficient.ClientID)
	assert.Equal(t, "AAPL", insufficient.Symbol)
	assert.True(t, insufficient.Requested.Equal(d("10")))
	assert.True(t, insufficient.Available.Equal(d("5")))

	// No partial result on failure.
	assert.Nil(t, open)
	assert.Nil(t, realized)
}

func TestMatchFIFO_SellDrainingLastLotExactly(t *testing.T) {
	trades := []TradeRecord{
		trade(SideBuy, "10", "1", 0),
		trade(SideSell, "10", "1", 1),
	}

	open, realized, err := matchFIFO(trades)

	require.NoError(t, err)
	assert.Empty(t, open)
	require.Len(t, realized, 1)
	assert.True(t, realized[0].RealizedPnL.IsZero())
}

func TestMatchFIFO_FractionalQuantitiesAreExact(t *testing.T) {
	// Decimal arithmetic: 0.1+0.2 drains exactly against a sell of 0.3.
	trades := []TradeRecord{
		trade(SideBuy, "0.1", "10", 0),
		trade(SideBuy, "0.2", "10", 1),
		trade(SideSell, "0.3", "12", 2),
	}

	open, realized, err := matchFIFO(trades)

	require.NoError(t, err)
	assert.Empty(t, open)
	require.Len(t, realized, 1)
	assert.True(t, realized[0].Cost.Equal(d("3")), "cost = %s", realized[0].Cost)
	assert.True(t, realized[0].RealizedPnL.Equal(d("0.6")), "pnl = %s", realized[0].RealizedPnL)
}

func TestMatchFIFO_SellSpanningManyLots(t *testing.T) {
	trades := []TradeRecord{
		trade(SideBuy, "2", "1", 0),
		trade(SideBuy, "2", "2", 1),
		trade(SideBuy, "2", "3", 2),
		trade(SideSell, "5", "4", 3),
	}

	open, realized, err := matchFIFO(trades)

	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.True(t, open[0].Quantity.Equal(d("1")))
	assert.True(t, open[0].UnitCost.Equal(d("3")))

	// cost = 2*1 + 2*2 + 1*3 = 9; proceeds = 20
	require.Len(t, realized, 1)
	assert.True(t, realized[0].Cost.Equal(d("9")))
	assert.True(t, realized[0].RealizedPnL.Equal(d("11")))
}
