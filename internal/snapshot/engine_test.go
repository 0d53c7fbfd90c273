package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shai-hub/brokai/internal/config"
	"github.com/shai-hub/brokai/internal/database"
	"github.com/shai-hub/brokai/internal/models"
	"github.com/shai-hub/brokai/internal/portfolio"
	"github.com/shai-hub/brokai/internal/store"
)

// stubPrices is a deterministic price source for engine tests.
type stubPrices map[string]decimal.Decimal

func (s stubPrices) LastPrice(symbol string) (decimal.Decimal, bool) {
	p, ok := s[symbol]
	return p, ok
}

func setupTest(t *testing.T, prices stubPrices) (*Engine, *store.Store, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	st := store.NewStore(db)
	cfg := &config.Config{Portfolio: config.Portfolio{SnapshotInterval: 300}}
	return NewEngine(zap.NewNop(), cfg, st, prices), st, db
}

func seedTrade(t *testing.T, st *store.Store, clientID, symbol string, side portfolio.Side, qty, price string, minute int) {
	t.Helper()
	err := st.SaveTrade(portfolio.TradeRecord{
		ClientID: clientID,
		Symbol:   symbol,
		Market:   portfolio.MarketUS,
		Side:     side,
		Quantity: decimal.RequireFromString(qty),
		Price:    decimal.RequireFromString(price),
		Time:     time.Date(2025, 3, 10, 14, minute, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}

func TestRefresh_WritesSnapshotPerClient(t *testing.T) {
	engine, st, db := setupTest(t, stubPrices{"AAPL": decimal.NewFromInt(150)})
	seedTrade(t, st, "c1", "AAPL", portfolio.SideBuy, "10", "100", 0)
	seedTrade(t, st, "c1", "AAPL", portfolio.SideSell, "4", "120", 1)

	require.NoError(t, engine.refresh())

	var holdings []models.PositionRow
	require.NoError(t, db.Where("client_id = ?", "c1").Find(&holdings).Error)
	require.Len(t, holdings, 1)
	assert.True(t, holdings[0].Quantity.Equal(decimal.NewFromInt(6)))
	assert.True(t, holdings[0].MarketValue.Equal(decimal.NewFromInt(900)))

	var realized []models.RealizedRow
	require.NoError(t, db.Where("client_id = ?", "c1").Find(&realized).Error)
	require.Len(t, realized, 1)
	assert.True(t, realized[0].RealizedPnL.Equal(decimal.NewFromInt(80)))

	var totals models.SnapshotTotals
	require.NoError(t, db.Where("client_id = ?", "c1").First(&totals).Error)
	assert.True(t, totals.TotalMarketValue.Equal(decimal.NewFromInt(900)))
	assert.True(t, totals.TotalCostBasis.Equal(decimal.NewFromInt(600)))
}

func TestRefresh_SkipsClientWithBrokenLedger(t *testing.T) {
	engine, st, db := setupTest(t, stubPrices{"AAPL": decimal.NewFromInt(150)})
	// bad sells more than it ever bought; good is fine.
	seedTrade(t, st, "bad", "AAPL", portfolio.SideBuy, "1", "100", 0)
	seedTrade(t, st, "bad", "AAPL", portfolio.SideSell, "5", "100", 1)
	seedTrade(t, st, "good", "AAPL", portfolio.SideBuy, "2", "100", 2)

	// The pass itself succeeds; the broken client is logged and skipped.
	require.NoError(t, engine.refresh())

	var badCount int64
	require.NoError(t, db.Model(&models.PositionRow{}).Where("client_id = ?", "bad").Count(&badCount).Error)
	assert.Zero(t, badCount)

	var goodHoldings []models.PositionRow
	require.NoError(t, db.Where("client_id = ?", "good").Find(&goodHoldings).Error)
	require.Len(t, goodHoldings, 1)
	assert.True(t, goodHoldings[0].Quantity.Equal(decimal.NewFromInt(2)))
}

func TestRefresh_RepeatedPassesAreStable(t *testing.T) {
	engine, st, db := setupTest(t, stubPrices{"AAPL": decimal.NewFromInt(150)})
	seedTrade(t, st, "c1", "AAPL", portfolio.SideBuy, "10", "100", 0)

	require.NoError(t, engine.refresh())
	require.NoError(t, engine.refresh())

	var count int64
	require.NoError(t, db.Model(&models.PositionRow{}).Where("client_id = ?", "c1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	engine, st, _ := setupTest(t, stubPrices{})
	seedTrade(t, st, "c1", "AAPL", portfolio.SideBuy, "1", "1", 0)
	engine.cfg.Portfolio.SnapshotInterval = 1

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop after context cancellation")
	}
}
