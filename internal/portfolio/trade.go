package portfolio

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Market identifies the exchange a symbol trades on.
type Market string

const (
	MarketUS Market = "US"
	MarketIL Market = "IL"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeRecord is a single executed trade. Records are immutable once added
// to a Ledger; corrections require compensating trades.
type TradeRecord struct {
	ClientID string          `json:"client_id"`
	Symbol   string          `json:"symbol"`
	Market   Market          `json:"market"`
	Side     Side            `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Time     time.Time       `json:"time"`
}

// NormalizeSymbol maps a user-supplied ticker to its canonical form for the
// given market. TASE tickers carry a ".TA" suffix.
func NormalizeSymbol(symbol string, market Market) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if market == MarketIL && !strings.HasSuffix(s, ".TA") {
		s += ".TA"
	}
	return s
}

// validate checks the ingestion invariants: a known side, positive quantity
// and a non-negative price.
func (t TradeRecord) validate() error {
	if t.ClientID == "" {
		return &ValidationError{Field: "client_id", Reason: "must not be empty"}
	}
	if t.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if t.Side != SideBuy && t.Side != SideSell {
		return &ValidationError{Field: "side", Reason: "must be BUY or SELL"}
	}
	if !t.Quantity.IsPositive() {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if t.Price.IsNegative() {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	return nil
}

// key is the full-field identity used for de-duplication. Two trades that
// agree on every field are the same event.
func (t TradeRecord) key() string {
	return strings.Join([]string{
		t.ClientID,
		t.Symbol,
		string(t.Market),
		string(t.Side),
		t.Quantity.String(),
		t.Price.String(),
		t.Time.UTC().Format(time.RFC3339Nano),
	}, "|")
}
