package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError reports a malformed trade rejected at ingestion.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid trade: %s %s", e.Field, e.Reason)
}

// InsufficientLotsError reports a SELL that exceeds the open quantity for a
// (client, symbol) pair. The whole computation pass for that scope is
// rejected, never partially applied.
type InsufficientLotsError struct {
	ClientID  string
	Symbol    string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("sell of %s %s exceeds open quantity %s for client %s",
		e.Requested, e.Symbol, e.Available, e.ClientID)
}
