package portfolio

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger owns the immutable trade log and drives the FIFO computation. It is
// the single source of truth: positions and the realized ledger are rebuilt
// from it on every ComputePositions call, which keeps recomputation
// idempotent and immune to partial-update bugs.
//
// A Ledger is not safe for concurrent use; the host must serialize calls per
// client.
type Ledger struct {
	trades   []TradeRecord
	seen     map[string]struct{}
	realized []RealizedEvent
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// AddTrade validates one trade and appends it to the log. The symbol is
// normalized for its market and a zero time defaults to now. No
// recomputation happens here; computation is pull-based.
func (l *Ledger) AddTrade(clientID, symbol string, market Market, side Side, quantity, price decimal.Decimal, at time.Time) (TradeRecord, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	rec := TradeRecord{
		ClientID: clientID,
		Symbol:   NormalizeSymbol(symbol, market),
		Market:   market,
		Side:     side,
		Quantity: quantity,
		Price:    price,
		Time:     at,
	}
	if err := rec.validate(); err != nil {
		return TradeRecord{}, err
	}
	l.append(rec)
	return rec, nil
}

// Merge unions a previously persisted trade set into the ledger,
// de-duplicating on the full field tuple. Merging the same set twice is a
// no-op; the number of newly added records is returned.
func (l *Ledger) Merge(records []TradeRecord) int {
	added := 0
	for _, rec := range records {
		if _, dup := l.seen[rec.key()]; dup {
			continue
		}
		l.append(rec)
		added++
	}
	return added
}

func (l *Ledger) append(rec TradeRecord) {
	l.trades = append(l.trades, rec)
	l.seen[rec.key()] = struct{}{}
}

// Trades returns a copy of the client's trades in ascending time order, with
// arrival order preserved between equal timestamps. An empty clientID
// selects every client.
func (l *Ledger) Trades(clientID string) []TradeRecord {
	var out []TradeRecord
	for _, tr := range l.trades {
		if clientID == "" || tr.ClientID == clientID {
			out = append(out, tr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// Symbols lists every symbol the client has ever traded, sorted.
func (l *Ledger) Symbols(clientID string) []string {
	uniq := make(map[string]struct{})
	for _, tr := range l.trades {
		if tr.ClientID == clientID {
			uniq[tr.Symbol] = struct{}{}
		}
	}
	out := make([]string, 0, len(uniq))
	for s := range uniq {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

type pairKey struct {
	clientID string
	symbol   string
}

// ComputePositions rebuilds the realized ledger and derives current
// positions for the given client, or for every client when clientID is
// empty. Each (client, symbol) group is replayed through the FIFO matcher
// in time order; results are sorted by (client, symbol) so repeated calls
// over an unchanged log yield identical output.
//
// On an *InsufficientLotsError the whole pass is aborted: no positions are
// returned and the previously computed realized ledger is left untouched.
func (l *Ledger) ComputePositions(prices PriceSource, clientID string) ([]Position, error) {
	groups := make(map[pairKey][]TradeRecord)
	for _, tr := range l.Trades(clientID) {
		k := pairKey{tr.ClientID, tr.Symbol}
		groups[k] = append(groups[k], tr)
	}

	keys := make([]pairKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].clientID != keys[j].clientID {
			return keys[i].clientID < keys[j].clientID
		}
		return keys[i].symbol < keys[j].symbol
	})

	positions := make([]Position, 0, len(keys))
	realized := make([]RealizedEvent, 0)
	for _, k := range keys {
		trades := groups[k]
		open, events, err := matchFIFO(trades)
		if err != nil {
			return nil, err
		}
		realized = append(realized, events...)
		// The row carries the market label of the latest trade in the group.
		market := trades[len(trades)-1].Market
		positions = append(positions, aggregatePosition(k.clientID, k.symbol, market, open, prices))
	}

	l.realized = realized
	return positions, nil
}

// RealizedPnL returns the realized ledger rebuilt by the most recent
// ComputePositions call, filtered to one client when given. It is a
// byproduct of that call, not independently recomputable.
func (l *Ledger) RealizedPnL(clientID string) []RealizedEvent {
	out := make([]RealizedEvent, 0, len(l.realized))
	for _, ev := range l.realized {
		if clientID == "" || ev.ClientID == clientID {
			out = append(out, ev)
		}
	}
	return out
}

// Holdings computes the client's positions and keeps only open ones.
func (l *Ledger) Holdings(prices PriceSource, clientID string) ([]Position, error) {
	positions, err := l.ComputePositions(prices, clientID)
	if err != nil {
		return nil, err
	}
	open := make([]Position, 0, len(positions))
	for _, p := range positions {
		if p.Quantity.IsPositive() {
			open = append(open, p)
		}
	}
	return open, nil
}

// Snapshot assembles the client's holdings, realized ledger and totals into
// one consistent view.
func (l *Ledger) Snapshot(prices PriceSource, clientID string) (*PortfolioSnapshot, error) {
	holdings, err := l.Holdings(prices, clientID)
	if err != nil {
		return nil, err
	}
	snap := &PortfolioSnapshot{
		Holdings: holdings,
		Realized: l.RealizedPnL(clientID),
	}
	snap.Totals.TotalCostBasis = decimal.Zero
	snap.Totals.TotalMarketValue = decimal.Zero
	for _, h := range holdings {
		snap.Totals.TotalCostBasis = snap.Totals.TotalCostBasis.Add(h.CostBasis)
		snap.Totals.TotalMarketValue = snap.Totals.TotalMarketValue.Add(h.MarketValue)
	}
	snap.Totals.TotalUnrealizedPnL = snap.Totals.TotalMarketValue.Sub(snap.Totals.TotalCostBasis)
	return snap, nil
}
