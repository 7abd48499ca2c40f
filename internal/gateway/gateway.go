// Package gateway defines the MarketGateway capability the core
// consumes (SPEC_FULL.md §6) — connection discovery, account
// snapshots, candle retrieval, and order submission. It is the only
// broker contract the decision engine depends on; every blocking call
// lives behind this interface, grounded on the teacher's
// binance.BinanceClient split between a live client and a MockClient.
package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"goldcore/internal/domain"
)

// TerminalInfo describes one discoverable broker terminal.
type TerminalInfo struct {
	BrokerName     string
	ExecutableKind string
	IsRunning      bool
	Path           string
}

// OrderRequest is a market order submission.
type OrderRequest struct {
	Symbol   string
	Side     domain.Side
	Volume   decimal.Decimal
	Magic    int64
	Comment  string
	Deviation int
}

// CloseRequest closes all or part of one existing position.
type CloseRequest struct {
	ID        string
	Symbol    string
	Volume    decimal.Decimal
	Deviation int
	Magic     int64
	Comment   string
}

// OrderResult is the outcome of a submit/close call. ID is populated on
// an accepted SubmitMarketOrder with the broker-assigned position id.
type OrderResult struct {
	Accepted bool
	Reason   string
	ID       string
}

// Quote is a best bid/ask quote.
type Quote struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

// MarketGateway is the only broker contract the core depends on. All
// methods are synchronous with a bounded timeout enforced via ctx; a
// gateway call that exceeds its timeout is a soft failure (the tick
// aborts without mutating state — SPEC_FULL.md §5).
type MarketGateway interface {
	ListTerminals(ctx context.Context) ([]TerminalInfo, error)
	Connect(ctx context.Context, terminal TerminalInfo) error
	Shutdown(ctx context.Context) error

	// AccountSnapshot returns nil, nil when no snapshot is currently
	// available (broker disconnected) — this is not itself an error,
	// it is the trigger for CapitalContext.Mode = Offline.
	AccountSnapshot(ctx context.Context) (*domain.AccountSnapshot, error)

	OpenPositions(ctx context.Context, symbol string) ([]domain.Position, error)

	// RecentCandles returns n candles oldest-to-newest; the core
	// requests n=5 and uses the last 3 closed.
	RecentCandles(ctx context.Context, symbol, period string, n int) ([]domain.Candle, error)

	TickQuote(ctx context.Context, symbol string) (Quote, error)

	SubmitMarketOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	ClosePosition(ctx context.Context, req CloseRequest) (OrderResult, error)
}

// DefaultTimeout is the bounded timeout applied to gateway calls when
// the caller does not already carry a deadline (SPEC_FULL.md §5: 3-10s).
const DefaultTimeout = 8 * time.Second

// WithTimeout returns ctx unchanged if it already has a deadline,
// otherwise wraps it with DefaultTimeout.
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}
