package gateway

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"goldcore/internal/domain"
)

var _ MarketGateway = (*Mock)(nil)

// Mock is a deterministic, in-memory MarketGateway for dry-run
// operation and tests, grounded on the teacher's binance.MockClient —
// a random-walk price generator plus canned account/position state,
// with optional injected latency and failures for gateway-timeout
// scenarios.
type Mock struct {
	mu sync.Mutex

	symbol      string
	basePrice   decimal.Decimal
	equity      decimal.Decimal
	balance     decimal.Decimal
	marginLevel float64
	positions   map[string]domain.Position

	// Failure injection for tests.
	FailAccountSnapshot bool
	FailCandles         bool
	Latency             time.Duration

	rng *rand.Rand
}

// NewMock builds a Mock seeded with a starting price and equity.
func NewMock(symbol string, basePrice, equity decimal.Decimal) *Mock {
	return &Mock{
		symbol:      symbol,
		basePrice:   basePrice,
		equity:      equity,
		balance:     equity,
		marginLevel: 1000,
		positions:   make(map[string]domain.Position),
		rng:         rand.New(rand.NewSource(1)),
	}
}

func (m *Mock) delay() {
	if m.Latency > 0 {
		time.Sleep(m.Latency)
	}
}

func (m *Mock) ListTerminals(ctx context.Context) ([]TerminalInfo, error) {
	return []TerminalInfo{{BrokerName: "mock-broker", ExecutableKind: "dry-run", IsRunning: true, Path: "mock://"}}, nil
}

func (m *Mock) Connect(ctx context.Context, terminal TerminalInfo) error { return nil }
func (m *Mock) Shutdown(ctx context.Context) error                      { return nil }

func (m *Mock) AccountSnapshot(ctx context.Context) (*domain.AccountSnapshot, error) {
	m.delay()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAccountSnapshot {
		return nil, nil
	}
	return &domain.AccountSnapshot{
		Login:       "mock",
		Balance:     m.balance,
		Equity:      m.equity,
		MarginLevel: m.marginLevel,
		FreeMargin:  m.equity,
	}, nil
}

func (m *Mock) OpenPositions(ctx context.Context, symbol string) ([]domain.Position, error) {
	m.delay()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out, nil
}

func (m *Mock) RecentCandles(ctx context.Context, symbol, period string, n int) ([]domain.Candle, error) {
	m.delay()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCandles {
		return nil, nil
	}
	interval := periodDuration(period)
	now := time.Now().Truncate(interval)
	candles := make([]domain.Candle, 0, n)
	price := m.basePrice
	for i := n; i > 0; i-- {
		open := price
		change := (m.rng.Float64() - 0.5) * 0.01
		closePx := open.Mul(decimal.NewFromFloat(1 + change))
		high := open.Add(closePx).Div(decimal.NewFromInt(2)).Add(decimal.NewFromFloat(0.3))
		low := open.Add(closePx).Div(decimal.NewFromInt(2)).Sub(decimal.NewFromFloat(0.3))
		candles = append(candles, domain.Candle{
			OpenTime: now.Add(-time.Duration(i) * interval),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePx,
			Volume:   decimal.NewFromFloat(100 + m.rng.Float64()*50),
		})
		price = closePx
	}
	m.basePrice = price
	return candles, nil
}

func periodDuration(period string) time.Duration {
	switch period {
	case "M1":
		return time.Minute
	case "M5":
		return 5 * time.Minute
	case "M15":
		return 15 * time.Minute
	case "H1":
		return time.Hour
	default:
		return 5 * time.Minute
	}
}

func (m *Mock) TickQuote(ctx context.Context, symbol string) (Quote, error) {
	m.delay()
	m.mu.Lock()
	defer m.mu.Unlock()
	spread := decimal.NewFromFloat(0.3)
	return Quote{Bid: m.basePrice.Sub(spread), Ask: m.basePrice.Add(spread)}, nil
}

func (m *Mock) SubmitMarketOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	m.delay()
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.positions[id] = domain.Position{
		ID:           id,
		Side:         req.Side,
		Volume:       req.Volume,
		OpenPrice:    m.basePrice,
		CurrentPrice: m.basePrice,
		PnL:          decimal.Zero,
		OpenTime:     time.Now(),
	}
	return OrderResult{Accepted: true, ID: id}, nil
}

func (m *Mock) ClosePosition(ctx context.Context, req CloseRequest) (OrderResult, error) {
	m.delay()
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[req.ID]
	if !ok {
		return OrderResult{Accepted: false, Reason: "unknown position"}, nil
	}
	m.equity = m.equity.Add(pos.PnL)
	m.balance = m.balance.Add(pos.PnL)
	delete(m.positions, req.ID)
	return OrderResult{Accepted: true}, nil
}

// SetPosition lets tests seed a canned open position directly.
func (m *Mock) SetPosition(p domain.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[p.ID] = p
}

// SetEquity lets tests move equity directly to trigger drawdown/mode transitions.
func (m *Mock) SetEquity(equity decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = equity
}
