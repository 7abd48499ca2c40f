package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldcore/internal/capital"
	"goldcore/internal/closeplan"
	"goldcore/internal/domain"
	"goldcore/internal/events"
	"goldcore/internal/gateway"
	"goldcore/internal/riskgate"
	"goldcore/internal/role"
	"goldcore/internal/session"
	"goldcore/internal/signal"
)

func buildEngine(t *testing.T, gw *gateway.Mock) *Engine {
	t.Helper()
	tracker, err := capital.New(capital.Config{InitialCapital: decimal.NewFromInt(5000)})
	require.NoError(t, err)
	roles := role.NewRegistry()
	sigEngine := signal.New(signal.DefaultConfig(), session.RealClock{})
	planner := closeplan.New(closeplan.DefaultConfig())
	gate := riskgate.New(riskgate.DefaultConfig(), nil)
	bus := events.NewBus()

	return New(DefaultConfig("XAUUSD"), gw, tracker, roles, sigEngine, planner, gate, bus, nil)
}

func TestTick_ColdStartNoPositionsDoesNotPanic(t *testing.T) {
	gw := gateway.NewMock("XAUUSD", decimal.NewFromInt(2000), decimal.NewFromInt(5000))
	e := buildEngine(t, gw)
	assert.NotPanics(t, func() { e.Tick(context.Background()) })
	assert.Equal(t, StateStopped, e.State())
}

func TestTick_OfflineGatewaySkipsEntryHandling(t *testing.T) {
	gw := gateway.NewMock("XAUUSD", decimal.NewFromInt(2000), decimal.NewFromInt(5000))
	gw.FailAccountSnapshot = true
	e := buildEngine(t, gw)
	e.Tick(context.Background())
	assert.Equal(t, 0, len(e.LastTick().Positions))
}

func TestStartStop_TransitionsState(t *testing.T) {
	gw := gateway.NewMock("XAUUSD", decimal.NewFromInt(2000), decimal.NewFromInt(5000))
	e := buildEngine(t, gw)
	e.cfg.TickInterval = 20 * time.Millisecond
	e.Start()
	assert.Equal(t, StateRunning, e.State())
	time.Sleep(30 * time.Millisecond)
	e.Stop()
	assert.Equal(t, StateStopped, e.State())
}

func TestRefreshSnapshots_PopulatesLastTickWithoutTrading(t *testing.T) {
	gw := gateway.NewMock("XAUUSD", decimal.NewFromInt(2000), decimal.NewFromInt(5000))
	gw.SetPosition(domain.Position{ID: "1", Side: domain.SideBuy, Volume: decimal.NewFromFloat(0.1), OpenTime: time.Now()})
	e := buildEngine(t, gw)

	err := e.RefreshSnapshots(context.Background())
	require.NoError(t, err)
	assert.Len(t, e.LastTick().Positions, 1)

	positions, ferr := gw.OpenPositions(context.Background(), "XAUUSD")
	require.NoError(t, ferr)
	assert.Len(t, positions, 1, "RefreshSnapshots must not submit or close orders")
}

func TestRefreshSnapshots_NilAccountSnapshotGoesOffline(t *testing.T) {
	gw := gateway.NewMock("XAUUSD", decimal.NewFromInt(2000), decimal.NewFromInt(5000))
	gw.FailAccountSnapshot = true
	e := buildEngine(t, gw)

	err := e.RefreshSnapshots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ModeOffline, e.LastTick().Capital.Mode)
}

func TestCloseAll_ClosesEveryOpenPosition(t *testing.T) {
	gw := gateway.NewMock("XAUUSD", decimal.NewFromInt(2000), decimal.NewFromInt(5000))
	gw.SetPosition(domain.Position{ID: "1", Side: domain.SideBuy, Volume: decimal.NewFromFloat(0.1), OpenTime: time.Now()})
	gw.SetPosition(domain.Position{ID: "2", Side: domain.SideSell, Volume: decimal.NewFromFloat(0.1), OpenTime: time.Now()})
	e := buildEngine(t, gw)
	closed, failed, err := e.CloseAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, closed)
	assert.Equal(t, 0, failed)
}
