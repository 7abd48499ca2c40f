// Package engine is the single logical worker (§5): a periodic tick
// loop that refreshes CapitalContext, synchronizes the RoleRegistry,
// runs SignalEngine→LotSizer→RiskGate in sequence, then the
// ClosePlanner, against one frozen gateway snapshot per tick. Grounded
// on the teacher's internal/bot/bot.go ticker+stopChan+WaitGroup shape.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"goldcore/internal/capital"
	"goldcore/internal/closeplan"
	"goldcore/internal/domain"
	"goldcore/internal/enginerr"
	"goldcore/internal/events"
	"goldcore/internal/gateway"
	"goldcore/internal/riskgate"
	"goldcore/internal/role"
	"goldcore/internal/session"
	"goldcore/internal/signal"
	"goldcore/internal/telemetry"
)

// State is the engine's coarse lifecycle state.
type State string

const (
	StateStopped  State = "STOPPED"
	StateRunning  State = "RUNNING"
	StateDraining State = "DRAINING"
)

// Config holds the tick cadence and broker identity, per SPEC_FULL.md §6.
type Config struct {
	Symbol               string
	TickInterval         time.Duration // 5-15s when components are ready
	DegradedTickInterval time.Duration // 30s in degraded/basic mode
	CandlePeriod         string
}

// DefaultConfig returns the cadence named in spec §5.
func DefaultConfig(symbol string) Config {
	return Config{
		Symbol:               symbol,
		TickInterval:         10 * time.Second,
		DegradedTickInterval: 30 * time.Second,
		CandlePeriod:         "M5",
	}
}

// Engine wires every component (C1-C7) behind one tick loop.
type Engine struct {
	cfg     Config
	gw      gateway.MarketGateway
	tracker *capital.Tracker
	roles   *role.Registry
	signals *signal.Engine
	planner *closeplan.Planner
	gate    *riskgate.Gate
	bus     *events.Bus
	log     *telemetry.Logger

	mu    sync.RWMutex
	state State

	stopChan chan struct{}
	wg       sync.WaitGroup

	lastTick domain.Tick
}

// New builds an Engine from its components. Callers construct each
// component (capital.Tracker, role.Registry, signal.Engine, ...)
// independently so tests can substitute fakes.
func New(
	cfg Config,
	gw gateway.MarketGateway,
	tracker *capital.Tracker,
	roles *role.Registry,
	signals *signal.Engine,
	planner *closeplan.Planner,
	gate *riskgate.Gate,
	bus *events.Bus,
	log *telemetry.Logger,
) *Engine {
	if log == nil {
		log = telemetry.Default()
	}
	return &Engine{
		cfg: cfg, gw: gw, tracker: tracker, roles: roles, signals: signals,
		planner: planner, gate: gate, bus: bus, log: log.WithComponent("engine"),
		state: StateStopped,
	}
}

// Start launches the tick loop in a goroutine. Calling Start twice is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return
	}
	e.state = StateRunning
	e.stopChan = make(chan struct{})
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run()
}

// Stop transitions the engine to Draining: any in-flight gateway call
// completes, then the loop exits (§5 cancellation semantics).
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return
	}
	e.state = StateDraining
	close(e.stopChan)
	e.mu.Unlock()
	e.wg.Wait()

	e.mu.Lock()
	e.state = StateStopped
	e.mu.Unlock()
}

func (e *Engine) run() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.Tick(context.Background())
		case <-e.stopChan:
			return
		}
	}
}

// Tick runs one full cycle. It never panics: any pipeline failure is
// logged and the tick aborts without mutating state beyond what
// already committed (§5 soft-failure rule).
func (e *Engine) Tick(ctx context.Context) {
	now := time.Now()

	snapshot, err := e.fetchAccountSnapshot(ctx)
	if err != nil {
		e.log.Warn("account snapshot fetch failed, tick aborted", "error", err.Error())
		return
	}
	capCtx := e.tracker.Update(snapshot, now)

	positions, err := e.fetchPositions(ctx)
	if err != nil {
		e.log.Warn("position fetch failed, tick aborted", "error", err.Error())
		return
	}
	openIDs := make([]string, 0, len(positions))
	for _, p := range positions {
		openIDs = append(openIDs, p.ID)
	}
	e.roles.Sync(openIDs)

	for _, p := range positions {
		if _, ok := e.roles.Binding(p.ID); !ok {
			e.bindNewPosition(p, capCtx, positions)
		}
	}

	stats := computeStats(positions, e.roles)
	if snapshot != nil {
		stats.MarginLevel = snapshot.MarginLevel
	}
	candles, err := e.fetchCandles(ctx)
	if err != nil {
		e.log.Warn("candle fetch failed, tick aborted", "error", err.Error())
		return
	}

	bindings := e.roles.All()
	sess := session.Classify(now)

	tick := domain.Tick{
		Now:       now,
		Capital:   capCtx,
		Positions: positions,
		Bindings:  bindings,
		Stats:     stats,
		Candles:   candles,
		Session:   domain.SessionInfo{HighVolatility: sess.HighVolatility, ActivityScore: sess.ActivityScore},
	}
	e.mu.Lock()
	e.lastTick = tick
	e.mu.Unlock()

	e.evaluateEvolutions(tick)

	if capCtx.Mode != domain.ModeOffline {
		e.handleEntry(ctx, tick)

		actions := e.planner.Plan(tick)
		e.executeCloseActions(ctx, actions, positions)
	}

	if e.bus != nil {
		e.bus.Publish(events.Event{Type: events.EventTickCompleted, Timestamp: now, Data: map[string]any{
			"mode": string(capCtx.Mode), "positions": len(positions),
		}})
	}
}

func (e *Engine) fetchAccountSnapshot(ctx context.Context) (*domain.AccountSnapshot, error) {
	cctx, cancel := gateway.WithTimeout(ctx)
	defer cancel()
	return e.gw.AccountSnapshot(cctx)
}

func (e *Engine) fetchPositions(ctx context.Context) ([]domain.Position, error) {
	cctx, cancel := gateway.WithTimeout(ctx)
	defer cancel()
	return e.gw.OpenPositions(cctx, e.cfg.Symbol)
}

func (e *Engine) fetchCandles(ctx context.Context) ([]domain.Candle, error) {
	cctx, cancel := gateway.WithTimeout(ctx)
	defer cancel()
	return e.gw.RecentCandles(cctx, e.cfg.Symbol, e.cfg.CandlePeriod, 5)
}

func (e *Engine) bindNewPosition(p domain.Position, capCtx domain.CapitalContext, all []domain.Position) {
	buyVol, sellVol := decimal.Zero, decimal.Zero
	losing := 0
	for _, q := range all {
		if q.Side == domain.SideBuy {
			buyVol = buyVol.Add(q.Volume)
		} else {
			sellVol = sellVol.Add(q.Volume)
		}
		if q.PnL.IsNegative() {
			losing++
		}
	}
	total := buyVol.Add(sellVol)
	imbalance := 0.0
	if !total.IsZero() {
		diff := buyVol.Sub(sellVol).Abs()
		imbalance, _ = diff.Div(total).Float64()
	}
	dd, _ := capCtx.DrawdownPct.Float64()
	volF, _ := p.Volume.Float64()

	role_ := e.roles.OnNewPosition(p.ID, role.ScoreInput{
		DrawdownPct:    dd,
		Imbalance:      imbalance,
		LosingCount:    losing,
		Volume:         volF,
		TotalPositions: len(all),
		RoleCounts:     e.roles.RoleCounts(),
	}, p.OpenTime)

	if e.bus != nil {
		e.bus.Publish(events.Event{Type: events.EventRoleAssigned, Timestamp: p.OpenTime, Data: map[string]any{
			"position_id": p.ID, "role": string(role_),
		}})
	}
}

func (e *Engine) evaluateEvolutions(tick domain.Tick) {
	locals := make([]role.PositionLocal, 0, len(tick.Positions))
	for _, p := range tick.Positions {
		pnlF, _ := p.PnL.Float64()
		volF, _ := p.Volume.Float64()
		locals = append(locals, role.PositionLocal{
			PositionID: p.ID, ProfitUSD: pnlF, AgeHours: p.AgeHours(tick.Now), Volume: volF,
		})
	}
	for _, c := range e.roles.EvaluateEvolutions(locals) {
		if e.roles.Apply(c, tick.Now) && e.bus != nil {
			e.bus.Publish(events.Event{Type: events.EventRoleEvolved, Timestamp: tick.Now, Data: map[string]any{
				"position_id": c.PositionID, "from": string(c.From), "to": string(c.To), "reason": c.Reason,
			}})
		}
	}
}

func (e *Engine) handleEntry(ctx context.Context, tick domain.Tick) {
	sig := e.signals.Evaluate(tick)
	if sig.Action == domain.ActionWait {
		return
	}

	sig = e.tracker.PositionSize(sig, sig.RecommendedRole, recentRangePoints(tick.Candles))

	notional := sig.DynamicLot.Mul(lastClose(tick.Candles))
	decision := e.gate.Admit(riskgate.OrderRequest{
		Role:           sig.RecommendedRole,
		Zone:           sig.RecommendedZone,
		Mode:           tick.Capital.Mode,
		Lot:            sig.DynamicLot,
		EquityAtRisk:   notional,
		CurrentEquity:  tick.Capital.CurrentEquity,
		MarginLevel:    tick.Stats.MarginLevel,
		RoleCounts:     e.roles.RoleCounts(),
		TotalPositions: len(tick.Positions),
	})
	if !decision.Admit {
		if e.bus != nil {
			e.bus.Publish(events.Event{Type: events.EventRiskRejected, Timestamp: tick.Now, Data: map[string]any{"reason": decision.Reason}})
		}
		return
	}

	side := domain.SideBuy
	if sig.Action == domain.ActionSell {
		side = domain.SideSell
	}
	cctx, cancel := gateway.WithTimeout(ctx)
	defer cancel()
	result, err := e.gw.SubmitMarketOrder(cctx, gateway.OrderRequest{
		Symbol: e.cfg.Symbol, Side: side, Volume: decision.Lot, Comment: string(decision.Role) + " " + sig.Pattern,
	})
	if err != nil || !result.Accepted {
		reason := decision.Reason
		if err != nil {
			reason = err.Error()
		} else {
			reason = result.Reason
		}
		if e.bus != nil {
			e.bus.Publish(events.Event{Type: events.EventOrderRejected, Timestamp: tick.Now, Data: map[string]any{"reason": reason}})
		}
		return
	}

	if e.bus != nil {
		e.bus.Publish(events.Event{Type: events.EventOrderSubmitted, Timestamp: tick.Now, Data: map[string]any{
			"id": result.ID, "side": string(side), "lot": decision.Lot.String(),
		}})
	}
}

func (e *Engine) executeCloseActions(ctx context.Context, actions []domain.CloseAction, positions []domain.Position) {
	byID := make(map[string]domain.Position, len(positions))
	for _, p := range positions {
		byID[p.ID] = p
	}
	for _, a := range actions {
		for _, id := range a.TargetIDs {
			cctx, cancel := gateway.WithTimeout(ctx)
			result, err := e.gw.ClosePosition(cctx, gateway.CloseRequest{ID: id, Symbol: e.cfg.Symbol})
			cancel()
			if err != nil || !result.Accepted {
				if e.bus != nil {
					e.bus.Publish(events.Event{Type: events.EventCloseActionFailed, Data: map[string]any{"id": id, "kind": string(a.Kind)}})
				}
				continue
			}
			if pos, ok := byID[id]; ok {
				e.gate.RecordTradeOutcome(pos.PnL, pos.Volume)
			}
			if e.bus != nil {
				e.bus.Publish(events.Event{Type: events.EventCloseActionExecuted, Data: map[string]any{"id": id, "kind": string(a.Kind)}})
			}
		}
	}
}

// CloseAll bypasses the planner and closes every open position
// sequentially, reporting aggregate success/failure (§5).
func (e *Engine) CloseAll(ctx context.Context) (closed int, failed int, err error) {
	cctx, cancel := gateway.WithTimeout(ctx)
	positions, ferr := e.gw.OpenPositions(cctx, e.cfg.Symbol)
	cancel()
	if ferr != nil {
		return 0, 0, enginerr.Wrap(enginerr.GatewayUnavailable, "close-all: open positions fetch failed", ferr)
	}
	for _, p := range positions {
		cctx, cancel := gateway.WithTimeout(ctx)
		result, rerr := e.gw.ClosePosition(cctx, gateway.CloseRequest{ID: p.ID, Symbol: e.cfg.Symbol})
		cancel()
		if rerr != nil || !result.Accepted {
			failed++
			continue
		}
		e.gate.RecordTradeOutcome(p.PnL, p.Volume)
		closed++
	}
	return closed, failed, nil
}

// RefreshSnapshots forces an immediate account/position/candle fetch
// and republishes the resulting tick state without running entry or
// close planning — for operator-triggered reconciliation between
// scheduled ticks (§6 CLI surface).
func (e *Engine) RefreshSnapshots(ctx context.Context) error {
	now := time.Now()

	snapshot, err := e.fetchAccountSnapshot(ctx)
	if err != nil {
		return enginerr.Wrap(enginerr.GatewayUnavailable, "refresh-snapshots: account snapshot failed", err)
	}
	capCtx := e.tracker.Update(snapshot, now)

	positions, err := e.fetchPositions(ctx)
	if err != nil {
		return enginerr.Wrap(enginerr.GatewayUnavailable, "refresh-snapshots: position fetch failed", err)
	}
	candles, err := e.fetchCandles(ctx)
	if err != nil {
		return enginerr.Wrap(enginerr.GatewayUnavailable, "refresh-snapshots: candle fetch failed", err)
	}

	stats := computeStats(positions, e.roles)
	if snapshot != nil {
		stats.MarginLevel = snapshot.MarginLevel
	}
	sess := session.Classify(now)

	tick := domain.Tick{
		Now: now, Capital: capCtx, Positions: positions, Bindings: e.roles.All(),
		Stats: stats, Candles: candles,
		Session: domain.SessionInfo{HighVolatility: sess.HighVolatility, ActivityScore: sess.ActivityScore},
	}
	e.mu.Lock()
	e.lastTick = tick
	e.mu.Unlock()

	if e.bus != nil {
		e.bus.Publish(events.Event{Type: events.EventSnapshotsRefreshed, Timestamp: now, Data: map[string]any{
			"positions": len(positions),
		}})
	}
	return nil
}

// LastTick returns the most recently completed tick's snapshot for
// observers (read-only, §5).
func (e *Engine) LastTick() domain.Tick {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastTick
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func computeStats(positions []domain.Position, roles *role.Registry) domain.PortfolioStats {
	stats := domain.PortfolioStats{RoleCounts: map[domain.Role]int{}, ZoneCounts: map[domain.Zone]int{}}
	buyVol, sellVol := decimal.Zero, decimal.Zero
	for _, p := range positions {
		if p.Side == domain.SideBuy {
			buyVol = buyVol.Add(p.Volume)
		} else {
			sellVol = sellVol.Add(p.Volume)
		}
		if p.PnL.IsNegative() {
			stats.LosingCount++
		}
	}
	stats.BuyVolume = buyVol
	stats.SellVolume = sellVol
	total := buyVol.Add(sellVol)
	if !total.IsZero() {
		diff := buyVol.Sub(sellVol).Abs()
		stats.Imbalance, _ = diff.Div(total).Float64()
	}
	stats.PositionCount = len(positions)
	stats.RoleCounts = roles.RoleCounts()
	return stats
}

func recentRangePoints(candles []domain.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	last := candles[len(candles)-1]
	f, _ := last.Range().Float64()
	return f
}

func lastClose(candles []domain.Candle) decimal.Decimal {
	if len(candles) == 0 {
		return decimal.NewFromInt(1)
	}
	return candles[len(candles)-1].Close
}
