// Package capital implements the CapitalTracker (C1): equity/peak
// tracking, drawdown, zone budgets and trading-mode derivation.
// Grounded on the teacher's risk.RiskManager (mutex-guarded state,
// daily-reset bookkeeping) and circuit.CircuitBreaker (reset-if-needed
// ring accounting), generalized to the zone/mode semantics of
// SPEC_FULL.md §4.1.
package capital

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"goldcore/internal/domain"
	"goldcore/internal/enginerr"
)

// ZoneShares are the default percentage splits of equity across
// zones; must sum to 1.
type ZoneShares struct {
	Safe, Growth, Aggressive decimal.Decimal
}

// DefaultZoneShares is the 50/35/15 split from SPEC_FULL.md §4.1.
func DefaultZoneShares() ZoneShares {
	return ZoneShares{
		Safe:       decimal.NewFromFloat(0.50),
		Growth:     decimal.NewFromFloat(0.35),
		Aggressive: decimal.NewFromFloat(0.15),
	}
}

// Config holds the CapitalTracker's thresholds, all configurable per
// SPEC_FULL.md §6 capital_management block.
type Config struct {
	InitialCapital      decimal.Decimal
	Zones               ZoneShares
	ConservativeTrigger float64 // percent, default 20
	EmergencyTrigger    float64 // percent, default 25
	RecoveryBoostEnabled bool
	HistoryCapacity     int // ring buffer size for capital_history, default ~1000
}

// historyEntry is one ring-buffer slot of capital_history.
type historyEntry struct {
	At  time.Time
	Ctx domain.CapitalContext
}

// Tracker is the CapitalTracker. It owns CapitalContext exclusively;
// only Update mutates it.
type Tracker struct {
	mu      sync.RWMutex
	cfg     Config
	current domain.CapitalContext
	history []historyEntry
}

// New creates a Tracker from InitialCapital. A zero InitialCapital is
// a hard error, matching SPEC_FULL.md §4.1's "tracker refuses to
// initialize" rule.
func New(cfg Config) (*Tracker, error) {
	if cfg.InitialCapital.IsZero() {
		return nil, enginerr.New(enginerr.ConstraintViolation, "initial_capital must be non-zero")
	}
	if cfg.ConservativeTrigger == 0 {
		cfg.ConservativeTrigger = 20
	}
	if cfg.EmergencyTrigger == 0 {
		cfg.EmergencyTrigger = 25
	}
	if cfg.HistoryCapacity == 0 {
		cfg.HistoryCapacity = 1000
	}
	if cfg.Zones == (ZoneShares{}) {
		cfg.Zones = DefaultZoneShares()
	}
	t := &Tracker{
		cfg: cfg,
		current: domain.CapitalContext{
			InitialCapital: cfg.InitialCapital,
			CurrentEquity:  cfg.InitialCapital,
			PeakEquity:     cfg.InitialCapital,
			Mode:           domain.ModeNormal,
			Efficiency:     decimal.NewFromInt(1),
		},
	}
	t.applyZones(cfg.InitialCapital)
	return t, nil
}

// Update recomputes CapitalContext from the latest account snapshot.
// A nil snapshot means the gateway is unavailable: the tracker
// overlays Mode=Offline onto the last good context without otherwise
// mutating it (SPEC_FULL.md §4.1, §7 GatewayUnavailable).
func (t *Tracker) Update(snapshot *domain.AccountSnapshot, now time.Time) domain.CapitalContext {
	t.mu.Lock()
	defer t.mu.Unlock()

	if snapshot == nil {
		offline := t.current
		offline.Mode = domain.ModeOffline
		offline.UpdatedAt = now
		return offline
	}

	prevMode := t.current.Mode
	equity := snapshot.Equity

	peak := t.current.PeakEquity
	if equity.GreaterThan(peak) {
		peak = equity
	}

	drawdown := decimal.Zero
	if !peak.IsZero() {
		drawdown = peak.Sub(equity).Div(peak).Mul(decimal.NewFromInt(100))
	}
	if drawdown.IsNegative() {
		drawdown = decimal.Zero
	}
	drawdownF, _ := drawdown.Float64()

	mode := deriveModeWith(prevMode, drawdownF, equity, peak, t.cfg.ConservativeTrigger, t.cfg.EmergencyTrigger)

	efficiency := decimal.NewFromInt(1)
	if !t.cfg.InitialCapital.IsZero() {
		efficiency = equity.Div(t.cfg.InitialCapital)
	}

	ctx := domain.CapitalContext{
		InitialCapital: t.cfg.InitialCapital,
		CurrentEquity:  equity,
		PeakEquity:     peak,
		DrawdownPct:    drawdown,
		Mode:           mode,
		PreviousMode:   prevMode,
		Efficiency:     efficiency,
		UpdatedAt:      now,
	}
	t.applyZonesTo(&ctx, equity)
	ctx.EfficiencyTrend = t.efficiencyTrend(efficiency)

	t.current = ctx
	t.recordHistory(now, ctx)
	return ctx
}

// Current returns the last computed context without recomputing it.
func (t *Tracker) Current() domain.CapitalContext {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// deriveMode is a pure function of (previous mode, drawdown%, equity/peak),
// matching SPEC_FULL.md §8 invariant 3.
// It uses the default Conservative (20%) and Emergency (25%) triggers.
func deriveMode(prev domain.Mode, drawdownPct float64, equity, peak decimal.Decimal) domain.Mode {
	return deriveModeWith(prev, drawdownPct, equity, peak, 20, 25)
}

// deriveModeWith is deriveMode with explicit Conservative/Emergency
// drawdown triggers, in percent.
func deriveModeWith(prev domain.Mode, drawdownPct float64, equity, peak decimal.Decimal, conservativeTrigger, emergencyTrigger float64) domain.Mode {
	switch {
	case drawdownPct >= emergencyTrigger:
		return domain.ModeEmergency
	case drawdownPct >= conservativeTrigger:
		return domain.ModeConservative
	}
	if prev == domain.ModeConservative || prev == domain.ModeEmergency {
		ratio := 1.0
		if !peak.IsZero() {
			ratio, _ = equity.Div(peak).Float64()
		}
		if drawdownPct < 5 && ratio >= 0.95 {
			return domain.ModeRecovery
		}
	}
	return domain.ModeNormal
}

func (t *Tracker) applyZones(equity decimal.Decimal) {
	t.applyZonesTo(&t.current, equity)
}

func (t *Tracker) applyZonesTo(ctx *domain.CapitalContext, equity decimal.Decimal) {
	ctx.SafeBudget = equity.Mul(t.cfg.Zones.Safe)
	ctx.GrowthBudget = equity.Mul(t.cfg.Zones.Growth)
	ctx.AggressiveBudget = equity.Sub(ctx.SafeBudget).Sub(ctx.GrowthBudget)
}

func (t *Tracker) recordHistory(at time.Time, ctx domain.CapitalContext) {
	t.history = append(t.history, historyEntry{At: at, Ctx: ctx})
	if len(t.history) > t.cfg.HistoryCapacity {
		t.history = t.history[len(t.history)-t.cfg.HistoryCapacity:]
	}
}

// efficiencyTrend compares the new efficiency to the last few ring
// entries (observability only, never gates a decision — see
// SPEC_FULL.md's supplemented-features section).
func (t *Tracker) efficiencyTrend(newEff decimal.Decimal) string {
	const window = 5
	if len(t.history) < window {
		return "stable"
	}
	older := t.history[len(t.history)-window].Ctx.Efficiency
	delta, _ := newEff.Sub(older).Float64()
	switch {
	case delta > 0.01:
		return "improving"
	case delta < -0.01:
		return "declining"
	default:
		return "stable"
	}
}

// History returns a copy of the ring buffer for observability.
func (t *Tracker) History() []domain.CapitalContext {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.CapitalContext, len(t.history))
	for i, h := range t.history {
		out[i] = h.Ctx
	}
	return out
}
