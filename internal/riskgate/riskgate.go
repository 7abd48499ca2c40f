// Package riskgate implements the RiskGate (C6): the single admission
// point for directional orders. Grounded on the TradeRequest/
// TradeApproval shape of the pack's standalone risk-gate.go (centralized
// approval, one mutex-guarded struct, adjusted-size-never-up) fused
// with the teacher's circuit.CircuitBreaker daily/consecutive-loss
// bookkeeping.
package riskgate

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"goldcore/internal/domain"
)

// OrderRequest is what the engine proposes after LotSizer has sized it.
type OrderRequest struct {
	Role           domain.Role
	Zone           domain.Zone
	Mode           domain.Mode
	Lot            decimal.Decimal
	EquityAtRisk   decimal.Decimal // lot * price, the notional exposed
	CurrentEquity  decimal.Decimal
	MarginLevel    float64
	RoleCounts     map[domain.Role]int
	TotalPositions int
}

// Decision is the gate's verdict. Admit==false means Reason explains
// the rejection; Admit==true means Lot/Role carry the (possibly
// adjusted) values to submit.
type Decision struct {
	Admit      bool
	Lot        decimal.Decimal
	Role       domain.Role
	Confidence float64
	Reason     string
}

// Config holds RiskGate thresholds; DefaultConfig supplies the spec
// §4.6 values.
type Config struct {
	MaxDailyTrades        int
	MaxDailyLoss          decimal.Decimal // negative, e.g. -300
	MaxDailyVolume        decimal.Decimal // lots
	StopTradingMargin     float64         // percent, 120
	RoleCap               map[domain.Role]float64
	RoleCapSlack          float64 // +10%
	RecoveryPositionBonus int
	RecoveryRiskBonusPct  float64 // added on top of RecoveryRiskOverride while in recovery mode
	MaxConsecutiveLosses  int
	MaxRiskPerTrade       map[domain.Zone]float64 // fraction of equity
	RecoveryRiskOverride  float64
	EmergencyCloseLoss    decimal.Decimal // cumulative, negative, default -800
}

// DefaultConfig returns spec §4.6's named defaults.
func DefaultConfig() Config {
	return Config{
		MaxDailyTrades:    80,
		MaxDailyLoss:      decimal.NewFromFloat(-300),
		MaxDailyVolume:    decimal.NewFromFloat(15),
		StopTradingMargin: 120,
		RoleCap: map[domain.Role]float64{
			domain.RoleHedgeGuard:     0.30,
			domain.RoleProfitWalker:   0.45,
			domain.RoleRecoveryHunter: 0.25,
			domain.RoleScalpCapture:   0.20,
		},
		RoleCapSlack:          0.10,
		RecoveryPositionBonus: 10,
		RecoveryRiskBonusPct:  0.005,
		MaxConsecutiveLosses:  7,
		MaxRiskPerTrade: map[domain.Zone]float64{
			domain.ZoneSafe:       0.005,
			domain.ZoneGrowth:     0.010,
			domain.ZoneAggressive: 0.020,
		},
		RecoveryRiskOverride: 0.014,
		EmergencyCloseLoss:   decimal.NewFromFloat(-800),
	}
}

// dailyCounters is the calendar-day rolling window, reset by
// checkDayReset, grounded on circuit.CircuitBreaker's reset-if-needed idiom.
type dailyCounters struct {
	day              int
	tradeCount       int
	realizedFloating decimal.Decimal
	volume           decimal.Decimal
}

// Gate is the RiskGate. All mutation happens behind one mutex; the
// engine calls Admit once per proposed entry, in sequence with
// SignalEngine and LotSizer on the same frozen tick.
type Gate struct {
	mu                sync.Mutex
	cfg               Config
	emergencyStopped  bool
	consecutiveLosses int
	streak            int // rolling win/loss streak: positive = wins, negative = losses
	daily             dailyCounters
	now               func() time.Time
}

// New builds a Gate. nowFn may be nil to use time.Now.
func New(cfg Config, nowFn func() time.Time) *Gate {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Gate{cfg: cfg, now: nowFn}
}

// TripEmergencyStop is called by the engine when unrecoverable broker
// errors accumulate (SPEC_FULL.md §7 EmergencyStop).
func (g *Gate) TripEmergencyStop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emergencyStopped = true
}

// ResetEmergencyStop clears the flag (operator action, never automatic).
func (g *Gate) ResetEmergencyStop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emergencyStopped = false
}

// RecordTradeOutcome feeds the daily budget, consecutive-loss counter,
// and rolling win/loss streak, and auto-trips the emergency stop when
// cumulative loss breaches EmergencyCloseLoss or consecutive losses
// reach the cap (SPEC_FULL.md §7 EmergencyStop). Call once per closed
// or rejected-at-broker trade.
func (g *Gate) RecordTradeOutcome(pnl decimal.Decimal, volume decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkDayReset()
	g.daily.tradeCount++
	g.daily.realizedFloating = g.daily.realizedFloating.Add(pnl)
	g.daily.volume = g.daily.volume.Add(volume)
	if pnl.IsNegative() {
		g.consecutiveLosses++
		if g.streak < 0 {
			g.streak--
		} else {
			g.streak = -1
		}
	} else {
		g.consecutiveLosses = 0
		if g.streak > 0 {
			g.streak++
		} else {
			g.streak = 1
		}
	}
	if g.daily.realizedFloating.LessThanOrEqual(g.cfg.EmergencyCloseLoss) {
		g.emergencyStopped = true
	}
	if g.consecutiveLosses >= g.cfg.MaxConsecutiveLosses {
		g.emergencyStopped = true
	}
}

// EmergencyStopped reports the current emergency-stop flag.
func (g *Gate) EmergencyStopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.emergencyStopped
}

// ResetDailyCounters forces the daily trade/loss/volume counters to
// reset immediately, independent of the lazy checkDayReset-on-access
// that Admit/RecordTradeOutcome perform. Intended for a midnight
// housekeeping job so an idle engine does not carry yesterday's
// counters into the first tick of a new day.
func (g *Gate) ResetDailyCounters() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.daily = dailyCounters{day: g.now().YearDay()}
}

func (g *Gate) checkDayReset() {
	day := g.now().YearDay()
	if day != g.daily.day {
		g.daily = dailyCounters{day: day}
	}
}

// Admit implements SPEC_FULL.md §4.6's ordered checks and the
// lot-downward/role-reassignment adjustments.
func (g *Gate) Admit(req OrderRequest) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkDayReset()

	reject := func(reason string) Decision {
		return Decision{Admit: false, Reason: reason}
	}

	if g.emergencyStopped {
		return reject("emergency stop active")
	}
	if g.daily.tradeCount >= g.cfg.MaxDailyTrades {
		return reject("daily trade count exceeded")
	}
	if g.daily.realizedFloating.LessThanOrEqual(g.cfg.MaxDailyLoss) {
		return reject("daily loss budget exceeded")
	}
	if g.daily.volume.GreaterThanOrEqual(g.cfg.MaxDailyVolume) {
		return reject("daily volume budget exceeded")
	}
	if req.MarginLevel > 0 && req.MarginLevel < g.cfg.StopTradingMargin {
		return reject("margin level below stop-trading threshold")
	}
	if g.consecutiveLosses >= g.cfg.MaxConsecutiveLosses {
		return reject("consecutive loss limit reached")
	}

	role := req.Role
	warnings := 0
	if g.streak < 0 {
		warnings = -g.streak
	}
	adjustments := 0

	recovery := req.Mode == domain.ModeRecovery
	if !g.roleHasSlot(req.Role, req.RoleCounts, req.TotalPositions, recovery) {
		reassigned, ok := g.findSlot(req.RoleCounts, req.TotalPositions, recovery)
		if !ok {
			return reject("no role has headroom")
		}
		role = reassigned
		adjustments++
	}

	lot := req.Lot
	riskFrac := g.cfg.MaxRiskPerTrade[req.Zone]
	if recovery {
		riskFrac = g.cfg.RecoveryRiskOverride + g.cfg.RecoveryRiskBonusPct
	}
	if riskFrac > 0 && !req.CurrentEquity.IsZero() {
		maxNotional := req.CurrentEquity.Mul(decimal.NewFromFloat(riskFrac))
		if req.EquityAtRisk.GreaterThan(decimal.Zero) && req.EquityAtRisk.GreaterThan(maxNotional) {
			scale := maxNotional.Div(req.EquityAtRisk)
			adjusted := lot.Mul(scale).Round(2)
			if adjusted.LessThan(lot) {
				lot = adjusted
				adjustments++
			}
		}
	}

	riskScore := riskScoreFor(req)
	confidence := 1 - 0.3*riskScore - 0.1*float64(adjustments) - 0.05*float64(warnings)
	confidence = clip(confidence, 0, 1)

	return Decision{Admit: true, Lot: lot, Role: role, Confidence: confidence}
}

func (g *Gate) roleHasSlot(role domain.Role, counts map[domain.Role]int, total int, recovery bool) bool {
	if total == 0 {
		return true
	}
	cap := g.cfg.RoleCap[role] + g.cfg.RoleCapSlack
	bonus := 0
	if recovery {
		bonus = g.cfg.RecoveryPositionBonus
	}
	allowed := int(cap*float64(total)) + bonus
	return counts[role] < allowed || allowed <= 0
}

// findSlot prefers RH, PW, SC, HG in that order, per spec §4.6.
func (g *Gate) findSlot(counts map[domain.Role]int, total int, recovery bool) (domain.Role, bool) {
	for _, r := range []domain.Role{domain.RoleRecoveryHunter, domain.RoleProfitWalker, domain.RoleScalpCapture, domain.RoleHedgeGuard} {
		if g.roleHasSlot(r, counts, total, recovery) {
			return r, true
		}
	}
	return "", false
}

func riskScoreFor(req OrderRequest) float64 {
	if req.CurrentEquity.IsZero() {
		return 0.5
	}
	f, _ := req.EquityAtRisk.Div(req.CurrentEquity).Float64()
	return clip(f*10, 0, 1)
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
