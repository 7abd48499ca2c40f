// Package domain holds the shared vocabulary used by every decision
// component: capital state, positions, role bindings, signals, close
// actions and the derived portfolio statistics that tie a tick
// together. Nothing in here mutates state owned by another package —
// each type is either a gateway mirror (Position) or an engine-owned
// record built fresh once per tick.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is a position or order direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Mode is the coarse operational state derived by the CapitalTracker.
type Mode string

const (
	ModeNormal       Mode = "NORMAL"
	ModeConservative Mode = "CONSERVATIVE"
	ModeEmergency    Mode = "EMERGENCY"
	ModeRecovery     Mode = "RECOVERY"
	ModeOffline      Mode = "OFFLINE"
)

// Zone is a slice of current equity governing base/max lot.
type Zone string

const (
	ZoneSafe       Zone = "SAFE"
	ZoneGrowth     Zone = "GROWTH"
	ZoneAggressive Zone = "AGGRESSIVE"
)

// Role is the per-position behavioral class assigned by RoleRegistry.
type Role string

const (
	RoleHedgeGuard    Role = "HG"
	RoleProfitWalker  Role = "PW"
	RoleRecoveryHunter Role = "RH"
	RoleScalpCapture  Role = "SC"
)

// CapitalContext is the process-wide snapshot rebuilt on every tick.
type CapitalContext struct {
	InitialCapital decimal.Decimal
	CurrentEquity  decimal.Decimal
	PeakEquity     decimal.Decimal
	DrawdownPct    decimal.Decimal
	Mode           Mode
	PreviousMode   Mode
	SafeBudget     decimal.Decimal
	GrowthBudget   decimal.Decimal
	AggressiveBudget decimal.Decimal
	Efficiency     decimal.Decimal
	// EfficiencyTrend is a derived, non-gating observability field
	// (improving/declining/stable over the last few ticks).
	EfficiencyTrend string
	UpdatedAt       time.Time
}

// ZoneBudget returns the currency budget for the given zone.
func (c CapitalContext) ZoneBudget(z Zone) decimal.Decimal {
	switch z {
	case ZoneSafe:
		return c.SafeBudget
	case ZoneGrowth:
		return c.GrowthBudget
	case ZoneAggressive:
		return c.AggressiveBudget
	default:
		return decimal.Zero
	}
}

// Position mirrors a broker-side open position. It is never mutated
// locally — every field that matters for a decision comes from the
// gateway on the tick it was observed.
type Position struct {
	ID           string
	Side         Side
	Volume       decimal.Decimal
	OpenPrice    decimal.Decimal
	CurrentPrice decimal.Decimal
	PnL          decimal.Decimal // gross + swap + commission, from the gateway
	OpenTime     time.Time
}

// AgeHours is the position's age in hours as of "now".
func (p Position) AgeHours(now time.Time) float64 {
	return now.Sub(p.OpenTime).Hours()
}

// ProfitPerLot is PnL divided by volume, zero when volume is zero.
func (p Position) ProfitPerLot() decimal.Decimal {
	if p.Volume.IsZero() {
		return decimal.Zero
	}
	return p.PnL.Div(p.Volume)
}

// EfficiencyCategory buckets profit-per-lot into a role-aware
// category, grounded on the original source's per-role efficiency
// thresholds (position_monitor.py _classify_efficiency_category_v4).
type EfficiencyCategory string

const (
	EfficiencyExcellent EfficiencyCategory = "excellent"
	EfficiencyGood      EfficiencyCategory = "good"
	EfficiencyFair      EfficiencyCategory = "fair"
	EfficiencyPoor      EfficiencyCategory = "poor"
	EfficiencyTerrible  EfficiencyCategory = "terrible"
)

var efficiencyThresholds = map[Role]struct{ excellent, good, fair, poor float64 }{
	RoleScalpCapture:   {excellent: 20, good: 10, fair: 0, poor: -20},
	RoleRecoveryHunter: {excellent: 30, good: 15, fair: 0, poor: -30},
	RoleHedgeGuard:     {excellent: 80, good: 40, fair: 0, poor: -60},
	RoleProfitWalker:   {excellent: 60, good: 30, fair: 0, poor: -40},
}

// ClassifyEfficiency buckets a position's profit-per-lot using the
// thresholds for its assigned role.
func ClassifyEfficiency(profitPerLot float64, role Role) EfficiencyCategory {
	t, ok := efficiencyThresholds[role]
	if !ok {
		t = efficiencyThresholds[RoleProfitWalker]
	}
	switch {
	case profitPerLot >= t.excellent:
		return EfficiencyExcellent
	case profitPerLot >= t.good:
		return EfficiencyGood
	case profitPerLot >= t.fair:
		return EfficiencyFair
	case profitPerLot >= t.poor:
		return EfficiencyPoor
	default:
		return EfficiencyTerrible
	}
}

// RoleTransition is one entry in a RoleBinding's evolution history.
type RoleTransition struct {
	From   Role
	To     Role
	Reason string
	At     time.Time
}

// RoleBinding is core-owned metadata keyed by position id.
type RoleBinding struct {
	PositionID    string
	Role          Role
	AssignedAt    time.Time
	OriginalRole  Role
	History       []RoleTransition
}

// EvolutionCount is len(History), kept as a method rather than a
// stored field so it can never drift from the history slice.
func (b RoleBinding) EvolutionCount() int {
	return len(b.History)
}

// Action is a directional trading decision.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionWait Action = "WAIT"
)

// Signal is an ephemeral per-tick decision record.
type Signal struct {
	Action            Action
	Strength          float64
	Confidence        float64
	Pattern           string
	TrendStrength     float64
	BalanceFactor     float64
	RecommendedZone   Zone
	RecommendedRole   Role
	DynamicLot        decimal.Decimal
	QualityScore      float64
	CandleFingerprint time.Time
	CreatedAt         time.Time
	Reasoning         []string
}

// CloseKind identifies which ClosePlanner pass produced an action.
type CloseKind string

const (
	CloseRoleBased         CloseKind = "ROLE_BASED"
	CloseMultiLevelProfit  CloseKind = "MULTI_LEVEL_PROFIT"
	CloseCapitalRecovery   CloseKind = "CAPITAL_RECOVERY"
	CloseMarginOptimization CloseKind = "MARGIN_OPTIMIZATION"
	CloseVolumeBalance     CloseKind = "VOLUME_BALANCE"
)

// CloseAction is a proposal emitted by the ClosePlanner.
type CloseAction struct {
	Kind            CloseKind
	TargetIDs       []string
	ProjectedNetPnL decimal.Decimal
	Priority        int // 1 highest .. 5 lowest
	Reason          string
	RecoveryScore   *float64
}

// PortfolioStats is derived fresh each tick from the open position set.
type PortfolioStats struct {
	BuyVolume     decimal.Decimal
	SellVolume    decimal.Decimal
	Imbalance     float64 // |b-s|/(b+s), 0 when none
	RoleCounts    map[Role]int
	ZoneCounts    map[Zone]int
	MarginLevel   float64
	LosingCount   int
	PositionCount int
}

// BuyFraction is the fraction of open positions (by count) on the buy side.
func (s PortfolioStats) BuyFraction(positions []Position) float64 {
	if len(positions) == 0 {
		return 0.5
	}
	buy := 0
	for _, p := range positions {
		if p.Side == SideBuy {
			buy++
		}
	}
	return float64(buy) / float64(len(positions))
}

// Candle is one OHLCV bar, oldest-to-newest ordering is the caller's
// responsibility (matches the MarketGateway contract).
type Candle struct {
	OpenTime time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   decimal.Decimal
}

// Color is green iff close>open, red otherwise (spec treats a doji as red).
type Color string

const (
	ColorGreen Color = "GREEN"
	ColorRed   Color = "RED"
)

func (c Candle) Color() Color {
	if c.Close.GreaterThan(c.Open) {
		return ColorGreen
	}
	return ColorRed
}

func (c Candle) Body() decimal.Decimal {
	return c.Close.Sub(c.Open).Abs()
}

func (c Candle) Range() decimal.Decimal {
	return c.High.Sub(c.Low)
}

// BodyRatio is Body/Range, zero when Range is zero.
func (c Candle) BodyRatio() float64 {
	r := c.Range()
	if r.IsZero() {
		return 0
	}
	f, _ := c.Body().Div(r).Float64()
	return f
}

// AccountSnapshot is the broker account state for one tick.
type AccountSnapshot struct {
	Login       string
	Balance     decimal.Decimal
	Equity      decimal.Decimal
	MarginLevel float64
	FreeMargin  decimal.Decimal
}

// Tick is the immutable record built once at tick start and threaded
// by reference through every component — the cross-component calls
// become function arguments instead of back-pointers between mutually
// referencing managers (see SPEC_FULL.md §9 redesign notes).
type Tick struct {
	Now       time.Time
	Capital   CapitalContext
	Positions []Position
	Bindings  map[string]RoleBinding
	Stats     PortfolioStats
	Candles   []Candle // last n candles, oldest first
	Session   SessionInfo
}

// SessionInfo is the Clock/Session classification for "now".
type SessionInfo struct {
	HighVolatility bool
	ActivityScore  float64
}
