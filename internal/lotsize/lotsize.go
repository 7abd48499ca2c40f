// Package lotsize implements the LotSizer (C4): a pure function from
// signal/zone/role/capital context to an order volume. Grounded on the
// teacher's internal/autopilot/dynamic_sltp.go, which shapes a target
// value from a chain of independently-named multipliers rather than one
// opaque formula — the same structure is used here for the lot-size
// multiplier chain (SPEC_FULL.md §4.4).
package lotsize

import (
	"math"

	"github.com/shopspring/decimal"

	"goldcore/internal/domain"
)

const (
	globalFloor = 0.01
	globalCap   = 0.25
)

type zoneRange struct{ base, max float64 }

var zoneRanges = map[domain.Zone]zoneRange{
	domain.ZoneSafe:       {0.01, 0.05},
	domain.ZoneGrowth:     {0.02, 0.10},
	domain.ZoneAggressive: {0.03, 0.20},
}

// Input bundles every value the multiplier chain reads.
type Input struct {
	Zone            domain.Zone
	Role            domain.Role
	Mode            domain.Mode
	Strength        float64
	TrendStrength   float64
	BalanceFactor   float64
	RecentRangePts  float64 // high-low of the latest candle, in price points
	Efficiency      float64
	DrawdownPct     float64
	CurrentEquity   decimal.Decimal
}

// Compute implements SPEC_FULL.md §4.4 steps 1-3. It never errors; any
// internal inconsistency (unknown zone) falls back to the safe volume
// named in the spec's failure-fallback clause.
func Compute(in Input) decimal.Decimal {
	zr, ok := zoneRanges[in.Zone]
	if !ok {
		return fallback(in.Zone, in.Role)
	}

	signalMult := clip(0.5+1.5*in.Strength, 0.5, 2.0)

	trendMult := 0.8
	if in.TrendStrength >= 0.5 {
		trendMult = 1.8
	}

	balanceMult := 1.0
	switch {
	case in.BalanceFactor > 1.2:
		balanceMult = 1.4
	case in.BalanceFactor < 0.8:
		balanceMult = 0.7
	}

	movementMult := movementMultiplier(in.RecentRangePts)
	capitalMult := capitalMultiplier(in.Efficiency)
	roleMult := roleMultiplier(in.Role)
	modeMult := modeMultiplier(in.Mode)
	drawdownMult := drawdownMultiplier(in.DrawdownPct)
	recoveryBoost := recoveryBoostMultiplier(in.Mode, in.Strength, in.DrawdownPct)

	lot := zr.base * signalMult * trendMult * balanceMult * movementMult *
		capitalMult * roleMult * modeMult * drawdownMult * recoveryBoost

	cap := math.Min(zr.max, globalCap)
	lot = clip(lot, globalFloor, cap)

	if in.Mode == domain.ModeEmergency {
		lot = math.Min(lot, 0.5*zr.max)
	}

	eqF, _ := in.CurrentEquity.Float64()
	if eqF < 1000 {
		lot = globalFloor
	}

	return roundToHundredth(lot)
}

func movementMultiplier(pts float64) float64 {
	const (
		loPts, loMult = 0.15, 0.8
		hiPts, hiMult = 2.50, 1.6
	)
	if pts <= loPts {
		return loMult
	}
	if pts >= hiPts {
		return hiMult
	}
	frac := (pts - loPts) / (hiPts - loPts)
	return loMult + frac*(hiMult-loMult)
}

func capitalMultiplier(efficiency float64) float64 {
	switch {
	case efficiency >= 1.5:
		return 1.4
	case efficiency >= 1.2:
		return 1.2
	case efficiency >= 1.0:
		return 1.0
	case efficiency >= 0.8:
		return 0.8
	default:
		return 0.6
	}
}

func roleMultiplier(role domain.Role) float64 {
	switch role {
	case domain.RoleHedgeGuard:
		return 0.8
	case domain.RoleRecoveryHunter:
		return 1.5 * 1.2
	case domain.RoleScalpCapture:
		return 1.2 * 1.1
	default: // PW
		return 1.0
	}
}

func modeMultiplier(mode domain.Mode) float64 {
	switch mode {
	case domain.ModeConservative:
		return 0.6
	case domain.ModeEmergency:
		return 0.3
	case domain.ModeRecovery:
		return 1.4
	default:
		return 1.0
	}
}

func drawdownMultiplier(ddPct float64) float64 {
	switch {
	case ddPct >= 25:
		return 0.4
	case ddPct >= 20:
		return 0.6
	case ddPct >= 15:
		return 0.8
	case ddPct >= 10:
		return 0.9
	default:
		return 1.0
	}
}

func recoveryBoostMultiplier(mode domain.Mode, strength, ddPct float64) float64 {
	if mode != domain.ModeRecovery {
		return 1.0
	}
	switch {
	case strength >= 0.8 && ddPct >= 15:
		return 1.6
	case strength >= 0.7 && ddPct >= 10:
		return 1.4
	case strength >= 0.6:
		return 1.2
	default:
		return 1.0
	}
}

// fallback implements the spec's "on any failure" safe lot table.
func fallback(zone domain.Zone, role domain.Role) decimal.Decimal {
	switch role {
	case domain.RoleRecoveryHunter:
		return decimal.NewFromFloat(0.03)
	case domain.RoleScalpCapture:
		return decimal.NewFromFloat(0.02)
	default:
		return decimal.NewFromFloat(0.01)
	}
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

func roundToHundredth(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
