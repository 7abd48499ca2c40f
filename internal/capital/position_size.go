package capital

import (
	"goldcore/internal/domain"
	"goldcore/internal/lotsize"
)

// PositionSize is the tracker's canonical sizing entry point
// (SPEC_FULL.md §4.1: "position_size(zone, signal_strength, role) →
// lot", exposed here because the tracker owns zone semantics). It
// defers the actual multiplier chain to the lotsize package and fills
// in the capital-side fields from the tracker's own current context.
func (t *Tracker) PositionSize(sig domain.Signal, role domain.Role, recentRangePts float64) domain.Signal {
	t.mu.RLock()
	ctx := t.current
	t.mu.RUnlock()

	eff, _ := ctx.Efficiency.Float64()
	dd, _ := ctx.DrawdownPct.Float64()

	sig.DynamicLot = lotsize.Compute(lotsize.Input{
		Zone:           sig.RecommendedZone,
		Role:           role,
		Mode:           ctx.Mode,
		Strength:       sig.Strength,
		TrendStrength:  sig.TrendStrength,
		BalanceFactor:  sig.BalanceFactor,
		RecentRangePts: recentRangePts,
		Efficiency:     eff,
		DrawdownPct:    dd,
		CurrentEquity:  ctx.CurrentEquity,
	})
	return sig
}
