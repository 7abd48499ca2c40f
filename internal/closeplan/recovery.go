package closeplan

import (
	"sort"

	"github.com/shopspring/decimal"

	"goldcore/internal/domain"
)

// passC_CapitalRecovery pairs a losing position with a capped,
// approximate top-K subset of profitable positions whose combined
// P&L clears a mode/drawdown-adjusted minimum. The exhaustive subset
// search spec §4.5 allows to approximate is replaced here by a
// top-K-by-profit-per-lot heuristic (K=10, subset sizes 1..5), grounded
// on the teacher's internal/autopilot/hedging.go candidate-capping
// pattern — this is explicitly a heuristic, not an optimal search.
func (p *Planner) passC_CapitalRecovery(tick domain.Tick, proposed map[string]struct{}) []domain.CloseAction {
	dd, _ := tick.Capital.DrawdownPct.Float64()
	triggered := dd >= 10 || tick.Capital.Mode == domain.ModeRecovery || tick.Capital.Mode == domain.ModeConservative
	if !triggered {
		return nil
	}

	const topK = 10
	const maxSubset = 5

	var losing, profitable []domain.Position
	for _, pos := range tick.Positions {
		if _, skip := proposed[pos.ID]; skip {
			continue
		}
		if pos.PnL.LessThan(p.cfg.RecoveryMinLoss) {
			losing = append(losing, pos)
		} else if pos.PnL.GreaterThan(p.cfg.RecoveryMinProfit) {
			profitable = append(profitable, pos)
		}
	}
	if len(losing) == 0 || len(profitable) == 0 {
		return nil
	}

	sort.Slice(profitable, func(i, j int) bool {
		return profitable[i].ProfitPerLot().GreaterThan(profitable[j].ProfitPerLot())
	})
	if len(profitable) > topK {
		profitable = profitable[:topK]
	}

	var out []domain.CloseAction
	for _, lose := range losing {
		if _, skip := proposed[lose.ID]; skip {
			continue
		}
		role := domain.RoleProfitWalker
		if b, ok := tick.Bindings[lose.ID]; ok {
			role = b.Role
		}

		minNet := decimal.NewFromFloat(-2)
		if role == domain.RoleRecoveryHunter {
			minNet = decimal.NewFromFloat(-5)
		}
		switch tick.Capital.Mode {
		case domain.ModeEmergency:
			minNet = minNet.Sub(decimal.NewFromFloat(3))
		case domain.ModeRecovery:
			minNet = minNet.Sub(decimal.NewFromFloat(2))
		}
		if dd > 25 {
			minNet = minNet.Sub(decimal.NewFromFloat(2))
		}

		best, bestScore, bestIDs := bestSubset(lose, profitable, proposed, minNet, maxSubset, tick.Capital, dd, role)
		if bestIDs == nil || bestScore < 0.4 {
			continue
		}

		priority := 2
		if role == domain.RoleRecoveryHunter {
			priority = 1
		}
		score := bestScore
		out = append(out, domain.CloseAction{
			Kind:            domain.CloseCapitalRecovery,
			TargetIDs:       append([]string{lose.ID}, bestIDs...),
			ProjectedNetPnL: best,
			Priority:        priority,
			Reason:          "capital recovery pairing",
			RecoveryScore:   &score,
		})
	}
	return out
}

// bestSubset scans subsets of size 1..maxSubset from the top-K
// profitable candidates (in profit-per-lot order, taken as a
// contiguous prefix growing one at a time — the approximation spec
// §4.5 explicitly allows) and returns the highest-scoring one that
// clears minNet.
func bestSubset(
	losing domain.Position,
	candidates []domain.Position,
	proposed map[string]struct{},
	minNet decimal.Decimal,
	maxSubset int,
	cap domain.CapitalContext,
	dd float64,
	losingRole domain.Role,
) (decimal.Decimal, float64, []string) {
	var bestNet decimal.Decimal
	bestScore := -1.0
	var bestIDs []string

	sumPnL := decimal.Zero
	sumVol := decimal.Zero
	var ids []string
	for i, c := range candidates {
		if i >= maxSubset {
			break
		}
		if _, skip := proposed[c.ID]; skip {
			continue
		}
		sumPnL = sumPnL.Add(c.PnL)
		sumVol = sumVol.Add(c.Volume)
		ids = append(ids, c.ID)

		net := sumPnL.Add(losing.PnL)
		if net.LessThan(minNet) {
			continue
		}

		score := scoreSubset(net, sumVol, losing, cap, dd, losingRole)
		if score > bestScore {
			bestScore = score
			bestNet = net
			bestIDs = append([]string(nil), ids...)
		}
	}
	return bestNet, bestScore, bestIDs
}

func scoreSubset(net, sumVol decimal.Decimal, losing domain.Position, cap domain.CapitalContext, dd float64, losingRole domain.Role) float64 {
	netF, _ := net.Float64()
	profitScore := 0.2
	switch {
	case netF >= 5:
		profitScore = 1.0
	case netF >= 0:
		profitScore = 0.7
	case netF >= -5:
		profitScore = 0.5
	}
	if cap.Mode == domain.ModeEmergency {
		profitScore += 0.3
	}
	if cap.Mode == domain.ModeRecovery {
		profitScore += 0.2
	}
	if losingRole == domain.RoleRecoveryHunter {
		profitScore += 0.2
	}
	if dd > 25 {
		profitScore += 0.3
	}
	profitScore = clip(profitScore, 0, 1)

	sumVolF, _ := sumVol.Float64()
	loseVolF, _ := losing.Volume.Float64()
	volumeMatch := 0.0
	if mx := maxF(sumVolF, loseVolF); mx > 0 {
		volumeMatch = minF(sumVolF, loseVolF) / mx
	}

	eff, _ := cap.Efficiency.Float64()
	capitalUrgency := clip((1-eff)+dd/100, 0, 1)

	return 0.5*profitScore + 0.3*volumeMatch + 0.2*capitalUrgency
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
