package closeplan

import (
	"sort"

	"github.com/shopspring/decimal"

	"goldcore/internal/domain"
)

// passD_MarginOptimization closes up to 3 poor/terrible-efficiency
// positions, ranked by estimated freed margin, when margin is tight.
func (p *Planner) passD_MarginOptimization(tick domain.Tick, proposed map[string]struct{}) []domain.CloseAction {
	if tick.Stats.MarginLevel >= p.cfg.MarginLevelFloor {
		return nil
	}

	type candidate struct {
		pos          domain.Position
		freedMargin  decimal.Decimal
	}
	var cands []candidate
	for _, pos := range tick.Positions {
		if _, skip := proposed[pos.ID]; skip {
			continue
		}
		role := domain.RoleProfitWalker
		if b, ok := tick.Bindings[pos.ID]; ok {
			role = b.Role
		}
		cat := domain.ClassifyEfficiency(profitPerLotFloat(pos), role)
		if cat != domain.EfficiencyPoor && cat != domain.EfficiencyTerrible {
			continue
		}
		// estimated freed margin proxies to notional exposure: volume*price.
		freed := pos.Volume.Mul(pos.CurrentPrice)
		cands = append(cands, candidate{pos, freed})
	}
	sort.Slice(cands, func(i, j int) bool {
		return cands[i].freedMargin.GreaterThan(cands[j].freedMargin)
	})
	if len(cands) > 3 {
		cands = cands[:3]
	}

	var out []domain.CloseAction
	for _, c := range cands {
		out = append(out, domain.CloseAction{
			Kind:            domain.CloseMarginOptimization,
			TargetIDs:       []string{c.pos.ID},
			ProjectedNetPnL: c.pos.PnL,
			Priority:        1,
			Reason:          "margin optimization: poor efficiency",
		})
	}
	return out
}

func profitPerLotFloat(p domain.Position) float64 {
	f, _ := p.ProfitPerLot().Float64()
	return f
}

// passE_VolumeBalance trims the oversupplied side down toward half the
// excess volume, provided the trimmed subset's cumulative P&L is no
// worse than -$10.
func (p *Planner) passE_VolumeBalance(tick domain.Tick, proposed map[string]struct{}) []domain.CloseAction {
	if tick.Stats.Imbalance <= p.cfg.BalanceTolerance {
		return nil
	}

	buyF, _ := tick.Stats.BuyVolume.Float64()
	sellF, _ := tick.Stats.SellVolume.Float64()
	var oversuppliedSide domain.Side
	excess := 0.0
	if buyF > sellF {
		oversuppliedSide = domain.SideBuy
		excess = buyF - sellF
	} else {
		oversuppliedSide = domain.SideSell
		excess = sellF - buyF
	}
	target := excess / 2

	var candidates []domain.Position
	for _, pos := range tick.Positions {
		if _, skip := proposed[pos.ID]; skip {
			continue
		}
		if pos.Side == oversuppliedSide {
			candidates = append(candidates, pos)
		}
	}
	// close-priority ranking: smallest P&L magnitude first (cheapest to
	// give up), matching the teacher's close-priority convention used
	// for forced de-risking closes.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].PnL.Abs().LessThan(candidates[j].PnL.Abs())
	})

	var ids []string
	cumVol := decimal.Zero
	cumPnL := decimal.Zero
	for _, pos := range candidates {
		ids = append(ids, pos.ID)
		cumVol = cumVol.Add(pos.Volume)
		cumPnL = cumPnL.Add(pos.PnL)
		if toFloat(cumVol) >= target {
			break
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if cumPnL.LessThan(decimal.NewFromFloat(-10)) {
		return nil
	}

	return []domain.CloseAction{{
		Kind:            domain.CloseVolumeBalance,
		TargetIDs:       ids,
		ProjectedNetPnL: cumPnL,
		Priority:        2,
		Reason:          "volume balance trim",
	}}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
