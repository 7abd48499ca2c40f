// Package closeplan implements the ClosePlanner (C5): five ordered
// passes over the open position set, each emitting CloseActions.
// Grounded on the teacher's internal/autopilot/dynamic_sltp.go for the
// dynamic-target-as-config-struct shape and internal/autopilot/hedging.go
// for multi-position pairing search over a capped candidate set.
package closeplan

import (
	"sort"

	"github.com/shopspring/decimal"

	"goldcore/internal/domain"
	"goldcore/internal/role"
)

// Config holds ClosePlanner thresholds; DefaultConfig supplies the
// spec §4.5 values.
type Config struct {
	MomentumProfit    decimal.Decimal // $8
	StandardProfit    decimal.Decimal // $2
	MicroProfit       decimal.Decimal // $0.5
	RecoveryMinLoss   decimal.Decimal // -$10 trigger for pass C candidates
	RecoveryMinProfit decimal.Decimal // $2 trigger for pass C candidates
	MarginLevelFloor  float64         // 300
	BalanceTolerance  float64         // 0.35
	MaxActions        int             // 10
}

// DefaultConfig returns the values named in spec §4.5.
func DefaultConfig() Config {
	return Config{
		MomentumProfit:    decimal.NewFromFloat(8),
		StandardProfit:    decimal.NewFromFloat(2),
		MicroProfit:       decimal.NewFromFloat(0.5),
		RecoveryMinLoss:   decimal.NewFromFloat(-10),
		RecoveryMinProfit: decimal.NewFromFloat(2),
		MarginLevelFloor:  300,
		BalanceTolerance:  0.35,
		MaxActions:        10,
	}
}

// Planner is the ClosePlanner. It is stateless across ticks — every
// Plan call reads a frozen Tick and returns a fresh proposal list.
type Planner struct {
	cfg Config
}

// New builds a Planner.
func New(cfg Config) *Planner {
	return &Planner{cfg: cfg}
}

// Plan runs passes A-E in order against the given tick and the role
// binding for each position, returning at most cfg.MaxActions
// CloseActions sorted by (priority asc, pass order).
func (p *Planner) Plan(tick domain.Tick) []domain.CloseAction {
	proposed := map[string]struct{}{} // disjointness guard across passes
	var actions []domain.CloseAction

	byID := make(map[string]domain.Position, len(tick.Positions))
	for _, pos := range tick.Positions {
		byID[pos.ID] = pos
	}

	for _, pass := range []func(domain.Tick, map[string]struct{}) []domain.CloseAction{
		p.passA_RoleBased,
		p.passB_MultiLevelProfit,
		p.passC_CapitalRecovery,
		p.passD_MarginOptimization,
		p.passE_VolumeBalance,
	} {
		for _, a := range pass(tick, proposed) {
			for _, id := range a.TargetIDs {
				proposed[id] = struct{}{}
			}
			actions = append(actions, a)
		}
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Priority < actions[j].Priority
	})
	if len(actions) > p.cfg.MaxActions {
		actions = actions[:p.cfg.MaxActions]
	}
	return actions
}

// passA_RoleBased asks each position's role profile close rubric.
func (p *Planner) passA_RoleBased(tick domain.Tick, proposed map[string]struct{}) []domain.CloseAction {
	var out []domain.CloseAction
	for _, pos := range tick.Positions {
		if _, skip := proposed[pos.ID]; skip {
			continue
		}
		binding, ok := tick.Bindings[pos.ID]
		if !ok {
			continue
		}
		prof := role.ProfileFor(binding.Role)
		verdict := role.CloseDecision(prof, pos.PnL, pos.AgeHours(tick.Now))
		if !verdict.ShouldClose {
			continue
		}
		out = append(out, domain.CloseAction{
			Kind:            domain.CloseRoleBased,
			TargetIDs:       []string{pos.ID},
			ProjectedNetPnL: pos.PnL,
			Priority:        verdict.Priority,
			Reason:          verdict.Reason,
		})
	}
	return out
}

// dynamicProfitTarget implements spec §4.5 Pass B's formula.
func dynamicProfitTarget(role domain.Role, volume float64, mode domain.Mode) decimal.Decimal {
	roleBase := map[domain.Role]float64{
		domain.RoleHedgeGuard:     4.0,
		domain.RoleProfitWalker:   2.5,
		domain.RoleRecoveryHunter: 1.0,
		domain.RoleScalpCapture:   0.5,
	}[role]
	if roleBase == 0 {
		roleBase = 2.5
	}
	volumeMult := clip(0.8+2*volume, 0, 1.5)
	modeMult := map[domain.Mode]float64{
		domain.ModeNormal:       1.0,
		domain.ModeConservative: 0.7,
		domain.ModeEmergency:    0.5,
		domain.ModeRecovery:     0.8,
	}[mode]
	if modeMult == 0 {
		modeMult = 1.0
	}
	target := roleBase * volumeMult * modeMult
	if target < 0.5 {
		target = 0.5
	}
	return decimal.NewFromFloat(target)
}

// passB_MultiLevelProfit implements the three profit bands.
func (p *Planner) passB_MultiLevelProfit(tick domain.Tick, proposed map[string]struct{}) []domain.CloseAction {
	var out []domain.CloseAction
	degraded := tick.Capital.Mode == domain.ModeConservative || tick.Capital.Mode == domain.ModeEmergency
	for _, pos := range tick.Positions {
		if _, skip := proposed[pos.ID]; skip {
			continue
		}
		switch {
		case pos.PnL.GreaterThanOrEqual(p.cfg.MomentumProfit):
			out = append(out, domain.CloseAction{
				Kind: domain.CloseMultiLevelProfit, TargetIDs: []string{pos.ID},
				ProjectedNetPnL: pos.PnL, Priority: 1, Reason: "momentum band",
			})
		case pos.PnL.GreaterThanOrEqual(p.cfg.StandardProfit):
			if degraded {
				out = append(out, domain.CloseAction{
					Kind: domain.CloseMultiLevelProfit, TargetIDs: []string{pos.ID},
					ProjectedNetPnL: pos.PnL, Priority: 2, Reason: "standard band, degraded mode",
				})
				continue
			}
			out = append(out, domain.CloseAction{
				Kind: domain.CloseMultiLevelProfit, TargetIDs: []string{pos.ID},
				ProjectedNetPnL: pos.PnL, Priority: 2, Reason: "standard band",
			})
		case pos.PnL.GreaterThanOrEqual(p.cfg.MicroProfit):
			binding, ok := tick.Bindings[pos.ID]
			role_ := domain.RoleProfitWalker
			if ok {
				role_ = binding.Role
			}
			volF, _ := pos.Volume.Float64()
			target := dynamicProfitTarget(role_, volF, tick.Capital.Mode)
			age := pos.AgeHours(tick.Now)
			eligible := role_ == domain.RoleScalpCapture ||
				(degraded && pos.PnL.GreaterThanOrEqual(target.Mul(decimal.NewFromFloat(0.8)))) ||
				(age >= 24 && pos.PnL.GreaterThanOrEqual(decimal.NewFromFloat(0.8)))
			if eligible {
				out = append(out, domain.CloseAction{
					Kind: domain.CloseMultiLevelProfit, TargetIDs: []string{pos.ID},
					ProjectedNetPnL: pos.PnL, Priority: 2, Reason: "micro band",
				})
			}
		}
	}
	return out
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
