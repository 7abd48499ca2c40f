package role

import (
	"goldcore/internal/domain"
)

// ScoreInput carries the features the scoring rubric reads, built
// fresh from the tick snapshot by the caller (never stored).
type ScoreInput struct {
	DrawdownPct     float64
	Imbalance       float64
	LosingCount     int
	SignalStrength  float64
	Volume          float64
	Zone            domain.Zone
	HighVolatility  bool
	RoleCounts      map[domain.Role]int
	TotalPositions  int
}

// Score computes the additive scoring rubric from SPEC_FULL.md §4.2
// for every role, applies the balance correction, and returns the map
// of non-negative scores (clipped to >=0).
func Score(in ScoreInput) map[domain.Role]float64 {
	scores := map[domain.Role]float64{}

	hg := 0.0
	if in.DrawdownPct > 15 {
		hg += 0.4
	}
	if in.Imbalance > 0.6 {
		hg += 0.3
	}
	if in.LosingCount > 10 {
		hg += 0.3
	}
	if in.Volume <= 0.05 {
		hg += 0.2
	}
	scores[domain.RoleHedgeGuard] = hg

	pw := 0.5
	if in.SignalStrength >= 0.6 && in.SignalStrength <= 0.8 {
		pw += 0.3
	}
	if in.Zone == domain.ZoneSafe || in.Zone == domain.ZoneGrowth {
		pw += 0.2
	}
	if in.DrawdownPct < 10 {
		pw += 0.2
	}
	scores[domain.RoleProfitWalker] = pw

	rh := 0.0
	if in.DrawdownPct > 20 {
		rh += 0.5
	}
	if in.LosingCount > 15 {
		rh += 0.3
	}
	if in.SignalStrength > 0.8 {
		rh += 0.3
	}
	if in.Zone == domain.ZoneAggressive {
		rh += 0.2
	}
	scores[domain.RoleRecoveryHunter] = rh

	sc := 0.0
	if in.SignalStrength > 0.7 {
		sc += 0.4
	}
	if in.Volume <= 0.08 {
		sc += 0.2
	}
	if in.DrawdownPct < 5 {
		sc += 0.2
	}
	if in.HighVolatility {
		sc += 0.3
	}
	scores[domain.RoleScalpCapture] = sc

	applyBalanceCorrection(scores, in.RoleCounts, in.TotalPositions)

	for r, s := range scores {
		if s < 0 {
			scores[r] = 0
		}
	}
	return scores
}

// applyBalanceCorrection nudges scores toward the soft role quota:
// +0.3 when a role is under-represented by more than 20% of its
// target, -0.3 when over-represented by more than 20%.
func applyBalanceCorrection(scores map[domain.Role]float64, counts map[domain.Role]int, total int) {
	if total == 0 {
		return
	}
	for _, r := range AllRoles {
		target := Quota[r]
		currentPct := float64(counts[r]) / float64(total)
		delta := currentPct - target
		switch {
		case delta < -0.2*target:
			scores[r] += 0.3
		case delta > 0.2*target:
			scores[r] -= 0.3
		}
	}
}

// Argmax picks the role with the highest score, breaking ties by
// AllRoles order for determinism.
func Argmax(scores map[domain.Role]float64) domain.Role {
	best := domain.RoleProfitWalker
	bestScore := -1.0
	for _, r := range AllRoles {
		if s := scores[r]; s > bestScore {
			bestScore = s
			best = r
		}
	}
	return best
}

// EvolutionCandidate is one row of the PositionLocal transition table
// evaluated against a single bound position.
type EvolutionCandidate struct {
	PositionID string
	From       domain.Role
	To         domain.Role
	Reason     string
}

// PositionLocal is the per-position feature set the evolution table reads.
type PositionLocal struct {
	PositionID string
	Role       domain.Role
	ProfitUSD  float64
	AgeHours   float64
	Volume     float64
}

// Evolve evaluates SPEC_FULL.md §4.2's transition table for one
// position and returns the suggested transition, or nil when no rule
// fires. Transitions are suggestions; the caller (RoleRegistry.Apply)
// decides whether to commit them.
func Evolve(p PositionLocal) *EvolutionCandidate {
	switch p.Role {
	case domain.RoleHedgeGuard:
		if p.ProfitUSD > 3 && p.AgeHours > 4 {
			return &EvolutionCandidate{p.PositionID, p.Role, domain.RoleProfitWalker, "profit>3 and age>4h"}
		}
		if p.ProfitUSD >= 0.5 && p.ProfitUSD <= 2 && p.AgeHours > 12 {
			return &EvolutionCandidate{p.PositionID, p.Role, domain.RoleScalpCapture, "0.5<=profit<=2 and age>12h"}
		}
	case domain.RoleProfitWalker:
		if p.ProfitUSD >= 1 && p.ProfitUSD <= 4 && p.AgeHours > 8 {
			return &EvolutionCandidate{p.PositionID, p.Role, domain.RoleScalpCapture, "1<=profit<=4 and age>8h"}
		}
		if p.ProfitUSD < -10 && p.AgeHours > 6 {
			return &EvolutionCandidate{p.PositionID, p.Role, domain.RoleHedgeGuard, "profit<-10 and age>6h"}
		}
		if p.ProfitUSD < -20 && p.Volume >= 0.05 {
			return &EvolutionCandidate{p.PositionID, p.Role, domain.RoleRecoveryHunter, "profit<-20 and volume>=0.05"}
		}
	case domain.RoleRecoveryHunter:
		if p.ProfitUSD > 2 {
			return &EvolutionCandidate{p.PositionID, p.Role, domain.RoleProfitWalker, "profit>2"}
		}
		if p.ProfitUSD >= 0 && p.ProfitUSD <= 1.5 && p.AgeHours > 4 {
			return &EvolutionCandidate{p.PositionID, p.Role, domain.RoleScalpCapture, "0<=profit<=1.5 and age>4h"}
		}
		if p.ProfitUSD < -30 && p.AgeHours > 8 {
			return &EvolutionCandidate{p.PositionID, p.Role, domain.RoleHedgeGuard, "profit<-30 and age>8h"}
		}
	case domain.RoleScalpCapture:
		if p.ProfitUSD > 5 {
			return &EvolutionCandidate{p.PositionID, p.Role, domain.RoleProfitWalker, "profit>5"}
		}
		if p.ProfitUSD < -8 {
			return &EvolutionCandidate{p.PositionID, p.Role, domain.RoleHedgeGuard, "profit<-8"}
		}
	}
	return nil
}
