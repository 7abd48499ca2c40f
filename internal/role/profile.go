// Package role implements the RoleRegistry (C2): assigns and evolves
// per-position behavioral roles. Role behavior is table-driven — a
// closed tagged variant (domain.Role) carrying a RoleProfile record —
// per the redesign flag in SPEC_FULL.md §9 against ad-hoc dynamic
// dispatch via role strings. Grounded on the id-keyed map + explicit
// purge pattern in the teacher's orders.PositionTracker.
package role

import (
	"github.com/shopspring/decimal"

	"goldcore/internal/domain"
)

// Profile is the behavior profile for one role, from the table in
// SPEC_FULL.md §4.2.
type Profile struct {
	Role             domain.Role
	MaxAge           float64 // hours
	MinProfitToClose decimal.Decimal
	LossTolerance    decimal.Decimal // negative
	PreferredLotMin  decimal.Decimal
	PreferredLotMax  decimal.Decimal
}

var profiles = map[domain.Role]Profile{
	domain.RoleHedgeGuard: {
		Role: domain.RoleHedgeGuard, MaxAge: 48,
		MinProfitToClose: decimal.NewFromFloat(5),
		LossTolerance:    decimal.NewFromFloat(-50),
		PreferredLotMin:  decimal.NewFromFloat(0.01),
		PreferredLotMax:  decimal.NewFromFloat(0.05),
	},
	domain.RoleProfitWalker: {
		Role: domain.RoleProfitWalker, MaxAge: 24,
		MinProfitToClose: decimal.NewFromFloat(3),
		LossTolerance:    decimal.NewFromFloat(-30),
		PreferredLotMin:  decimal.NewFromFloat(0.01),
		PreferredLotMax:  decimal.NewFromFloat(0.10),
	},
	domain.RoleRecoveryHunter: {
		Role: domain.RoleRecoveryHunter, MaxAge: 12,
		MinProfitToClose: decimal.NewFromFloat(1),
		LossTolerance:    decimal.NewFromFloat(-20),
		PreferredLotMin:  decimal.NewFromFloat(0.02),
		PreferredLotMax:  decimal.NewFromFloat(0.20),
	},
	domain.RoleScalpCapture: {
		Role: domain.RoleScalpCapture, MaxAge: 2,
		MinProfitToClose: decimal.NewFromFloat(0.5),
		LossTolerance:    decimal.NewFromFloat(-5),
		PreferredLotMin:  decimal.NewFromFloat(0.01),
		PreferredLotMax:  decimal.NewFromFloat(0.15),
	},
}

// ProfileFor returns the behavior profile for a role, defaulting to PW
// on an unknown role (matches SPEC_FULL.md §4.2's "default role is PW" failure rule).
func ProfileFor(r domain.Role) Profile {
	if p, ok := profiles[r]; ok {
		return p
	}
	return profiles[domain.RoleProfitWalker]
}

// Quota is the soft target share of open positions for each role.
var Quota = map[domain.Role]float64{
	domain.RoleHedgeGuard:     0.25,
	domain.RoleProfitWalker:   0.40,
	domain.RoleRecoveryHunter: 0.20,
	domain.RoleScalpCapture:   0.15,
}

// AllRoles lists the four closed role variants in a stable order.
var AllRoles = []domain.Role{
	domain.RoleHedgeGuard, domain.RoleProfitWalker, domain.RoleRecoveryHunter, domain.RoleScalpCapture,
}
