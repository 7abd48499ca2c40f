package role

import "github.com/shopspring/decimal"

// CloseVerdict is the RoleRegistry's role-based close rubric result
// for one position, consumed by ClosePlanner Pass A.
type CloseVerdict struct {
	ShouldClose bool
	Priority    int
	Reason      string
}

// CloseDecision implements SPEC_FULL.md §4.5 Pass A: profit-to-close
// first, then loss-tolerance breach, then max-age, else hold.
func CloseDecision(p Profile, pnl decimal.Decimal, ageHours float64) CloseVerdict {
	if pnl.GreaterThanOrEqual(p.MinProfitToClose) {
		return CloseVerdict{true, 2, "role profit target reached"}
	}
	if pnl.LessThanOrEqual(p.LossTolerance) {
		return CloseVerdict{true, 1, "role loss tolerance breached"}
	}
	if ageHours >= p.MaxAge {
		return CloseVerdict{true, 3, "role max age reached"}
	}
	return CloseVerdict{false, 0, ""}
}
