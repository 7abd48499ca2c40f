package lotsize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"goldcore/internal/domain"
)

func baseInput() Input {
	return Input{
		Zone:           domain.ZoneGrowth,
		Role:           domain.RoleProfitWalker,
		Mode:           domain.ModeNormal,
		Strength:       0.8,
		TrendStrength:  0.6,
		BalanceFactor:  1.0,
		RecentRangePts: 0.7,
		Efficiency:     1.0,
		DrawdownPct:    5,
		CurrentEquity:  decimal.NewFromInt(5000),
	}
}

func TestCompute_WithinZoneBounds(t *testing.T) {
	lot := Compute(baseInput())
	f, _ := lot.Float64()
	assert.GreaterOrEqual(t, f, globalFloor)
	assert.LessOrEqual(t, f, 0.10) // growth zone_max
}

func TestCompute_EmergencyModeHalvesZoneMax(t *testing.T) {
	in := baseInput()
	in.Mode = domain.ModeEmergency
	in.Zone = domain.ZoneAggressive
	lot := Compute(in)
	f, _ := lot.Float64()
	assert.LessOrEqual(t, f, 0.10) // 0.5 * zone_max(0.20)
}

func TestCompute_LowEquityClampsToFloor(t *testing.T) {
	in := baseInput()
	in.CurrentEquity = decimal.NewFromInt(500)
	lot := Compute(in)
	f, _ := lot.Float64()
	assert.Equal(t, globalFloor, f)
}

func TestCompute_UnknownZoneFallsBack(t *testing.T) {
	in := baseInput()
	in.Zone = domain.Zone("bogus")
	in.Role = domain.RoleRecoveryHunter
	lot := Compute(in)
	f, _ := lot.Float64()
	assert.Equal(t, 0.03, f)
}

func TestMovementMultiplier_Bounds(t *testing.T) {
	assert.Equal(t, 0.8, movementMultiplier(0.1))
	assert.Equal(t, 1.6, movementMultiplier(3.0))
	mid := movementMultiplier(1.325) // midpoint
	assert.InDelta(t, 1.2, mid, 0.01)
}

func TestRecoveryBoost_OnlyInRecoveryMode(t *testing.T) {
	assert.Equal(t, 1.0, recoveryBoostMultiplier(domain.ModeNormal, 0.9, 20))
	assert.Equal(t, 1.6, recoveryBoostMultiplier(domain.ModeRecovery, 0.85, 16))
}
