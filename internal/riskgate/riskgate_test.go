package riskgate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"goldcore/internal/domain"
)

func fixedNow() time.Time { return time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC) }

func baseReq() OrderRequest {
	return OrderRequest{
		Role:           domain.RoleProfitWalker,
		Zone:           domain.ZoneGrowth,
		Mode:           domain.ModeNormal,
		Lot:            decimal.NewFromFloat(0.05),
		EquityAtRisk:   decimal.NewFromFloat(100),
		CurrentEquity:  decimal.NewFromFloat(5000),
		MarginLevel:    500,
		RoleCounts:     map[domain.Role]int{},
		TotalPositions: 0,
	}
}

func TestAdmit_EmergencyStopHardRejects(t *testing.T) {
	g := New(DefaultConfig(), fixedNow)
	g.TripEmergencyStop()
	d := g.Admit(baseReq())
	assert.False(t, d.Admit)
}

func TestAdmit_MarginBelowThresholdRejects(t *testing.T) {
	g := New(DefaultConfig(), fixedNow)
	req := baseReq()
	req.MarginLevel = 80
	d := g.Admit(req)
	assert.False(t, d.Admit)
}

func TestAdmit_ConsecutiveLossesRejects(t *testing.T) {
	g := New(DefaultConfig(), fixedNow)
	for i := 0; i < 7; i++ {
		g.RecordTradeOutcome(decimal.NewFromFloat(-5), decimal.NewFromFloat(0.1))
	}
	d := g.Admit(baseReq())
	assert.False(t, d.Admit)
}

func TestAdmit_RoleCapFullReassignsToHeadroomRole(t *testing.T) {
	g := New(DefaultConfig(), fixedNow)
	req := baseReq()
	req.TotalPositions = 100
	req.RoleCounts = map[domain.Role]int{domain.RoleProfitWalker: 60} // over 45%+10%
	d := g.Admit(req)
	assert.True(t, d.Admit)
	assert.NotEqual(t, domain.RoleProfitWalker, d.Role)
}

func TestAdmit_LotNeverAdjustedUp(t *testing.T) {
	g := New(DefaultConfig(), fixedNow)
	req := baseReq()
	req.EquityAtRisk = decimal.NewFromFloat(10) // tiny risk, well under cap
	d := g.Admit(req)
	assert.True(t, d.Admit)
	assert.True(t, d.Lot.LessThanOrEqual(req.Lot))
}

func TestAdmit_HighRiskAdjustsLotDownward(t *testing.T) {
	g := New(DefaultConfig(), fixedNow)
	req := baseReq()
	req.EquityAtRisk = decimal.NewFromFloat(4000) // way over growth zone 1% risk cap
	d := g.Admit(req)
	assert.True(t, d.Admit)
	assert.True(t, d.Lot.LessThan(req.Lot))
}

func TestAdmit_LosingStreakDepressesConfidence(t *testing.T) {
	g := New(DefaultConfig(), fixedNow)
	clean := g.Admit(baseReq())

	g.RecordTradeOutcome(decimal.NewFromFloat(-5), decimal.NewFromFloat(0.1))
	g.RecordTradeOutcome(decimal.NewFromFloat(-5), decimal.NewFromFloat(0.1))
	streaked := g.Admit(baseReq())

	assert.True(t, streaked.Admit)
	assert.True(t, streaked.Confidence < clean.Confidence, "a losing streak must lower confidence via the warnings term")
}

func TestAdmit_WinResetsStreakConfidencePenalty(t *testing.T) {
	fresh := New(DefaultConfig(), fixedNow)
	baseline := fresh.Admit(baseReq())

	g := New(DefaultConfig(), fixedNow)
	g.RecordTradeOutcome(decimal.NewFromFloat(-5), decimal.NewFromFloat(0.1))
	g.RecordTradeOutcome(decimal.NewFromFloat(5), decimal.NewFromFloat(0.1))
	d := g.Admit(baseReq())

	assert.Equal(t, 1, g.streak)
	assert.InDelta(t, baseline.Confidence, d.Confidence, 1e-9, "a win must clear the losing-streak confidence penalty entirely")
}

func TestAdmit_RecoveryModeAddsBonusOnTopOfOverride(t *testing.T) {
	cfg := DefaultConfig()
	g := New(cfg, fixedNow)
	req := baseReq()
	req.Mode = domain.ModeRecovery
	// Between RecoveryRiskOverride alone (would scale the lot down) and
	// RecoveryRiskOverride+RecoveryRiskBonusPct (would not).
	req.EquityAtRisk = req.CurrentEquity.Mul(decimal.NewFromFloat(cfg.RecoveryRiskOverride * 1.2))
	d := g.Admit(req)
	assert.True(t, d.Admit)
	assert.True(t, d.Lot.Equal(req.Lot), "RecoveryRiskBonusPct must widen the recovery-mode risk cap beyond the override alone")
}
