package capital

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldcore/internal/domain"
)

func TestNew_RejectsZeroCapital(t *testing.T) {
	_, err := New(Config{InitialCapital: decimal.Zero})
	require.Error(t, err)
}

func TestUpdate_ZonesSumToEquity(t *testing.T) {
	tr, err := New(Config{InitialCapital: decimal.NewFromInt(5000)})
	require.NoError(t, err)

	ctx := tr.Update(&domain.AccountSnapshot{Equity: decimal.NewFromInt(4321)}, time.Now())
	sum := ctx.SafeBudget.Add(ctx.GrowthBudget).Add(ctx.AggressiveBudget)
	assert.True(t, sum.Equal(ctx.CurrentEquity), "zones must sum exactly to equity, got %s vs %s", sum, ctx.CurrentEquity)
}

func TestUpdate_NilSnapshotGoesOffline(t *testing.T) {
	tr, _ := New(Config{InitialCapital: decimal.NewFromInt(5000)})
	tr.Update(&domain.AccountSnapshot{Equity: decimal.NewFromInt(5000)}, time.Now())
	ctx := tr.Update(nil, time.Now())
	assert.Equal(t, domain.ModeOffline, ctx.Mode)
}

func TestDeriveMode_EmergencyAndConservativeThresholds(t *testing.T) {
	assert.Equal(t, domain.ModeEmergency, deriveMode(domain.ModeNormal, 26, decimal.NewFromInt(740), decimal.NewFromInt(1000)))
	assert.Equal(t, domain.ModeConservative, deriveMode(domain.ModeNormal, 21, decimal.NewFromInt(790), decimal.NewFromInt(1000)))
	assert.Equal(t, domain.ModeNormal, deriveMode(domain.ModeNormal, 5, decimal.NewFromInt(950), decimal.NewFromInt(1000)))
}

func TestDeriveMode_RecoveryRequiresPriorDistress(t *testing.T) {
	mode := deriveMode(domain.ModeEmergency, 3, decimal.NewFromInt(960), decimal.NewFromInt(1000))
	assert.Equal(t, domain.ModeRecovery, mode)

	mode = deriveMode(domain.ModeNormal, 3, decimal.NewFromInt(970), decimal.NewFromInt(1000))
	assert.Equal(t, domain.ModeNormal, mode, "recovery must not trigger without a prior distressed mode")
}

func TestDeriveMode_RecoveryLastsOnlyOneTick(t *testing.T) {
	mode := deriveMode(domain.ModeRecovery, 18, decimal.NewFromInt(820), decimal.NewFromInt(1000))
	assert.Equal(t, domain.ModeNormal, mode, "recovery must fall through to normal the tick after entering unless re-triggered by a fresh Conservative/Emergency exit")
}
