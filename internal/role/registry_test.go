package role

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldcore/internal/domain"
)

func TestSync_IsIdempotentOnUnchangedSet(t *testing.T) {
	r := NewRegistry()
	r.OnNewPosition("p1", ScoreInput{}, time.Now())
	r.OnNewPosition("p2", ScoreInput{}, time.Now())

	r.Sync([]string{"p1", "p2"})
	r.Sync([]string{"p1", "p2"})

	assert.Len(t, r.All(), 2)
}

func TestSync_DropsBindingForClosedPosition(t *testing.T) {
	r := NewRegistry()
	r.OnNewPosition("p1", ScoreInput{}, time.Now())
	r.OnNewPosition("p2", ScoreInput{}, time.Now())

	r.Sync([]string{"p1"})

	_, ok := r.Binding("p2")
	assert.False(t, ok)
	_, ok = r.Binding("p1")
	assert.True(t, ok)
}

func TestOnNewPosition_BindsAssignedRoleAsOriginal(t *testing.T) {
	r := NewRegistry()
	role := r.OnNewPosition("p1", ScoreInput{DrawdownPct: 20}, time.Now())

	b, ok := r.Binding("p1")
	require.True(t, ok)
	assert.Equal(t, role, b.Role)
	assert.Equal(t, role, b.OriginalRole)
}

func TestEvaluateEvolutions_IgnoresUnknownPositionIDs(t *testing.T) {
	r := NewRegistry()
	candidates := r.EvaluateEvolutions([]PositionLocal{{PositionID: "ghost", ProfitUSD: 100, AgeHours: 100}})
	assert.Empty(t, candidates)
}

func TestEvaluateEvolutions_FindsRuleForBoundPosition(t *testing.T) {
	r := NewRegistry()
	r.OnNewPosition("p1", ScoreInput{DrawdownPct: 20}, time.Now())
	b, _ := r.Binding("p1")
	require.Equal(t, domain.RoleHedgeGuard, b.Role)

	candidates := r.EvaluateEvolutions([]PositionLocal{{PositionID: "p1", ProfitUSD: 5, AgeHours: 5}})
	require.Len(t, candidates, 1)
	assert.Equal(t, domain.RoleProfitWalker, candidates[0].To)
}

func TestApply_UnknownIDReturnsFalseAndLeavesNoTrace(t *testing.T) {
	r := NewRegistry()
	ok := r.Apply(EvolutionCandidate{PositionID: "ghost", From: domain.RoleHedgeGuard, To: domain.RoleProfitWalker}, time.Now())
	assert.False(t, ok)
}

func TestApply_CommitsRoleChangeAndAppendsHistory(t *testing.T) {
	r := NewRegistry()
	r.OnNewPosition("p1", ScoreInput{DrawdownPct: 20}, time.Now())

	ok := r.Apply(EvolutionCandidate{PositionID: "p1", From: domain.RoleHedgeGuard, To: domain.RoleProfitWalker, Reason: "profit>3 and age>4h"}, time.Now())
	require.True(t, ok)

	b, _ := r.Binding("p1")
	assert.Equal(t, domain.RoleProfitWalker, b.Role)
	require.Len(t, b.History, 1)
	assert.Equal(t, domain.RoleHedgeGuard, b.History[0].From)
}

func TestRoleCounts_TalliesCurrentBindingsByRole(t *testing.T) {
	r := NewRegistry()
	r.OnNewPosition("p1", ScoreInput{DrawdownPct: 20}, time.Now())
	r.OnNewPosition("p2", ScoreInput{DrawdownPct: 20}, time.Now())

	counts := r.RoleCounts()
	assert.Equal(t, 2, counts[domain.RoleHedgeGuard])
}
