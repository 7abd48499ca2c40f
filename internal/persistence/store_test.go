package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldcore/internal/domain"
)

func TestRecordCapital_RingBufferEvictsOldestOnOverflow(t *testing.T) {
	s := NewMemory(3)
	for i := 0; i < 5; i++ {
		s.RecordCapital(domain.CapitalContext{
			CurrentEquity: decimal.NewFromInt(int64(1000 + i)),
			UpdatedAt:     time.Now().Add(time.Duration(i) * time.Second),
		})
	}
	hist := s.CapitalHistory()
	require.Len(t, hist, 3)
	assert.Equal(t, 1002.0, hist[0].CurrentEquity)
	assert.Equal(t, 1004.0, hist[2].CurrentEquity)
}

func TestRecordModeChange_SkipsNoOpTransition(t *testing.T) {
	s := NewMemory(10)
	s.RecordModeChange(time.Now(), domain.ModeNormal, domain.ModeNormal)
	assert.Empty(t, s.ModeChanges())

	s.RecordModeChange(time.Now(), domain.ModeNormal, domain.ModeConservative)
	require.Len(t, s.ModeChanges(), 1)
	assert.Equal(t, domain.ModeConservative, s.ModeChanges()[0].To)
}

func TestRecordRoleEvent_AppendsToHistory(t *testing.T) {
	s := NewMemory(10)
	s.RecordRoleEvent(RoleEvent{At: time.Now(), PositionID: "p1", From: domain.RoleHedgeGuard, To: domain.RoleProfitWalker, Reason: "profit>3 and age>4h"})
	require.Len(t, s.RoleHistory(), 1)
	assert.Equal(t, "p1", s.RoleHistory()[0].PositionID)
}

func TestOpen_PersistsCapitalHistoryAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goldcore.db")

	s1, err := Open(path, 100)
	require.NoError(t, err)
	s1.RecordCapital(domain.CapitalContext{CurrentEquity: decimal.NewFromInt(5000), UpdatedAt: time.Now()})
	require.NoError(t, s1.Close())

	s2, err := Open(path, 100)
	require.NoError(t, err)
	defer s2.Close()

	var count int
	row := s2.db.QueryRow(`SELECT COUNT(*) FROM capital_history`)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}
