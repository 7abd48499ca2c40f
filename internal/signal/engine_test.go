package signal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldcore/internal/domain"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func mkCandle(base time.Time, offset time.Duration, open, close, high, low float64) domain.Candle {
	return domain.Candle{
		OpenTime: base.Add(offset),
		Open:     decimal.NewFromFloat(open),
		Close:    decimal.NewFromFloat(close),
		High:     decimal.NewFromFloat(high),
		Low:      decimal.NewFromFloat(low),
		Volume:   decimal.NewFromInt(10),
	}
}

func baseTick(now time.Time, candles []domain.Candle) domain.Tick {
	return domain.Tick{
		Now: now,
		Capital: domain.CapitalContext{
			Mode:        domain.ModeNormal,
			DrawdownPct: decimal.NewFromInt(5),
			Efficiency:  decimal.NewFromFloat(1.0),
		},
		Stats: domain.PortfolioStats{
			BuyVolume:  decimal.NewFromInt(1),
			SellVolume: decimal.NewFromInt(1),
		},
		Candles: candles,
		Session: domain.SessionInfo{ActivityScore: 1.0, HighVolatility: true},
	}
}

func TestEvaluate_ThreeGreenCandlesProducesBuy(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	candles := []domain.Candle{
		mkCandle(now, -2*time.Minute, 2000.0, 2002.5, 2003.0, 1999.5),
		mkCandle(now, -1*time.Minute, 2002.5, 2005.0, 2005.5, 2002.0),
		mkCandle(now, 0, 2005.0, 2007.5, 2008.0, 2004.5),
	}
	e := New(DefaultConfig(), fixedClock{now})
	sig := e.Evaluate(baseTick(now, candles))
	require.Equal(t, domain.ActionBuy, sig.Action)
	assert.Greater(t, sig.Strength, 0.0)
	assert.Equal(t, "GREEN_3_of_3", sig.Pattern)
}

func TestEvaluate_InsufficientCandlesWaits(t *testing.T) {
	now := time.Now()
	e := New(DefaultConfig(), fixedClock{now})
	sig := e.Evaluate(baseTick(now, nil))
	assert.Equal(t, domain.ActionWait, sig.Action)
}

func TestEvaluate_FingerprintGuardRejectsRepeat(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	candles := []domain.Candle{
		mkCandle(now, -2*time.Minute, 2000.0, 2002.5, 2003.0, 1999.5),
		mkCandle(now, -1*time.Minute, 2002.5, 2005.0, 2005.5, 2002.0),
		mkCandle(now, 0, 2005.0, 2007.5, 2008.0, 2004.5),
	}
	cfg := DefaultConfig()
	cfg.CooldownSeconds = 0 // keep the rate limiter from rejecting first
	e := New(cfg, fixedClock{now})
	first := e.Evaluate(baseTick(now, candles))
	require.Equal(t, domain.ActionBuy, first.Action)

	second := e.Evaluate(baseTick(now.Add(time.Minute), candles))
	assert.Equal(t, domain.ActionWait, second.Action)
	assert.Equal(t, []string{"stale fingerprint"}, second.Reasoning)
}

func TestEvaluate_EmergencyModeRequiresHighStrength(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	candles := []domain.Candle{
		mkCandle(now, -2*time.Minute, 2000.0, 2001.0, 2001.2, 1999.9),
		mkCandle(now, -1*time.Minute, 2001.0, 2002.0, 2002.2, 2000.9),
		mkCandle(now, 0, 2002.0, 2003.0, 2003.2, 2001.9),
	}
	tick := baseTick(now, candles)
	tick.Capital.Mode = domain.ModeEmergency
	tick.Capital.DrawdownPct = decimal.NewFromInt(26)
	e := New(DefaultConfig(), fixedClock{now})
	sig := e.Evaluate(tick)
	assert.Equal(t, domain.ActionWait, sig.Action)
}

func TestRecommendZone_EmergencyAlwaysSafe(t *testing.T) {
	assert.Equal(t, domain.ZoneSafe, recommendZone(domain.ModeEmergency, 0.95))
}

func TestQualityScore_WithinBounds(t *testing.T) {
	sig := domain.Signal{Strength: 0.8, TrendStrength: 0.7, BalanceFactor: 1.0}
	cap := domain.CapitalContext{Efficiency: decimal.NewFromFloat(1.1), DrawdownPct: decimal.NewFromInt(5)}
	q := qualityScore(sig, cap)
	assert.Greater(t, q, 0.0)
	assert.Less(t, q, 1.5)
}
