// Package signal implements the SignalEngine (C3): produces one
// BUY/SELL/WAIT Signal per tick from the last 3 closed candles,
// modulated by portfolio state. Grounded on the teacher's
// internal/strategy + internal/patterns + internal/confluence trio —
// a pipeline of small scoring functions composed into one Evaluate
// call. A stage that rejects returns a Wait signal whose Reasoning
// holds that stage's reason; an accepted signal carries no Reasoning.
package signal

import (
	"time"

	"goldcore/internal/domain"
	"goldcore/internal/session"
)

// Config holds SignalEngine thresholds, all configurable per
// SPEC_FULL.md §6 smart_entry_rules / entry_filters / trading blocks.
type Config struct {
	CooldownSeconds       time.Duration
	MaxPerHour            int
	FingerprintCapacity   int
	MinBodyRatio          float64
	MinPriceChangePoints  float64
	MinSessionActivity    float64
}

// DefaultConfig returns the defaults named in SPEC_FULL.md §4.3.
func DefaultConfig() Config {
	return Config{
		CooldownSeconds:      45 * time.Second,
		MaxPerHour:           50,
		FingerprintCapacity:  100,
		MinBodyRatio:         0.03,
		MinPriceChangePoints: 0.15,
		MinSessionActivity:   0.3,
	}
}

// Engine is the SignalEngine. It owns the fingerprint LRU and the
// rate limiter; everything else it reads is passed in per call.
type Engine struct {
	cfg      Config
	fp       *fingerprintLRU
	limiter  *session.RateLimiter
}

// New builds an Engine. clock may be nil to use real time.
func New(cfg Config, clock session.Clock) *Engine {
	return &Engine{
		cfg:     cfg,
		fp:      newFingerprintLRU(cfg.FingerprintCapacity),
		limiter: session.NewRateLimiter(clock, cfg.CooldownSeconds, cfg.MaxPerHour),
	}
}

// Evaluate runs the full pipeline from SPEC_FULL.md §4.3 and returns a
// Signal — always non-nil; a rejected pipeline step returns a Wait
// signal with reasoning recorded.
func (e *Engine) Evaluate(tick domain.Tick) domain.Signal {
	now := tick.Now
	wait := func(reason string) domain.Signal {
		return domain.Signal{Action: domain.ActionWait, CreatedAt: now, Reasoning: []string{reason}}
	}

	// 1. Rate limits.
	if !e.limiter.Allow() {
		return wait("rate limited: cooldown or hourly cap")
	}

	if len(tick.Candles) < 3 {
		return wait("insufficient candles")
	}
	last3 := tick.Candles[len(tick.Candles)-3:]
	fingerprint := last3[len(last3)-1].OpenTime

	// 2. Fingerprint guard.
	if e.fp.Contains(fingerprint) {
		return wait("stale fingerprint")
	}

	// 3. Micro-trend detection.
	mt, ok := detectMicroTrend(last3, e.cfg.MinBodyRatio)
	if !ok || mt.action == domain.ActionWait {
		return wait("no micro-trend pattern")
	}

	matches := mt.greenCount
	if mt.action == domain.ActionSell {
		matches = mt.redCount
	}

	// 4. Trend strength & confidence.
	strengthRaw, confidence := trendStrengthAndConfidence(mt, matches)

	// 5. Capital modulation.
	strength := modulateByCapital(strengthRaw, tick.Capital)
	if rejectByMode(strength, tick.Capital.Mode) {
		return wait("strength below mode threshold")
	}

	// 6. Quality filters.
	last := last3[len(last3)-1]
	priceChange, _ := last.High.Sub(last.Low).Abs().Float64()
	if priceChange < e.cfg.MinPriceChangePoints {
		return wait("price movement filter")
	}
	if tick.Session.ActivityScore < e.cfg.MinSessionActivity {
		return wait("session activity filter")
	}

	// 7. Portfolio-balance adjustment.
	balanceFactor, strength := adjustForBalance(strength, mt.action, tick.Stats)

	// 8. Zone & role recommendation.
	zone := recommendZone(tick.Capital.Mode, strength)
	roleRec := recommendRole(tick.Capital, tick.Stats, strength, tick.Session.HighVolatility)

	pattern := patternLabel(mt)

	sig := domain.Signal{
		Action:            mt.action,
		Strength:          strength,
		Confidence:        confidence,
		Pattern:           pattern,
		TrendStrength:     strengthRaw,
		BalanceFactor:     balanceFactor,
		RecommendedZone:   zone,
		RecommendedRole:   roleRec,
		CandleFingerprint: fingerprint,
		CreatedAt:         now,
	}
	sig.QualityScore = qualityScore(sig, tick.Capital)

	// 10. Commit.
	e.fp.Record(fingerprint)
	e.limiter.Record()
	return sig
}

func modulateByCapital(strength float64, cap domain.CapitalContext) float64 {
	efficiencyF, _ := cap.Efficiency.Float64()
	efficiencyMult := clip(efficiencyF, 0.8, 1.2)

	modeMult := 1.0
	switch cap.Mode {
	case domain.ModeConservative:
		modeMult = 0.8
	case domain.ModeEmergency:
		modeMult = 0.6
	case domain.ModeRecovery:
		modeMult = 1.3
	}

	ddF, _ := cap.DrawdownPct.Float64()
	drawdownMult := 1.0
	switch {
	case ddF > 25:
		drawdownMult = 0.7
	case ddF > 15:
		drawdownMult = 0.85
	}

	return clip(strength*efficiencyMult*modeMult*drawdownMult, 0.1, 0.95)
}

func rejectByMode(strength float64, mode domain.Mode) bool {
	threshold := 0.4
	if mode == domain.ModeRecovery {
		threshold = 0.3
	}
	if strength < threshold {
		return true
	}
	if mode == domain.ModeEmergency && strength < 0.7 {
		return true
	}
	return false
}

func adjustForBalance(strength float64, action domain.Action, stats domain.PortfolioStats) (float64, float64) {
	buyVol, _ := stats.BuyVolume.Float64()
	sellVol, _ := stats.SellVolume.Float64()
	total := buyVol + sellVol
	b := 0.5
	if total > 0 {
		b = buyVol / total
	}

	factor := 1.0
	if action == domain.ActionBuy {
		switch {
		case b > 0.70:
			factor = 0.7
		case b < 0.30:
			factor = 1.4
		}
	} else if action == domain.ActionSell {
		s := 1 - b
		switch {
		case s > 0.70:
			factor = 0.7
		case s < 0.30:
			factor = 1.4
		}
	}
	return factor, clip(strength*factor, 0, 0.95)
}

func recommendZone(mode domain.Mode, strength float64) domain.Zone {
	switch mode {
	case domain.ModeEmergency:
		return domain.ZoneSafe
	case domain.ModeConservative:
		if strength >= 0.8 {
			return domain.ZoneGrowth
		}
		return domain.ZoneSafe
	case domain.ModeRecovery:
		switch {
		case strength >= 0.9:
			return domain.ZoneAggressive
		case strength >= 0.7:
			return domain.ZoneGrowth
		default:
			return domain.ZoneSafe
		}
	default: // Normal
		switch {
		case strength >= 0.85:
			return domain.ZoneAggressive
		case strength >= 0.6:
			return domain.ZoneGrowth
		default:
			return domain.ZoneSafe
		}
	}
}

func recommendRole(cap domain.CapitalContext, stats domain.PortfolioStats, strength float64, highVol bool) domain.Role {
	ddF, _ := cap.DrawdownPct.Float64()
	if ddF > 15 || stats.Imbalance > 0.65 {
		return domain.RoleHedgeGuard
	}
	if cap.Mode == domain.ModeRecovery || (ddF > 20 && strength > 0.7) {
		return domain.RoleRecoveryHunter
	}
	if strength > 0.8 && highVol && ddF < 10 {
		return domain.RoleScalpCapture
	}
	if strength >= 0.4 && strength <= 0.8 && (cap.Mode == domain.ModeNormal || cap.Mode == domain.ModeRecovery) {
		return domain.RoleProfitWalker
	}
	return domain.RoleProfitWalker
}

func patternLabel(mt microTrend) string {
	count := mt.greenCount
	color := "GREEN"
	if mt.currentColor == domain.ColorRed {
		count = mt.redCount
		color = "RED"
	}
	return colorCountLabel(color, count)
}

func colorCountLabel(color string, count int) string {
	switch count {
	case 3:
		return color + "_3_of_3"
	case 2:
		return color + "_2_of_3"
	default:
		return color + "_1_of_3"
	}
}

func qualityScore(sig domain.Signal, cap domain.CapitalContext) float64 {
	effF, _ := cap.Efficiency.Float64()
	ddF, _ := cap.DrawdownPct.Float64()
	term3 := effF - ddF/100
	if term3 < 0 {
		term3 = 0
	}
	term4 := sig.BalanceFactor / 2
	if term4 > 1 {
		term4 = 1
	}
	return 0.4*sig.Strength + 0.3*sig.TrendStrength + 0.2*term3 + 0.1*term4
}
