package signal

import (
	"gonum.org/v1/gonum/stat"

	"goldcore/internal/domain"
)

// microTrend is the candidate direction detected from the last 3
// closed candles, SPEC_FULL.md §4.3 step 3.
type microTrend struct {
	action            domain.Action
	greenCount        int
	redCount          int
	currentColor      domain.Color
	currentBodyRatio  float64
	colorConsistency  float64
	avgBodyRatio      float64
	bodyRatioVariance float64
	totalRange        float64
}

// detectMicroTrend reads exactly the last 3 closed candles (callers
// pass candles[len-3:]).
func detectMicroTrend(candles []domain.Candle, minBodyRatio float64) (microTrend, bool) {
	if len(candles) != 3 {
		return microTrend{}, false
	}

	green, red := 0, 0
	ratios := make([]float64, 0, 3)
	totalRange := 0.0
	for _, c := range candles {
		if c.Color() == domain.ColorGreen {
			green++
		} else {
			red++
		}
		ratios = append(ratios, c.BodyRatio())
		r, _ := c.Range().Float64()
		totalRange += r
	}

	last := candles[len(candles)-1]
	currentColor := last.Color()
	currentBodyRatio := last.BodyRatio()

	if currentBodyRatio < minBodyRatio {
		return microTrend{}, false
	}

	action := domain.ActionWait
	switch {
	case green >= 2 && currentColor == domain.ColorGreen:
		action = domain.ActionBuy
	case red >= 2 && currentColor == domain.ColorRed:
		action = domain.ActionSell
	}

	matches := green
	if currentColor == domain.ColorRed {
		matches = red
	}

	avg := stat.Mean(ratios, nil)
	variance := 0.0
	if len(ratios) > 1 {
		variance = stat.Variance(ratios, nil)
	}

	return microTrend{
		action:            action,
		greenCount:        green,
		redCount:          red,
		currentColor:      currentColor,
		currentBodyRatio:  currentBodyRatio,
		colorConsistency:  float64(matches) / float64(len(candles)),
		avgBodyRatio:      avg,
		bodyRatioVariance: variance,
		totalRange:        totalRange,
	}, true
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// trendStrengthAndConfidence implements SPEC_FULL.md §4.3 step 4.
func trendStrengthAndConfidence(mt microTrend, matches int) (strength, confidence float64) {
	movementBonus := 0.0
	switch {
	case mt.totalRange > 2.0:
		movementBonus = 0.10
	case mt.totalRange > 1.0:
		movementBonus = 0.05
	}
	strength = 0.4 + 0.3*mt.colorConsistency + min(0.3, 2*mt.avgBodyRatio) + movementBonus
	strength = clip(strength, 0.3, 0.9)

	confidence = clip(0.6+0.2*float64(matches-2), 0, 0.9)
	return
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
