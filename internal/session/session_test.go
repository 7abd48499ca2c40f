package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func TestClassify_MorningSessionIsHighVolatility(t *testing.T) {
	c := Classify(time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC))
	assert.True(t, c.HighVolatility)
	assert.Equal(t, 1.0, c.ActivityScore)
}

func TestClassify_MidAfternoonIsModerate(t *testing.T) {
	c := Classify(time.Date(2026, 7, 29, 15, 0, 0, 0, time.UTC))
	assert.False(t, c.HighVolatility)
	assert.Equal(t, 0.7, c.ActivityScore)
}

func TestRateLimiter_CooldownBlocksImmediateRepeat(t *testing.T) {
	clock := fixedClock{time.Date(2026, 7, 29, 9, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(clock, 45*time.Second, 50)
	assert.True(t, rl.Allow())
	rl.Record()
	assert.False(t, rl.Allow())
}

func TestRateLimiter_HourlyCapRejectsBeyondMax(t *testing.T) {
	now := time.Date(2026, 7, 29, 9, 0, 0, 0, time.UTC)
	clock := &mutableClock{t: now}
	rl := NewRateLimiter(clock, 0, 2)
	assert.True(t, rl.Allow())
	rl.Record()
	clock.t = clock.t.Add(time.Second)
	assert.True(t, rl.Allow())
	rl.Record()
	clock.t = clock.t.Add(time.Second)
	assert.False(t, rl.Allow())
}

func TestRateLimiter_PruneDropsEntriesOlderThanAnHour(t *testing.T) {
	now := time.Date(2026, 7, 29, 9, 0, 0, 0, time.UTC)
	clock := &mutableClock{t: now}
	rl := NewRateLimiter(clock, 0, 1)
	rl.Record()
	assert.Equal(t, 1, rl.CountLastHour())
	clock.t = clock.t.Add(61 * time.Minute)
	assert.Equal(t, 0, rl.CountLastHour())
	assert.True(t, rl.Allow())
}

type mutableClock struct{ t time.Time }

func (m *mutableClock) Now() time.Time { return m.t }
