package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLocalClockToday(t *testing.T) {
	// 04:30 UTC is 10:00 in IST (+05:30).
	clock := NewLocalClock(330, fixedNow(time.Date(2026, 8, 26, 4, 30, 0, 0, time.UTC)))

	assert.Equal(t, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), clock.Today())
	assert.Equal(t, 10, clock.Now().Hour())
}

func TestLocalClockTodayCrossesDateLine(t *testing.T) {
	// 20:00 UTC is already the next calendar day at +05:30.
	east := NewLocalClock(330, fixedNow(time.Date(2026, 8, 26, 20, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), east.Today())

	// 02:00 UTC is still the previous day at -05:00.
	west := NewLocalClock(-300, fixedNow(time.Date(2026, 8, 26, 2, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), west.Today())
}

func TestLocalClockAt(t *testing.T) {
	clock := NewLocalClock(330, fixedNow(time.Date(2026, 8, 26, 4, 30, 0, 0, time.UTC)))
	date := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	at, err := clock.At(date, "09:30")
	require.NoError(t, err)
	assert.True(t, at.Equal(time.Date(2026, 8, 26, 4, 0, 0, 0, time.UTC)))

	_, err = clock.At(date, "late morning")
	assert.Error(t, err)
}

func TestLocalClockDayWindow(t *testing.T) {
	clock := NewLocalClock(330, fixedNow(time.Date(2026, 8, 26, 4, 30, 0, 0, time.UTC)))
	date := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	from, to := clock.DayWindow(date)
	assert.True(t, from.Equal(time.Date(2026, 8, 25, 18, 30, 0, 0, time.UTC)))
	assert.True(t, to.Equal(time.Date(2026, 8, 26, 18, 30, 0, 0, time.UTC)))
}

func TestSplitMinutes(t *testing.T) {
	minutes, seconds := SplitMinutes(95*time.Minute + 30*time.Second)
	assert.Equal(t, 95, minutes)
	assert.Equal(t, 30, seconds)

	minutes, seconds = SplitMinutes(2 * time.Minute)
	assert.Equal(t, 2, minutes)
	assert.Equal(t, 0, seconds)

	minutes, seconds = SplitMinutes(-time.Minute)
	assert.Equal(t, 0, minutes)
	assert.Equal(t, 0, seconds)
}
