package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upasthit/attendance-api/internal/models"
	appErrors "github.com/upasthit/attendance-api/pkg/errors"
)

func testSession(frequency models.SessionFrequency) *models.Session {
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	return &models.Session{
		ID:        "sess-1",
		Frequency: frequency,
		StartDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &end,
		StartTime: "10:00",
		EndTime:   "11:00",
	}
}

func TestResolverOneTime(t *testing.T) {
	clock := NewLocalClock(330, fixedNow(time.Date(2026, 8, 1, 4, 0, 0, 0, time.UTC)))
	session := testSession(models.FrequencyOneTime)

	occ, err := ScheduleResolver{}.Occurrence(session, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), clock)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), occ.Date)
	assert.True(t, occ.Start.Equal(time.Date(2026, 8, 1, 4, 30, 0, 0, time.UTC)))
	assert.True(t, occ.End.Equal(time.Date(2026, 8, 1, 5, 30, 0, 0, time.UTC)))

	_, err = ScheduleResolver{}.Occurrence(session, time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC), clock)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotScheduledToday))
}

func TestResolverDailyRange(t *testing.T) {
	clock := NewLocalClock(330, nil)
	session := testSession(models.FrequencyDaily)

	cases := []struct {
		name string
		date time.Time
		want bool
	}{
		{"inside range", time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), true},
		{"first day", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), true},
		{"end date inclusive", time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"before start", time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), false},
		{"after end", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			occ, err := ScheduleResolver{}.Occurrence(session, tc.date, clock)
			if tc.want {
				require.NoError(t, err)
				assert.Equal(t, tc.date, occ.Date)
			} else {
				assert.True(t, appErrors.Is(err, appErrors.ErrNotScheduledToday))
			}
		})
	}
}

func TestResolverOpenEnded(t *testing.T) {
	clock := NewLocalClock(330, nil)
	session := testSession(models.FrequencyDaily)
	session.EndDate = nil

	// Years past the start date still match when no end date is set.
	occ, err := ScheduleResolver{}.Occurrence(session, time.Date(2031, 5, 14, 0, 0, 0, 0, time.UTC), clock)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2031, 5, 14, 0, 0, 0, 0, time.UTC), occ.Date)
}

func TestResolverFutureStartNeverMatches(t *testing.T) {
	clock := NewLocalClock(330, nil)
	session := testSession(models.FrequencyDaily)
	session.StartDate = time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	session.EndDate = nil

	_, err := ScheduleResolver{}.Occurrence(session, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), clock)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotScheduledToday))
}

func TestResolverWeekly(t *testing.T) {
	clock := NewLocalClock(330, nil)
	session := testSession(models.FrequencyWeekly)
	session.WeeklyDays = []string{"MONDAY", "WEDNESDAY"}

	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	tuesday := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	wednesday := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	_, err := ScheduleResolver{}.Occurrence(session, monday, clock)
	assert.NoError(t, err)

	_, err = ScheduleResolver{}.Occurrence(session, tuesday, clock)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotScheduledToday))

	occ, err := ScheduleResolver{}.Occurrence(session, wednesday, clock)
	require.NoError(t, err)
	assert.Equal(t, wednesday, occ.Date)
}

func TestResolverWeeklyCaseAndSpacing(t *testing.T) {
	clock := NewLocalClock(330, nil)
	session := testSession(models.FrequencyWeekly)
	session.WeeklyDays = []string{" monday "}

	_, err := ScheduleResolver{}.Occurrence(session, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), clock)
	assert.NoError(t, err)
}

func TestResolverMonthlyUsesRangeOnly(t *testing.T) {
	clock := NewLocalClock(330, nil)
	session := testSession(models.FrequencyMonthly)

	// Monthly sessions match any in-range day, same as daily.
	_, err := ScheduleResolver{}.Occurrence(session, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), clock)
	assert.NoError(t, err)
}

func TestResolverOvernightSession(t *testing.T) {
	clock := NewLocalClock(0, nil)
	session := testSession(models.FrequencyDaily)
	session.StartTime = "22:00"
	session.EndTime = "01:00"

	occ, err := ScheduleResolver{}.Occurrence(session, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), clock)
	require.NoError(t, err)
	assert.True(t, occ.End.After(occ.Start))
	assert.Equal(t, 27, occ.End.Day())
}

func TestResolverBadStoredTime(t *testing.T) {
	clock := NewLocalClock(330, nil)
	session := testSession(models.FrequencyDaily)
	session.StartTime = "ten o'clock"

	_, err := ScheduleResolver{}.Occurrence(session, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), clock)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}
