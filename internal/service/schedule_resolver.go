package service

import (
	"strings"
	"time"

	"github.com/upasthit/attendance-api/internal/models"
	appErrors "github.com/upasthit/attendance-api/pkg/errors"
)

// ScheduleResolver decides whether a session occurs on a given local date and
// materialises that occurrence's start/end instants. It is pure: all time
// arithmetic goes through the caller's clock.
type ScheduleResolver struct{}

// Occurrence returns today's occurrence of the session or ErrNotScheduledToday.
// The date argument is a date-only marker in the organization's calendar.
func (ScheduleResolver) Occurrence(session *models.Session, date time.Time, clock *LocalClock) (*models.SessionOccurrence, error) {
	if !occursOn(session, date) {
		return nil, appErrors.ErrNotScheduledToday
	}

	occurrenceDate := date
	if session.Frequency == models.FrequencyOneTime {
		occurrenceDate = dateOnly(session.StartDate)
	}

	start, err := clock.At(occurrenceDate, session.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "session start time is invalid")
	}
	end, err := clock.At(occurrenceDate, session.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "session end time is invalid")
	}
	// Sessions crossing midnight end on the following day.
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}

	return &models.SessionOccurrence{Date: occurrenceDate, Start: start, End: end}, nil
}

func occursOn(session *models.Session, date time.Time) bool {
	start := dateOnly(session.StartDate)

	switch session.Frequency {
	case models.FrequencyOneTime:
		return sameDate(start, date)
	case models.FrequencyDaily, models.FrequencyMonthly:
		return inRange(session, date)
	case models.FrequencyWeekly:
		return inRange(session, date) && onWeekday(session.WeeklyDays, date)
	default:
		return false
	}
}

// inRange checks [startDate, endDate] inclusive on both ends; a nil endDate
// leaves the session open-ended.
func inRange(session *models.Session, date time.Time) bool {
	if date.Before(dateOnly(session.StartDate)) {
		return false
	}
	if session.EndDate != nil && date.After(dateOnly(*session.EndDate)) {
		return false
	}
	return true
}

func onWeekday(days []string, date time.Time) bool {
	weekday := strings.ToUpper(date.Weekday().String())
	for _, day := range days {
		if strings.ToUpper(strings.TrimSpace(day)) == weekday {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
