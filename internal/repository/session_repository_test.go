package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upasthit/attendance-api/internal/models"
)

func sessionColumns() []string {
	return []string{"id", "org_id", "title", "session_type", "frequency", "start_date", "end_date",
		"start_time", "end_time", "weekly_days", "latitude", "longitude", "location_link", "legacy_location",
		"geofence", "radius_meters", "city", "state", "active", "created_at", "updated_at"}
}

func TestSessionFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(sessionColumns()).
		AddRow("s1", "org-1", "Morning Standup", string(models.SessionTypePhysical), string(models.FrequencyWeekly),
			now, nil, "09:00", "10:00", "{MONDAY,WEDNESDAY}", 12.9716, 77.5946, nil, nil,
			[]byte(`[{"latitude":12.97,"longitude":77.59},{"latitude":12.98,"longitude":77.59},{"latitude":12.98,"longitude":77.60}]`),
			100.0, "Bengaluru", "Karnataka", true, now, now)
	mock.ExpectQuery("SELECT id, org_id, title, session_type, frequency").
		WithArgs("s1").
		WillReturnRows(rows)

	session, err := repo.FindByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionTypePhysical, session.SessionType)
	assert.Equal(t, models.FrequencyWeekly, session.Frequency)
	assert.Equal(t, []string{"MONDAY", "WEDNESDAY"}, []string(session.WeeklyDays))
	require.Len(t, session.Geofence, 3)
	assert.InDelta(t, 12.97, session.Geofence[0].Latitude, 0.0001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionFindAssignment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "session_id", "user_id", "mode", "attendance_status", "is_late", "created_at", "updated_at"}).
		AddRow("a1", "s1", "u1", string(models.ModePhysical), string(models.RosterStatusPending), false, now, now)
	mock.ExpectQuery("SELECT id, session_id, user_id, mode, attendance_status").
		WithArgs("s1", "u1").
		WillReturnRows(rows)

	assignment, err := repo.FindAssignment(context.Background(), "s1", "u1")
	require.NoError(t, err)
	assert.Equal(t, models.ModePhysical, assignment.Mode)
	assert.Equal(t, models.RosterStatusPending, assignment.AttendanceStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionUpdateRosterStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE session_assignments SET attendance_status = $3, is_late = $4")).
		WithArgs("s1", "u1", string(models.RosterStatusPresent), true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateRosterStatus(context.Background(), "s1", "u1", models.RosterStatusPresent, true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRoster(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	checkIn := day.Add(3*time.Hour + 35*time.Minute)
	rows := sqlmock.NewRows([]string{"user_id", "full_name", "email", "mode", "attendance_status", "is_late", "check_in_time", "late_by_minutes"}).
		AddRow("u1", "Asha Rao", "asha@example.com", string(models.ModePhysical), string(models.RosterStatusPresent), true, checkIn, 5).
		AddRow("u2", "Dev Patel", "dev@example.com", string(models.ModeRemote), string(models.RosterStatusPending), false, nil, nil)
	mock.ExpectQuery("SELECT sa.user_id, u.full_name, u.email, sa.mode").
		WithArgs("s1", day).
		WillReturnRows(rows)

	roster, err := repo.Roster(context.Background(), "s1", day)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, models.RosterStatusPresent, roster[0].AttendanceStatus)
	require.NotNil(t, roster[0].CheckInTime)
	assert.Nil(t, roster[1].CheckInTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}
