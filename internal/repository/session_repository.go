package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/upasthit/attendance-api/internal/models"
)

// SessionRepository provides read access to sessions and their assignments.
// Session administration happens elsewhere; the admission pipeline only reads
// session rows and flips roster projections.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// FindByID returns a session by identifier.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	const query = `SELECT id, org_id, title, session_type, frequency, start_date, end_date, start_time, end_time,
weekly_days, latitude, longitude, location_link, legacy_location, geofence, radius_meters, city, state,
active, created_at, updated_at
FROM sessions WHERE id = $1 LIMIT 1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	return &session, nil
}

// FindAssignment returns the assignment row linking a user to a session.
func (r *SessionRepository) FindAssignment(ctx context.Context, sessionID, userID string) (*models.SessionAssignment, error) {
	const query = `SELECT id, session_id, user_id, mode, attendance_status, is_late, created_at, updated_at
FROM session_assignments WHERE session_id = $1 AND user_id = $2 LIMIT 1`
	var assignment models.SessionAssignment
	if err := r.db.GetContext(ctx, &assignment, query, sessionID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session assignment: %w", err)
	}
	return &assignment, nil
}

// ListAssignedActive returns every active session the user is assigned to.
// Occurrence filtering (does it run today) happens in the schedule resolver.
func (r *SessionRepository) ListAssignedActive(ctx context.Context, orgID, userID string) ([]models.Session, error) {
	const query = `SELECT s.id, s.org_id, s.title, s.session_type, s.frequency, s.start_date, s.end_date,
s.start_time, s.end_time, s.weekly_days, s.latitude, s.longitude, s.location_link, s.legacy_location,
s.geofence, s.radius_meters, s.city, s.state, s.active, s.created_at, s.updated_at
FROM sessions s
JOIN session_assignments sa ON sa.session_id = s.id
WHERE s.org_id = $1 AND sa.user_id = $2 AND s.active = TRUE
ORDER BY s.start_time ASC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, orgID, userID); err != nil {
		return nil, fmt.Errorf("list assigned sessions: %w", err)
	}
	return sessions, nil
}

// List returns sessions matching the filter with a total count.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	base := `FROM sessions s`
	where := []string{"s.org_id = $1"}
	args := []interface{}{filter.OrgID}

	if filter.UserID != "" {
		base += ` JOIN session_assignments sa ON sa.session_id = s.id`
		where = append(where, fmt.Sprintf("sa.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.SessionType != nil && filter.SessionType.Valid() {
		where = append(where, fmt.Sprintf("s.session_type = $%d", len(args)+1))
		args = append(args, *filter.SessionType)
	}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	whereClause := strings.Join(where, " AND ")

	sortBy := filter.SortBy
	allowedSort := map[string]string{
		"title":      "s.title",
		"start_date": "s.start_date",
		"created_at": "s.created_at",
	}
	sortColumn, ok := allowedSort[sortBy]
	if !ok {
		sortColumn = "s.start_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.org_id, s.title, s.session_type, s.frequency, s.start_date, s.end_date,
s.start_time, s.end_time, s.weekly_days, s.latitude, s.longitude, s.location_link, s.legacy_location,
s.geofence, s.radius_meters, s.city, s.state, s.active, s.created_at, s.updated_at
%s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// UpdateRosterStatus flips one user's roster projection after a committed
// check-in. The attendance table stays the source of truth; callers treat a
// failure here as non-fatal.
func (r *SessionRepository) UpdateRosterStatus(ctx context.Context, sessionID, userID string, status models.RosterStatus, isLate bool) error {
	const query = `UPDATE session_assignments SET attendance_status = $3, is_late = $4, updated_at = $5
WHERE session_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, sessionID, userID, status, isLate, time.Now().UTC()); err != nil {
		return fmt.Errorf("update roster status: %w", err)
	}
	return nil
}

// Roster joins assignments with the attendance rows of one occurrence.
func (r *SessionRepository) Roster(ctx context.Context, sessionID string, occurrenceDate time.Time) ([]models.SessionRosterRow, error) {
	const query = `SELECT sa.user_id, u.full_name, u.email, sa.mode, sa.attendance_status, sa.is_late,
a.check_in_time, a.late_by_minutes
FROM session_assignments sa
JOIN users u ON u.id = sa.user_id
LEFT JOIN attendance a ON a.session_id = sa.session_id AND a.user_id = sa.user_id AND a.occurrence_date = $2
WHERE sa.session_id = $1
ORDER BY u.full_name ASC`
	var rows []models.SessionRosterRow
	if err := r.db.SelectContext(ctx, &rows, query, sessionID, occurrenceDate); err != nil {
		return nil, fmt.Errorf("session roster: %w", err)
	}
	return rows, nil
}
