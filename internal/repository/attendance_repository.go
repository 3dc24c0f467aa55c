package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/upasthit/attendance-api/internal/models"
)

// AttendanceRepository persists accepted check-ins. The unique index on
// (user_id, session_id, occurrence_date) is the at-most-once guarantee;
// Exists* lookups are fast-path pre-checks only.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Insert creates the attendance row if none exists for the idempotency key.
// Returns false when a concurrent or earlier attempt already holds the slot.
func (r *AttendanceRepository) Insert(ctx context.Context, rec *models.AttendanceRecord) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance (id, org_id, user_id, session_id, occurrence_date, check_in_time,
client_timestamp, is_late, late_by_minutes, location_verified, latitude, longitude, accuracy_meters,
device_id, user_agent, verification, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (user_id, session_id, occurrence_date) DO NOTHING
RETURNING id`
	var insertedID string
	err := r.db.QueryRowxContext(ctx, query,
		rec.ID, rec.OrgID, rec.UserID, rec.SessionID, rec.OccurrenceDate, rec.CheckInTime,
		rec.ClientTimestamp, rec.IsLate, rec.LateByMinutes, rec.LocationVerified,
		rec.Latitude, rec.Longitude, rec.AccuracyMeters,
		rec.DeviceID, rec.UserAgent, rec.Verification, rec.CreatedAt,
	).Scan(&insertedID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	rec.ID = insertedID
	return true, nil
}

// ExistsAny reports whether the user has any accepted check-in for the
// session, regardless of occurrence. Used for one-time sessions.
func (r *AttendanceRepository) ExistsAny(ctx context.Context, userID, sessionID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM attendance WHERE user_id = $1 AND session_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, sessionID); err != nil {
		return false, fmt.Errorf("attendance exists any: %w", err)
	}
	return exists, nil
}

// ExistsInWindow reports whether the user checked in to the session within
// the UTC window [from, to). Used for recurring sessions with the local-day
// bounds converted to UTC.
func (r *AttendanceRepository) ExistsInWindow(ctx context.Context, userID, sessionID string, from, to time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM attendance
WHERE user_id = $1 AND session_id = $2 AND check_in_time >= $3 AND check_in_time < $4)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, sessionID, from, to); err != nil {
		return false, fmt.Errorf("attendance exists in window: %w", err)
	}
	return exists, nil
}

// List returns attendance rows matching the filter with a total count.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	base := `FROM attendance a`
	where := []string{"a.org_id = $1"}
	args := []interface{}{filter.OrgID}

	if filter.UserID != "" {
		where = append(where, fmt.Sprintf("a.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.SessionID != "" {
		where = append(where, fmt.Sprintf("a.session_id = $%d", len(args)+1))
		args = append(args, filter.SessionID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("a.occurrence_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("a.occurrence_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.IsLate != nil {
		where = append(where, fmt.Sprintf("a.is_late = $%d", len(args)+1))
		args = append(args, *filter.IsLate)
	}
	whereClause := strings.Join(where, " AND ")

	sortBy := filter.SortBy
	allowedSort := map[string]string{
		"check_in_time":   "a.check_in_time",
		"occurrence_date": "a.occurrence_date",
		"created_at":      "a.created_at",
	}
	sortColumn, ok := allowedSort[sortBy]
	if !ok {
		sortColumn = "a.check_in_time"
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
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.org_id, a.user_id, a.session_id, a.occurrence_date, a.check_in_time,
a.client_timestamp, a.is_late, a.late_by_minutes, a.location_verified, a.latitude, a.longitude,
a.accuracy_meters, a.device_id, a.user_agent, a.verification, a.created_at
%s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// Summary aggregates accepted check-ins for a user in an optional date range.
func (r *AttendanceRepository) Summary(ctx context.Context, userID string, from, to *time.Time) (*models.AttendanceSummary, error) {
	where := []string{"user_id = $1"}
	args := []interface{}{userID}
	if from != nil {
		where = append(where, fmt.Sprintf("occurrence_date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		where = append(where, fmt.Sprintf("occurrence_date <= $%d", len(args)+1))
		args = append(args, *to)
	}
	query := fmt.Sprintf(`SELECT COUNT(*) AS total,
COUNT(*) FILTER (WHERE NOT is_late) AS on_time,
COUNT(*) FILTER (WHERE is_late) AS late
FROM attendance WHERE %s`, strings.Join(where, " AND "))

	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, args...); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	if summary.Total > 0 {
		summary.LatePercent = float64(summary.Late) / float64(summary.Total) * 100
	}
	return &summary, nil
}

// ListForExport returns joined rows for report rendering.
func (r *AttendanceRepository) ListForExport(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceExportRow, error) {
	where := []string{"a.org_id = $1"}
	args := []interface{}{filter.OrgID}
	if filter.UserID != "" {
		where = append(where, fmt.Sprintf("a.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.SessionID != "" {
		where = append(where, fmt.Sprintf("a.session_id = $%d", len(args)+1))
		args = append(args, filter.SessionID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("a.occurrence_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("a.occurrence_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	query := fmt.Sprintf(`SELECT a.occurrence_date, s.title AS session_title, u.full_name, u.email,
a.check_in_time, a.is_late, a.late_by_minutes, a.location_verified
FROM attendance a
JOIN sessions s ON s.id = a.session_id
JOIN users u ON u.id = a.user_id
WHERE %s
ORDER BY a.occurrence_date DESC, a.check_in_time DESC`, strings.Join(where, " AND "))

	var rows []models.AttendanceExportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance for export: %w", err)
	}
	return rows, nil
}
