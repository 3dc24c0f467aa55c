package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upasthit/attendance-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func userColumns() []string {
	return []string{"id", "org_id", "email", "password_hash", "full_name", "role", "active",
		"registered_device_id", "registered_user_agent", "last_login", "created_at", "updated_at"}
}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userColumns()).
		AddRow("1", "org-1", "user@example.com", "hash", "User", string(models.RoleMember), true, nil, nil, now, now, now)
	mock.ExpectQuery("SELECT id, org_id, email, password_hash, full_name, role, active").
		WithArgs("user@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, "org-1", user.OrgID)
	assert.False(t, user.DeviceBound())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDDeviceBound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	device := "device-1"
	ua := "Mozilla/5.0"
	rows := sqlmock.NewRows(userColumns()).
		AddRow("u1", "org-1", "user@example.com", "hash", "User", string(models.RoleMember), true, device, ua, now, now, now)
	mock.ExpectQuery("SELECT id, org_id, email, password_hash, full_name, role, active").
		WithArgs("u1").
		WillReturnRows(rows)

	user, err := repo.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, user.DeviceBound())
	assert.Equal(t, device, *user.RegisteredDeviceID)
	assert.Equal(t, ua, *user.RegisteredUserAgent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBindDevice(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET registered_device_id = $2, registered_user_agent = $3, updated_at = $4")).
		WithArgs("u1", "device-1", "Mozilla/5.0", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.BindDevice(context.Background(), "u1", "device-1", "Mozilla/5.0")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{ID: "1", UserID: "u1", Token: "token", ExpiresAt: time.Now(), CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	userID := "u1"
	err := repo.CreateAuditLog(context.Background(), &models.AuditLog{
		UserID:   &userID,
		Action:   models.AuditActionCheckInCreated,
		Resource: "attendance",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
