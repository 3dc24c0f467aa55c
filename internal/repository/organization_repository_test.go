package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrganizationGetSettings(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOrganizationRepository(db)

	rows := sqlmock.NewRows([]string{"late_limit_minutes", "strict_late_mode", "utc_offset_minutes"}).
		AddRow(45, true, 330)
	mock.ExpectQuery("SELECT late_limit_minutes, strict_late_mode, utc_offset_minutes").
		WithArgs("org-1").
		WillReturnRows(rows)

	settings, err := repo.GetSettings(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, 45, settings.LateLimitMinutes)
	assert.True(t, settings.StrictLateMode)
	assert.Equal(t, 330, settings.UTCOffsetMinutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrganizationGetSettingsNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOrganizationRepository(db)

	mock.ExpectQuery("SELECT late_limit_minutes, strict_late_mode, utc_offset_minutes").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	settings, err := repo.GetSettings(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, sql.ErrNoRows, err)
	assert.Nil(t, settings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrganizationFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOrganizationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "utc_offset_minutes", "late_limit_minutes", "strict_late_mode", "active", "created_at", "updated_at"}).
		AddRow("org-1", "Acme Legal", 330, 30, false, true, now, now)
	mock.ExpectQuery("SELECT id, name, utc_offset_minutes, late_limit_minutes").
		WithArgs("org-1").
		WillReturnRows(rows)

	org, err := repo.FindByID(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Legal", org.Name)
	assert.Equal(t, 330, org.UTCOffsetMinutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}
