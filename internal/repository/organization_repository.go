package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/upasthit/attendance-api/internal/models"
)

// OrganizationRepository reads tenant rows and their attendance policy.
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository constructs the repository.
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// FindByID returns an organization by identifier.
func (r *OrganizationRepository) FindByID(ctx context.Context, id string) (*models.Organization, error) {
	const query = `SELECT id, name, utc_offset_minutes, late_limit_minutes, strict_late_mode, active, created_at, updated_at
FROM organizations WHERE id = $1 LIMIT 1`
	var org models.Organization
	if err := r.db.GetContext(ctx, &org, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find organization by id: %w", err)
	}
	return &org, nil
}

// GetSettings returns only the policy slice the admission pipeline needs.
func (r *OrganizationRepository) GetSettings(ctx context.Context, id string) (*models.OrgSettings, error) {
	const query = `SELECT late_limit_minutes, strict_late_mode, utc_offset_minutes
FROM organizations WHERE id = $1 LIMIT 1`
	var settings models.OrgSettings
	if err := r.db.GetContext(ctx, &settings, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get organization settings: %w", err)
	}
	return &settings, nil
}
