package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const checklistColumns = `id, business_id, template_version, current_phase, phases, created_at, updated_at`

// ChecklistRepository handles onboarding checklist persistence
type ChecklistRepository struct {
	db sqlx.ExtContext
}

// NewChecklistRepository creates a new checklist repository
func NewChecklistRepository(db sqlx.ExtContext) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

// GetByBusiness retrieves the checklist of a business
func (r *ChecklistRepository) GetByBusiness(ctx context.Context, businessID uuid.UUID) (*models.Checklist, error) {
	return r.getOne(ctx, `SELECT `+checklistColumns+` FROM checklists WHERE business_id = $1`, businessID)
}

// GetByBusinessForUpdate retrieves and row-locks the checklist of a business.
// Only meaningful inside a transaction.
func (r *ChecklistRepository) GetByBusinessForUpdate(ctx context.Context, businessID uuid.UUID) (*models.Checklist, error) {
	return r.getOne(ctx, `SELECT `+checklistColumns+` FROM checklists WHERE business_id = $1 FOR UPDATE`, businessID)
}

// Create stores a new checklist. It returns false when the business already has one.
func (r *ChecklistRepository) Create(ctx context.Context, checklist *models.Checklist) (bool, error) {
	if checklist.ID == uuid.Nil {
		checklist.ID = uuid.New()
	}
	now := time.Now()
	checklist.CreatedAt = now
	checklist.UpdatedAt = now

	query := `
		INSERT INTO checklists (id, business_id, template_version, current_phase, phases, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (business_id) DO NOTHING
		RETURNING id
	`

	var id uuid.UUID
	err := sqlx.GetContext(ctx, r.db, &id, query,
		checklist.ID,
		checklist.BusinessID,
		checklist.TemplateVersion,
		checklist.CurrentPhase,
		checklist.Phases,
		checklist.CreatedAt,
		checklist.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create checklist: %w", err)
	}

	return true, nil
}

// Update persists the template version, phase cursor and phases of a checklist
func (r *ChecklistRepository) Update(ctx context.Context, checklist *models.Checklist) error {
	checklist.UpdatedAt = time.Now()

	query := `
		UPDATE checklists
		SET template_version = $2, current_phase = $3, phases = $4, updated_at = $5
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		checklist.ID,
		checklist.TemplateVersion,
		checklist.CurrentPhase,
		checklist.Phases,
		checklist.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update checklist: %w", err)
	}
	return nil
}

// ListOutdated returns checklists built from a template older than version
func (r *ChecklistRepository) ListOutdated(ctx context.Context, version int) ([]*models.Checklist, error) {
	checklists := []*models.Checklist{}
	query := `SELECT ` + checklistColumns + ` FROM checklists WHERE template_version < $1 ORDER BY created_at ASC`

	if err := sqlx.SelectContext(ctx, r.db, &checklists, query, version); err != nil {
		return nil, fmt.Errorf("failed to list outdated checklists: %w", err)
	}
	return checklists, nil
}

func (r *ChecklistRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Checklist, error) {
	var checklist models.Checklist
	if err := sqlx.GetContext(ctx, r.db, &checklist, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get checklist: %w", err)
	}
	return &checklist, nil
}
