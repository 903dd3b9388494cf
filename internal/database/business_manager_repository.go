package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ManagerRepository handles business manager database operations
type ManagerRepository struct {
	db sqlx.ExtContext
}

// NewManagerRepository creates a new manager repository
func NewManagerRepository(db sqlx.ExtContext) *ManagerRepository {
	return &ManagerRepository{db: db}
}

// Create adds a manager to a business. Emails are stored lower-cased and are
// unique per business; a repeated email yields ErrAlreadyExists.
func (r *ManagerRepository) Create(ctx context.Context, manager *models.Manager) error {
	if manager.ID == uuid.Nil {
		manager.ID = uuid.New()
	}
	manager.Email = strings.ToLower(strings.TrimSpace(manager.Email))
	manager.CreatedAt = time.Now()

	query := `
		INSERT INTO business_managers (id, business_id, name, email, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		manager.ID,
		manager.BusinessID,
		manager.Name,
		manager.Email,
		manager.Role,
		manager.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create manager: %w", err)
	}

	return nil
}

// ListByBusiness returns the managers of a business in insertion order
func (r *ManagerRepository) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*models.Manager, error) {
	managers := []*models.Manager{}
	query := `
		SELECT id, business_id, name, email, role, created_at
		FROM business_managers
		WHERE business_id = $1
		ORDER BY created_at ASC
	`

	if err := sqlx.SelectContext(ctx, r.db, &managers, query, businessID); err != nil {
		return nil, fmt.Errorf("failed to list managers: %w", err)
	}
	return managers, nil
}

// Delete removes a manager from a business
func (r *ManagerRepository) Delete(ctx context.Context, businessID, managerID uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM business_managers WHERE id = $1 AND business_id = $2`, managerID, businessID)
	if err != nil {
		return false, fmt.Errorf("failed to delete manager: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}
