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

// HandoffRepository handles sales handoff records
type HandoffRepository struct {
	db sqlx.ExtContext
}

// NewHandoffRepository creates a new handoff repository
func NewHandoffRepository(db sqlx.ExtContext) *HandoffRepository {
	return &HandoffRepository{db: db}
}

// Create stores the handoff of a business. A business only ever gets one;
// a second attempt returns ErrAlreadyExists.
func (r *HandoffRepository) Create(ctx context.Context, handoff *models.Handoff) error {
	if handoff.ID == uuid.Nil {
		handoff.ID = uuid.New()
	}
	handoff.CreatedAt = time.Now()

	query := `
		INSERT INTO business_handoffs (
			id, business_id, sales_rep, package_sold, expectations, notes, additional_data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (business_id) DO NOTHING
		RETURNING id
	`

	var id uuid.UUID
	err := sqlx.GetContext(ctx, r.db, &id, query,
		handoff.ID,
		handoff.BusinessID,
		handoff.SalesRep,
		handoff.PackageSold,
		handoff.Expectations,
		handoff.Notes,
		handoff.AdditionalData,
		handoff.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create handoff: %w", err)
	}

	return nil
}

// GetByBusiness retrieves the handoff of a business
func (r *HandoffRepository) GetByBusiness(ctx context.Context, businessID uuid.UUID) (*models.Handoff, error) {
	var handoff models.Handoff
	query := `
		SELECT id, business_id, sales_rep, package_sold, expectations, notes, additional_data, created_at
		FROM business_handoffs
		WHERE business_id = $1
	`

	err := sqlx.GetContext(ctx, r.db, &handoff, query, businessID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get handoff: %w", err)
	}

	return &handoff, nil
}
