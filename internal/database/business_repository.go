package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const businessColumns = `
	id, owner_id, name, ruc, address, phone, email, business_type, value_proposition,
	onboarding_step, instagram, tiktok, empleados, ingreso_mensual, ingreso_anual,
	desafio_principal, objetivo_ideal, vende_por_whatsapp, ganancia_whatsapp,
	onboarding_completed_at, created_at, updated_at`

// BusinessRepository handles business database operations
type BusinessRepository struct {
	db sqlx.ExtContext
}

// NewBusinessRepository creates a new business repository
func NewBusinessRepository(db sqlx.ExtContext) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// Create inserts a business. When the RUC is already registered nothing is
// written and ErrDuplicateRUC is returned so the caller can retry without it.
func (r *BusinessRepository) Create(ctx context.Context, business *models.Business) error {
	if business.ID == uuid.Nil {
		business.ID = uuid.New()
	}
	if business.OnboardingStep == "" {
		business.OnboardingStep = models.OnboardingStepOnBoarding
	}
	if business.BusinessType == "" {
		business.BusinessType = models.BusinessTypeUnknown
	}
	now := time.Now()
	business.CreatedAt = now
	business.UpdatedAt = now

	query := `
		INSERT INTO businesses (
			id, owner_id, name, ruc, address, phone, email, business_type,
			value_proposition, onboarding_step, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (ruc) WHERE ruc IS NOT NULL DO NOTHING
		RETURNING id
	`

	var id uuid.UUID
	err := sqlx.GetContext(ctx, r.db, &id, query,
		business.ID,
		business.OwnerID,
		business.Name,
		business.RUC,
		business.Address,
		business.Phone,
		business.Email,
		business.BusinessType,
		business.ValueProposition,
		business.OnboardingStep,
		business.CreatedAt,
		business.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDuplicateRUC
		}
		return fmt.Errorf("failed to create business: %w", err)
	}

	return nil
}

// GetByID retrieves a business by ID
func (r *BusinessRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	var business models.Business
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1`

	err := sqlx.GetContext(ctx, r.db, &business, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get business: %w", err)
	}

	return &business, nil
}

// FindByOwnerAndName finds the business of an owner with the exact name
func (r *BusinessRepository) FindByOwnerAndName(ctx context.Context, ownerID uuid.UUID, name string) (*models.Business, error) {
	var business models.Business
	query := `SELECT ` + businessColumns + `
		FROM businesses
		WHERE owner_id = $1 AND name = $2
		ORDER BY created_at ASC
		LIMIT 1`

	err := sqlx.GetContext(ctx, r.db, &business, query, ownerID, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find business by owner and name: %w", err)
	}

	return &business, nil
}

// ListByOwner returns the businesses owned by a client, oldest first
func (r *BusinessRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Business, error) {
	businesses := []*models.Business{}
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE owner_id = $1 ORDER BY created_at ASC`

	if err := sqlx.SelectContext(ctx, r.db, &businesses, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list businesses by owner: %w", err)
	}
	return businesses, nil
}

// ListByOwners returns the businesses of several owners
func (r *BusinessRepository) ListByOwners(ctx context.Context, ownerIDs []uuid.UUID) ([]*models.Business, error) {
	businesses := []*models.Business{}
	if len(ownerIDs) == 0 {
		return businesses, nil
	}

	ids := make([]string, len(ownerIDs))
	for i, id := range ownerIDs {
		ids[i] = id.String()
	}

	query := `SELECT ` + businessColumns + `
		FROM businesses
		WHERE owner_id = ANY($1::uuid[])
		ORDER BY created_at ASC`

	if err := sqlx.SelectContext(ctx, r.db, &businesses, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list businesses by owners: %w", err)
	}
	return businesses, nil
}

// FindByManagerEmail returns the businesses that list the email among their managers
func (r *BusinessRepository) FindByManagerEmail(ctx context.Context, email string) ([]*models.Business, error) {
	businesses := []*models.Business{}
	query := `SELECT ` + prefixColumns("b", businessColumns) + `
		FROM businesses b
		WHERE EXISTS (
			SELECT 1 FROM business_managers m
			WHERE m.business_id = b.id AND m.email = $1
		)
		ORDER BY b.created_at ASC`

	if err := sqlx.SelectContext(ctx, r.db, &businesses, query, strings.ToLower(email)); err != nil {
		return nil, fmt.Errorf("failed to find businesses by manager email: %w", err)
	}
	return businesses, nil
}

// Update applies a partial update. Keys are column names and must already be
// whitelisted by the caller. Returns nil when the business does not exist.
func (r *BusinessRepository) Update(ctx context.Context, id uuid.UUID, columns map[string]interface{}) (*models.Business, error) {
	if len(columns) == 0 {
		return r.GetByID(ctx, id)
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := []interface{}{id}
	for _, name := range names {
		args = append(args, columns[name])
		sets = append(sets, fmt.Sprintf("%s = $%d", name, len(args)))
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE businesses SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), businessColumns)

	var business models.Business
	if err := sqlx.GetContext(ctx, r.db, &business, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if IsUniqueViolation(err) {
			return nil, ErrDuplicateRUC
		}
		return nil, fmt.Errorf("failed to update business: %w", err)
	}

	return &business, nil
}

// SetOnboardingStep moves the business to a new onboarding step
func (r *BusinessRepository) SetOnboardingStep(ctx context.Context, id uuid.UUID, step models.OnboardingStep) error {
	query := `UPDATE businesses SET onboarding_step = $2, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, step); err != nil {
		return fmt.Errorf("failed to set onboarding step: %w", err)
	}
	return nil
}

// CompleteOnboarding marks the business as fully onboarded
func (r *BusinessRepository) CompleteOnboarding(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	query := `
		UPDATE businesses
		SET onboarding_step = $2, onboarding_completed_at = $3, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, models.OnboardingStepCompleted, completedAt); err != nil {
		return fmt.Errorf("failed to complete onboarding: %w", err)
	}
	return nil
}

// Delete removes a business. Dependent rows cascade.
func (r *BusinessRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM businesses WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete business: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// ListReminderTargets returns businesses created before the cutoff that have
// not uploaded any intake document yet
func (r *BusinessRepository) ListReminderTargets(ctx context.Context, createdBefore time.Time) ([]*models.ReminderTarget, error) {
	targets := []*models.ReminderTarget{}
	query := `
		SELECT b.id AS business_id, b.name AS business_name, b.email AS business_email,
			c.id AS owner_id, c.email AS owner_email
		FROM businesses b
		JOIN clients c ON c.id = b.owner_id
		WHERE b.created_at < $1
			AND b.onboarding_step <> $2
			AND NOT EXISTS (SELECT 1 FROM business_files f WHERE f.business_id = b.id)
		ORDER BY b.created_at ASC
	`

	if err := sqlx.SelectContext(ctx, r.db, &targets, query, createdBefore, models.OnboardingStepCompleted); err != nil {
		return nil, fmt.Errorf("failed to list reminder targets: %w", err)
	}
	return targets, nil
}

// BackfillBusinessType replaces empty or unrecognised business types
func (r *BusinessRepository) BackfillBusinessType(ctx context.Context, valid []models.BusinessType, fallback models.BusinessType) (int64, error) {
	types := make([]string, len(valid))
	for i, t := range valid {
		types[i] = string(t)
	}

	query := `
		UPDATE businesses
		SET business_type = $1, updated_at = NOW()
		WHERE business_type IS NULL OR NOT (business_type = ANY($2))
	`

	result, err := r.db.ExecContext(ctx, query, fallback, pq.Array(types))
	if err != nil {
		return 0, fmt.Errorf("failed to backfill business types: %w", err)
	}
	return result.RowsAffected()
}

// prefixColumns qualifies a column list with a table alias
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
