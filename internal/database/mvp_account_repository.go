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

const mvpAccountColumns = `id, client_id, mvp_type, external_user_id, account_data, active, created_at, updated_at`

// MVPAccountRepository handles links between clients and external product accounts
type MVPAccountRepository struct {
	db sqlx.ExtContext
}

// NewMVPAccountRepository creates a new MVP account repository
func NewMVPAccountRepository(db sqlx.ExtContext) *MVPAccountRepository {
	return &MVPAccountRepository{db: db}
}

// Create stores an account link. A client holds at most one account per product;
// a second one yields ErrAlreadyExists.
func (r *MVPAccountRepository) Create(ctx context.Context, account *models.MVPAccount) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.AccountData == nil {
		account.AccountData = models.JSONB{}
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `
		INSERT INTO mvp_accounts (
			id, client_id, mvp_type, external_user_id, account_data, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.ClientID,
		account.MVPType,
		account.ExternalUserID,
		account.AccountData,
		account.Active,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create mvp account: %w", err)
	}

	return nil
}

// GetByClient retrieves the account of a client for a product
func (r *MVPAccountRepository) GetByClient(ctx context.Context, clientID uuid.UUID, mvpType string) (*models.MVPAccount, error) {
	query := `SELECT ` + mvpAccountColumns + ` FROM mvp_accounts WHERE client_id = $1 AND mvp_type = $2`
	return r.getOne(ctx, query, clientID, mvpType)
}

// ListByClient returns every product account of a client, newest first
func (r *MVPAccountRepository) ListByClient(ctx context.Context, clientID uuid.UUID, mvpType string) ([]*models.MVPAccount, error) {
	accounts := []*models.MVPAccount{}
	query := `SELECT ` + mvpAccountColumns + `
		FROM mvp_accounts
		WHERE client_id = $1 AND mvp_type = $2
		ORDER BY created_at DESC`

	if err := sqlx.SelectContext(ctx, r.db, &accounts, query, clientID, mvpType); err != nil {
		return nil, fmt.Errorf("failed to list mvp accounts: %w", err)
	}
	return accounts, nil
}

// GetByExternalUserID retrieves the account created for an external user id
func (r *MVPAccountRepository) GetByExternalUserID(ctx context.Context, mvpType, externalUserID string) (*models.MVPAccount, error) {
	query := `SELECT ` + mvpAccountColumns + ` FROM mvp_accounts WHERE mvp_type = $1 AND external_user_id = $2`
	return r.getOne(ctx, query, mvpType, externalUserID)
}

// UpdateAccountData replaces the stored external account payload
func (r *MVPAccountRepository) UpdateAccountData(ctx context.Context, id uuid.UUID, data models.JSONB) error {
	query := `UPDATE mvp_accounts SET account_data = $2, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, data); err != nil {
		return fmt.Errorf("failed to update mvp account: %w", err)
	}
	return nil
}

// Delete removes an account link
func (r *MVPAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM mvp_accounts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete mvp account: %w", err)
	}
	return nil
}

func (r *MVPAccountRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.MVPAccount, error) {
	var account models.MVPAccount
	if err := sqlx.GetContext(ctx, r.db, &account, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get mvp account: %w", err)
	}
	return &account, nil
}
