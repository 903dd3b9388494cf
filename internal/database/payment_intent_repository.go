package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const intentColumns = `
	id, intent_id, state, name, email, phone, phone_prefix, address, tax_id, amount,
	description, payment_link, business_name, business_type, business_id, client_id,
	transaction_id, paid_at, created_at, updated_at`

// PaymentIntentRepository handles payment intent database operations
type PaymentIntentRepository struct {
	db sqlx.ExtContext
}

// NewPaymentIntentRepository creates a new payment intent repository
func NewPaymentIntentRepository(db sqlx.ExtContext) *PaymentIntentRepository {
	return &PaymentIntentRepository{db: db}
}

// Create stores a freshly generated payment intent
func (r *PaymentIntentRepository) Create(ctx context.Context, intent *models.PaymentIntent) error {
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	if intent.State == "" {
		intent.State = models.IntentStatePending
	}
	now := time.Now()
	intent.CreatedAt = now
	intent.UpdatedAt = now

	query := `
		INSERT INTO payment_intents (
			id, intent_id, state, name, email, phone, phone_prefix, address, tax_id,
			amount, description, payment_link, business_name, business_type,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		intent.ID,
		intent.IntentID,
		intent.State,
		intent.Name,
		intent.Email,
		intent.Phone,
		intent.PhonePrefix,
		intent.Address,
		intent.TaxID,
		intent.Amount,
		intent.Description,
		intent.PaymentLink,
		intent.BusinessName,
		intent.BusinessType,
		intent.CreatedAt,
		intent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment intent: %w", err)
	}

	return nil
}

// GetByIntentID retrieves an intent by its correlation id
func (r *PaymentIntentRepository) GetByIntentID(ctx context.Context, intentID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	query := `SELECT ` + intentColumns + ` FROM payment_intents WHERE intent_id = $1`

	err := sqlx.GetContext(ctx, r.db, &intent, query, intentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}

	return &intent, nil
}

// ClaimPending atomically moves a pending intent to paid. It returns false
// when the intent was not pending, which means another delivery already
// processed it. Inside a transaction the row stays locked until commit.
func (r *PaymentIntentRepository) ClaimPending(ctx context.Context, intentID string, paidAt time.Time) (bool, error) {
	query := `
		UPDATE payment_intents
		SET state = $2, paid_at = $3, updated_at = NOW()
		WHERE intent_id = $1 AND state = $4
	`

	result, err := r.db.ExecContext(ctx, query, intentID, models.IntentStatePaid, paidAt, models.IntentStatePending)
	if err != nil {
		return false, fmt.Errorf("failed to claim payment intent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows == 1, nil
}

// AttachResolution records the client, business and transaction a paid intent resolved to
func (r *PaymentIntentRepository) AttachResolution(ctx context.Context, intentID string, resolution models.IntentResolution) error {
	query := `
		UPDATE payment_intents
		SET business_id = $2, client_id = $3, transaction_id = $4, paid_at = $5, updated_at = NOW()
		WHERE intent_id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		intentID,
		resolution.BusinessID,
		resolution.ClientID,
		resolution.TransactionID,
		resolution.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("failed to attach payment intent resolution: %w", err)
	}
	return nil
}

// List returns intents matching the filter, newest first, and the total match count
func (r *PaymentIntentRepository) List(ctx context.Context, filter models.IntentFilter) ([]*models.PaymentIntent, int, error) {
	where, args := intentFilterClause(filter)

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(*) FROM payment_intents`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count payment intents: %w", err)
	}

	page := models.NewPagination(total, filter.Page, filter.Limit)
	args = append(args, filter.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM payment_intents%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		intentColumns, where, len(args)-1, len(args))

	intents := []*models.PaymentIntent{}
	if err := sqlx.SelectContext(ctx, r.db, &intents, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list payment intents: %w", err)
	}

	return intents, total, nil
}

func intentFilterClause(filter models.IntentFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(condition string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= $%d", *filter.To)
	}
	if filter.State != "" {
		add("state = $%d", filter.State)
	}
	if filter.BusinessName != "" {
		add("business_name ILIKE $%d", containsPattern(filter.BusinessName))
	}
	if filter.Email != "" {
		add("email ILIKE $%d", containsPattern(filter.Email))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Summary aggregates intents created within the optional window
func (r *PaymentIntentRepository) Summary(ctx context.Context, from, to *time.Time) (*models.IntentSummary, error) {
	where, args := intentFilterClause(models.IntentFilter{From: from, To: to})

	var row struct {
		TotalCount    int     `db:"total_count"`
		TotalAmount   float64 `db:"total_amount"`
		PendingCount  int     `db:"pending_count"`
		PendingAmount float64 `db:"pending_amount"`
		PaidCount     int     `db:"paid_count"`
		PaidAmount    float64 `db:"paid_amount"`
	}

	query := `
		SELECT
			COUNT(*) AS total_count,
			COALESCE(SUM(amount), 0) AS total_amount,
			COUNT(*) FILTER (WHERE state = 'pending') AS pending_count,
			COALESCE(SUM(amount) FILTER (WHERE state = 'pending'), 0) AS pending_amount,
			COUNT(*) FILTER (WHERE state = 'paid') AS paid_count,
			COALESCE(SUM(amount) FILTER (WHERE state = 'paid'), 0) AS paid_amount
		FROM payment_intents` + where

	if err := sqlx.GetContext(ctx, r.db, &row, query, args...); err != nil {
		return nil, fmt.Errorf("failed to summarize payment intents: %w", err)
	}

	return &models.IntentSummary{
		TotalCount:  row.TotalCount,
		TotalAmount: row.TotalAmount,
		Pending:     models.AmountBucket{Count: row.PendingCount, Amount: row.PendingAmount},
		Paid:        models.AmountBucket{Count: row.PaidCount, Amount: row.PaidAmount},
	}, nil
}
