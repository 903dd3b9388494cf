package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// TransactionRepository handles the payment ledger. Rows are never updated.
type TransactionRepository struct {
	db sqlx.ExtContext
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db sqlx.ExtContext) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create appends a ledger row. A repeated transaction id yields ErrAlreadyExists.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.CreatedAt = time.Now()
	if tx.PaidAt.IsZero() {
		tx.PaidAt = tx.CreatedAt
	}

	query := `
		INSERT INTO transactions (
			id, transaction_id, intent_id, amount, payment_method, card_type, card_info,
			bank, description, client_id, paid_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.TransactionID,
		tx.IntentID,
		tx.Amount,
		tx.PaymentMethod,
		tx.CardType,
		tx.CardInfo,
		tx.Bank,
		tx.Description,
		tx.ClientID,
		tx.PaidAt,
		tx.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// ListByClient returns the ledger of a client, newest first
func (r *TransactionRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Transaction, error) {
	transactions := []*models.Transaction{}
	query := `
		SELECT id, transaction_id, intent_id, amount, payment_method, card_type, card_info,
			bank, description, client_id, paid_at, created_at
		FROM transactions
		WHERE client_id = $1
		ORDER BY paid_at DESC
	`

	if err := sqlx.SelectContext(ctx, r.db, &transactions, query, clientID); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

// Summary splits ledger rows paid within the optional window into rows that
// came from a payment link and rows reported as direct transfers
func (r *TransactionRepository) Summary(ctx context.Context, from, to *time.Time) (*models.ConfirmedPaymentsSummary, error) {
	sentinels := pq.Array([]string{
		models.IntentSentinelTransfer,
		models.IntentSentinelDatil,
		models.IntentSentinelPagoPlux,
	})

	args := []interface{}{sentinels}
	var conditions []string
	if from != nil {
		args = append(args, *from)
		conditions = append(conditions, fmt.Sprintf("paid_at >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conditions = append(conditions, fmt.Sprintf("paid_at <= $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var row struct {
		Total          int     `db:"total"`
		TotalAmount    float64 `db:"total_amount"`
		IntentCount    int     `db:"intent_count"`
		IntentAmount   float64 `db:"intent_amount"`
		TransferCount  int     `db:"transfer_count"`
		TransferAmount float64 `db:"transfer_amount"`
	}

	query := `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(amount), 0) AS total_amount,
			COUNT(*) FILTER (WHERE NOT (intent_id = ANY($1))) AS intent_count,
			COALESCE(SUM(amount) FILTER (WHERE NOT (intent_id = ANY($1))), 0) AS intent_amount,
			COUNT(*) FILTER (WHERE intent_id = ANY($1)) AS transfer_count,
			COALESCE(SUM(amount) FILTER (WHERE intent_id = ANY($1)), 0) AS transfer_amount
		FROM transactions` + where

	if err := sqlx.GetContext(ctx, r.db, &row, query, args...); err != nil {
		return nil, fmt.Errorf("failed to summarize transactions: %w", err)
	}

	return &models.ConfirmedPaymentsSummary{
		Total:           row.Total,
		TotalPaidAmount: row.TotalAmount,
		WithIntent:      models.AmountBucket{Count: row.IntentCount, Amount: row.IntentAmount},
		DirectTransfer:  models.AmountBucket{Count: row.TransferCount, Amount: row.TransferAmount},
	}, nil
}
