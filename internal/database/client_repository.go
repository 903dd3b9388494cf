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

const clientColumns = `
	id, name, email, phone, national_id, country, city, client_type,
	preferred_payment_method, last_payment_date, payment_bank, card_type, card_info,
	created_at, updated_at`

// ClientRepository handles client database operations
type ClientRepository struct {
	db sqlx.ExtContext
}

// NewClientRepository creates a new client repository over a pool or a transaction
func NewClientRepository(db sqlx.ExtContext) *ClientRepository {
	return &ClientRepository{db: db}
}

// LockEmail takes a transaction-scoped advisory lock on the email so that
// concurrent first payments for the same person serialise
func (r *ClientRepository) LockEmail(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, strings.ToLower(email))
	if err != nil {
		return fmt.Errorf("failed to lock client email: %w", err)
	}
	return nil
}

// Create inserts a new client
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	now := time.Now()
	client.CreatedAt = now
	client.UpdatedAt = now

	query := `
		INSERT INTO clients (
			id, name, email, phone, national_id, country, city, client_type,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		client.ID,
		client.Name,
		client.Email,
		client.Phone,
		client.NationalID,
		client.Country,
		client.City,
		client.ClientType,
		client.CreatedAt,
		client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	return nil
}

// GetByID retrieves a client by ID
func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	err := sqlx.GetContext(ctx, r.db, &client, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	return &client, nil
}

// FindByEmail returns the oldest client registered with the exact email
func (r *ClientRepository) FindByEmail(ctx context.Context, email string) (*models.Client, error) {
	var client models.Client
	query := `SELECT ` + clientColumns + `
		FROM clients
		WHERE email = $1
		ORDER BY created_at ASC
		LIMIT 1`

	err := sqlx.GetContext(ctx, r.db, &client, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find client by email: %w", err)
	}

	return &client, nil
}

// FindByPhoneSuffix returns the oldest client whose phone digits end with suffix
func (r *ClientRepository) FindByPhoneSuffix(ctx context.Context, suffix string) (*models.Client, error) {
	if suffix == "" {
		return nil, nil
	}

	var client models.Client
	query := `SELECT ` + clientColumns + `
		FROM clients
		WHERE regexp_replace(phone, '\D', '', 'g') LIKE $1
		ORDER BY created_at ASC
		LIMIT 1`

	err := sqlx.GetContext(ctx, r.db, &client, query, "%"+escapeLike(suffix))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find client by phone: %w", err)
	}

	return &client, nil
}

// SetNationalID backfills the national id of a client that had none or only
// the final consumer placeholder
func (r *ClientRepository) SetNationalID(ctx context.Context, id uuid.UUID, nationalID string) error {
	query := `
		UPDATE clients
		SET national_id = $2, updated_at = NOW()
		WHERE id = $1
		  AND (national_id IS NULL OR TRIM(national_id) = '' OR LOWER(TRIM(national_id)) = 'consumidor final')
	`

	if _, err := r.db.ExecContext(ctx, query, id, nationalID); err != nil {
		return fmt.Errorf("failed to set client national id: %w", err)
	}
	return nil
}

// UpdatePaymentSnapshot stores the payment preference of the latest confirmed payment
func (r *ClientRepository) UpdatePaymentSnapshot(ctx context.Context, id uuid.UUID, snapshot models.PaymentSnapshot) error {
	query := `
		UPDATE clients
		SET preferred_payment_method = $2,
			last_payment_date = $3,
			payment_bank = $4,
			card_type = $5,
			card_info = $6,
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		id,
		snapshot.Method,
		snapshot.PaidAt,
		snapshot.Bank,
		nullableString(snapshot.CardType),
		nullableString(snapshot.CardInfo),
	)
	if err != nil {
		return fmt.Errorf("failed to update client payment snapshot: %w", err)
	}

	return nil
}

// List returns clients matching the filter, newest first, and the total match count
func (r *ClientRepository) List(ctx context.Context, filter models.ClientFilter) ([]*models.Client, int, error) {
	where, args := clientFilterClause(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM clients` + where
	if err := sqlx.GetContext(ctx, r.db, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count clients: %w", err)
	}

	page := models.NewPagination(total, filter.Page, filter.Limit)
	args = append(args, filter.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM clients%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		clientColumns, where, len(args)-1, len(args))

	clients := []*models.Client{}
	if err := sqlx.SelectContext(ctx, r.db, &clients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list clients: %w", err)
	}

	return clients, total, nil
}

func clientFilterClause(filter models.ClientFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, containsPattern(value))
		conditions = append(conditions, fmt.Sprintf("%s ILIKE $%d", column, len(args)))
	}
	add("email", filter.Email)
	add("name", filter.Name)
	add("phone", filter.Phone)

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Delete removes a client. Owned businesses and transactions cascade.
func (r *ClientRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete client: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// nullableString maps an empty string to SQL NULL
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
