package database

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func clientRow(id uuid.UUID, email string, createdAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "phone", "national_id", "country", "city", "client_type",
		"preferred_payment_method", "last_payment_date", "payment_bank", "card_type", "card_info",
		"created_at", "updated_at",
	}).AddRow(
		id.String(), "Ana Pérez", email, "+593991234567", nil, "Ecuador", "Quito", "MEDIUM",
		nil, nil, nil, nil, nil,
		createdAt, createdAt,
	)
}

func TestClientRepositoryLockEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtext($1))`)).
		WithArgs("ana@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.LockEmail(context.Background(), "Ana@Example.com")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepositoryCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	t.Run("Success", func(t *testing.T) {
		client := &models.Client{
			Name:       "Ana Pérez",
			Email:      "ana@example.com",
			Phone:      "0991234567",
			Country:    models.DefaultClientCountry,
			City:       models.DefaultClientCity,
			ClientType: models.ClientTypeMedium,
		}

		mock.ExpectExec(`INSERT INTO clients`).
			WithArgs(sqlmock.AnyArg(), "Ana Pérez", "ana@example.com", "0991234567", nil,
				models.DefaultClientCountry, models.DefaultClientCity, "MEDIUM",
				sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.Create(context.Background(), client)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, client.ID)
		assert.False(t, client.CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO clients`).
			WillReturnError(fmt.Errorf("connection reset"))

		err := repo.Create(context.Background(), &models.Client{Email: "x@example.com"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create client")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClientRepositoryFindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	t.Run("Oldest Match", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(`SELECT .+ FROM clients\s+WHERE email = \$1\s+ORDER BY created_at ASC`).
			WithArgs("ana@example.com").
			WillReturnRows(clientRow(id, "ana@example.com", time.Now()))

		client, err := repo.FindByEmail(context.Background(), "ana@example.com")
		require.NoError(t, err)
		require.NotNil(t, client)
		assert.Equal(t, id, client.ID)
		assert.Equal(t, models.ClientTypeMedium, client.ClientType)
		assert.Nil(t, client.NationalID)
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM clients`).
			WithArgs("nobody@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		client, err := repo.FindByEmail(context.Background(), "nobody@example.com")
		assert.NoError(t, err)
		assert.Nil(t, client)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepositoryFindByPhoneSuffix(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	id := uuid.New()
	mock.ExpectQuery(`regexp_replace\(phone`).
		WithArgs("%991234567").
		WillReturnRows(clientRow(id, "ana@example.com", time.Now()))

	client, err := repo.FindByPhoneSuffix(context.Background(), "991234567")
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, id, client.ID)

	client, err = repo.FindByPhoneSuffix(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, client)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepositorySetNationalID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)
	id := uuid.New()

	mock.ExpectExec(`(?s)UPDATE clients\s+SET national_id = \$2.+LOWER\(TRIM\(national_id\)\) = 'consumidor final'`).
		WithArgs(id, "0912345678").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetNationalID(context.Background(), id, "0912345678"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepositoryUpdatePaymentSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)
	id := uuid.New()
	paidAt := time.Now()

	mock.ExpectExec(`UPDATE clients\s+SET preferred_payment_method`).
		WithArgs(id, "Transferencia Bancaria", paidAt, "Pichincha", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePaymentSnapshot(context.Background(), id, models.PaymentSnapshot{
		Method: "Transferencia Bancaria",
		Bank:   "Pichincha",
		PaidAt: paidAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepositoryList(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	t.Run("With Filters", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM clients WHERE email ILIKE \$1 AND name ILIKE \$2`).
			WithArgs("%ana%", "%p\\%rez%").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
		mock.ExpectQuery(`FROM clients WHERE email ILIKE \$1 AND name ILIKE \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
			WithArgs("%ana%", "%p\\%rez%", 20, 20).
			WillReturnRows(clientRow(uuid.New(), "ana@example.com", time.Now()))

		clients, total, err := repo.List(context.Background(), models.ClientFilter{
			Email: "ana",
			Name:  "p%rez",
			Page:  2,
			Limit: 20,
		})
		require.NoError(t, err)
		assert.Equal(t, 21, total)
		assert.Len(t, clients, 1)
	})

	t.Run("No Filters", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM clients$`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`FROM clients ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
			WithArgs(20, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		clients, total, err := repo.List(context.Background(), models.ClientFilter{Page: 1, Limit: 20})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
		assert.Empty(t, clients)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepositoryDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM clients WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
