package services

import (
	"context"
	"fmt"

	"github.com/bakano/consultancy-backend/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// NewStores binds every repository to db, which may be the pool or a transaction
func NewStores(db sqlx.ExtContext) Stores {
	return Stores{
		Clients:      database.NewClientRepository(db),
		Businesses:   database.NewBusinessRepository(db),
		Managers:     database.NewManagerRepository(db),
		Files:        database.NewFileRepository(db),
		Handoffs:     database.NewHandoffRepository(db),
		Intents:      database.NewPaymentIntentRepository(db),
		Transactions: database.NewTransactionRepository(db),
		Meetings:     database.NewMeetingRepository(db),
		Checklists:   database.NewChecklistRepository(db),
		MVPAccounts:  database.NewMVPAccountRepository(db),
	}
}

// SQLTransactor opens sqlx transactions on the pool
type SQLTransactor struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLTransactor creates a transactor over the connection pool
func NewSQLTransactor(db *sqlx.DB, logger *logrus.Logger) *SQLTransactor {
	return &SQLTransactor{db: db, logger: logger}
}

// WithinTx implements Transactor
func (t *SQLTransactor) WithinTx(ctx context.Context, fn func(Stores) error) (err error) {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(NewStores(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			t.logger.WithError(rbErr).Error("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
