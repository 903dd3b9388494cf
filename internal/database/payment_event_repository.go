package database

import (
	"context"
	"fmt"
	"time"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const paymentEventColumns = `
	id, event_type, source, intent_id, transaction_id, amount, gateway_state, message,
	raw_body, http_status_code, error_message, processing_time_ms, ip_address, user_agent,
	device_type, browser, os, created_at`

// PaymentEventRepository handles the payment audit trail
type PaymentEventRepository struct {
	db     sqlx.ExtContext
	logger *logrus.Logger
}

// NewPaymentEventRepository creates a new payment event repository
func NewPaymentEventRepository(db sqlx.ExtContext, logger *logrus.Logger) *PaymentEventRepository {
	return &PaymentEventRepository{
		db:     db,
		logger: logger,
	}
}

// Log appends a payment event. Payment events must never be dropped silently,
// so every failure is logged at error level before it is returned.
func (r *PaymentEventRepository) Log(ctx context.Context, event *models.PaymentEvent) error {
	if event == nil {
		return fmt.Errorf("payment event cannot be nil")
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_events (` + paymentEventColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18
		)`

	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.EventType, event.Source, event.IntentID, event.TransactionID,
		event.Amount, event.GatewayState, event.Message,
		event.RawBody, event.HTTPStatusCode, event.ErrorMessage, event.ProcessingTimeMs,
		event.IPAddress, event.UserAgent,
		event.DeviceType, event.Browser, event.OS, event.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": event.EventType,
			"intent_id":  event.IntentID,
		}).Error("Failed to log payment event")
		return fmt.Errorf("failed to log payment event: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.EventType,
	}).Debug("Payment event logged")

	return nil
}

// ListByIntent returns the audit trail of an intent, oldest first
func (r *PaymentEventRepository) ListByIntent(ctx context.Context, intentID string) ([]*models.PaymentEvent, error) {
	events := []*models.PaymentEvent{}
	query := `SELECT ` + paymentEventColumns + ` FROM payment_events WHERE intent_id = $1 ORDER BY created_at ASC`

	if err := sqlx.SelectContext(ctx, r.db, &events, query, intentID); err != nil {
		return nil, fmt.Errorf("failed to get payment events by intent: %w", err)
	}
	return events, nil
}

// ListRecent returns the latest events, optionally narrowed to one type
func (r *PaymentEventRepository) ListRecent(ctx context.Context, eventType models.PaymentEventType, limit int) ([]*models.PaymentEvent, error) {
	events := []*models.PaymentEvent{}
	query := `SELECT ` + paymentEventColumns + `
		FROM payment_events
		WHERE ($1 = '' OR event_type = $1)
		ORDER BY created_at DESC
		LIMIT $2`

	if err := sqlx.SelectContext(ctx, r.db, &events, query, string(eventType), limit); err != nil {
		return nil, fmt.Errorf("failed to get recent payment events: %w", err)
	}
	return events, nil
}
