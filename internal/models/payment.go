package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// PAYMENT INTENT
// ============================================================================

// IntentState is the lifecycle state of a payment intent
type IntentState string

const (
	IntentStatePending IntentState = "pending"
	IntentStatePaid    IntentState = "paid"
	IntentStateFailed  IntentState = "failed"
)

// IsValid reports whether the state is a known value
func (s IntentState) IsValid() bool {
	return s == IntentStatePending || s == IntentStatePaid || s == IntentStateFailed
}

// PaymentIntent is one externally generated payment link awaiting completion.
// State only ever moves pending -> paid.
type PaymentIntent struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	IntentID      string       `json:"intentId" db:"intent_id"`
	State         IntentState  `json:"state" db:"state"`
	Name          string       `json:"name" db:"name"`
	Email         string       `json:"email" db:"email"`
	Phone         string       `json:"phone" db:"phone"`
	PhonePrefix   *string      `json:"prefix,omitempty" db:"phone_prefix"`
	Address       *string      `json:"address,omitempty" db:"address"`
	TaxID         *string      `json:"ci,omitempty" db:"tax_id"`
	Amount        float64      `json:"amount" db:"amount"`
	Description   string       `json:"description" db:"description"`
	PaymentLink   string       `json:"paymentLink" db:"payment_link"`
	BusinessName  string       `json:"businessName" db:"business_name"`
	BusinessType  BusinessType `json:"businessType" db:"business_type"`
	BusinessID    *uuid.UUID   `json:"businessId,omitempty" db:"business_id"`
	ClientID      *uuid.UUID   `json:"userId,omitempty" db:"client_id"`
	TransactionID *string      `json:"transactionId,omitempty" db:"transaction_id"`
	PaidAt        *time.Time   `json:"paidAt,omitempty" db:"paid_at"`
	CreatedAt     time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time    `json:"updatedAt" db:"updated_at"`
}

// IntentResolution carries the ids attached to an intent once it is paid
type IntentResolution struct {
	BusinessID    uuid.UUID
	ClientID      uuid.UUID
	TransactionID string
	PaidAt        time.Time
}

// IntentFilter narrows the intent listing
type IntentFilter struct {
	From         *time.Time
	To           *time.Time
	State        IntentState
	BusinessName string
	Email        string
	Page         int
	Limit        int
}

// ============================================================================
// TRANSACTION
// ============================================================================

// Intent sentinels recorded on transactions that were not started from a link
const (
	IntentSentinelTransfer = "TRANSFER-MANUAL"
	IntentSentinelDatil    = "DATIL-MANUAL"
	IntentSentinelPagoPlux = "PAGOPLUX-MANUAL"
)

// Transaction is an immutable ledger row for one confirmed payment
type Transaction struct {
	ID            uuid.UUID `json:"id" db:"id"`
	TransactionID string    `json:"transactionId" db:"transaction_id"`
	IntentID      string    `json:"intentId" db:"intent_id"`
	Amount        float64   `json:"amount" db:"amount"`
	PaymentMethod string    `json:"paymentMethod" db:"payment_method"`
	CardType      *string   `json:"cardType,omitempty" db:"card_type"`
	CardInfo      *string   `json:"cardInfo,omitempty" db:"card_info"`
	Bank          *string   `json:"bank,omitempty" db:"bank"`
	Description   string    `json:"description" db:"description"`
	ClientID      uuid.UUID `json:"clientId" db:"client_id"`
	PaidAt        time.Time `json:"date" db:"paid_at"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// IsDirectTransfer reports whether the transaction carries a manual sentinel
func (t *Transaction) IsDirectTransfer() bool {
	switch t.IntentID {
	case IntentSentinelTransfer, IntentSentinelDatil, IntentSentinelPagoPlux:
		return true
	}
	return false
}

// ============================================================================
// REPORTING
// ============================================================================

// AmountBucket is a count and sum pair
type AmountBucket struct {
	Count  int     `json:"count" db:"count"`
	Amount float64 `json:"amount" db:"amount"`
}

// IntentSummary aggregates payment intents
type IntentSummary struct {
	TotalCount  int          `json:"totalCount"`
	TotalAmount float64      `json:"totalAmount"`
	Pending     AmountBucket `json:"pending"`
	Paid        AmountBucket `json:"paid"`
}

// ConfirmedPaymentsSummary aggregates ledger rows
type ConfirmedPaymentsSummary struct {
	Total           int          `json:"total"`
	TotalPaidAmount float64      `json:"totalPaidAmount"`
	WithIntent      AmountBucket `json:"withIntent"`
	DirectTransfer  AmountBucket `json:"directTransfer"`
}

// DateRange echoes the requested reporting window
type DateRange struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

// PaymentsSummary is the reporting payload of the summary endpoint
type PaymentsSummary struct {
	DateRange         DateRange                `json:"dateRange"`
	Intents           IntentSummary            `json:"intents"`
	ConfirmedPayments ConfirmedPaymentsSummary `json:"confirmedPayments"`
}

// ============================================================================
// PAYMENT LINKS
// ============================================================================

// PaymentLinkRequest is the body of the payment link generation operation
type PaymentLinkRequest struct {
	Monto         Amount       `json:"monto"`
	Descripcion   string       `json:"descripcion"`
	NombreCliente string       `json:"nombreCliente"`
	CorreoCliente string       `json:"correoCliente"`
	Telefono      string       `json:"telefono"`
	Prefijo       string       `json:"prefijo"`
	Direccion     string       `json:"direccion"`
	CI            string       `json:"ci"`
	NombreNegocio string       `json:"nombreNegocio"`
	TipoNegocio   BusinessType `json:"tipoNegocio"`
}

// PaymentLinkResponse returns the hosted link and the intent correlating it
type PaymentLinkResponse struct {
	URL      string `json:"url"`
	IntentID string `json:"intentId"`
}
