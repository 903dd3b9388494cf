package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// finalConsumerTaxID is the gateway's tax id for payers without one
const finalConsumerTaxID = "consumidor final"

// NotificationKind discriminates the inbound payment notification union
type NotificationKind string

const (
	NotificationGateway        NotificationKind = "gateway"
	NotificationDirectTransfer NotificationKind = "direct_transfer"
)

// GatewayStatePaid is the only gateway state that confirms a payment
const GatewayStatePaid = "PAID"

// PaymentMethod is the manual payment channel reported by the back office
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank transfer"
	PaymentMethodDatil        PaymentMethod = "datil"
	PaymentMethodPagoPlux     PaymentMethod = "pagoplux"
)

// Label returns the display name stored on transactions and client snapshots
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentMethodDatil:
		return "Dátil"
	case PaymentMethodPagoPlux:
		return "PagoPlux"
	default:
		return "Transferencia Bancaria"
	}
}

// Sentinel returns the intent id recorded on transactions of this channel
func (m PaymentMethod) Sentinel() string {
	switch m {
	case PaymentMethodDatil:
		return IntentSentinelDatil
	case PaymentMethodPagoPlux:
		return IntentSentinelPagoPlux
	default:
		return IntentSentinelTransfer
	}
}

// IsValid reports whether the channel is known. Empty means bank transfer.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case "", PaymentMethodBankTransfer, PaymentMethodDatil, PaymentMethodPagoPlux:
		return true
	}
	return false
}

// Amount accepts both JSON numbers and numeric strings
type Amount float64

// UnmarshalJSON implements json.Unmarshaler
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*a = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*a = 0
			return nil
		}
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q", raw)
	}
	*a = Amount(value)
	return nil
}

// ============================================================================
// INBOUND PAYLOADS
// ============================================================================

// GatewayWebhook is the notification posted by PagoPlux after a link payment
type GatewayWebhook struct {
	Amount        Amount  `json:"amount"`
	CardInfo      string  `json:"cardInfo"`
	CardType      string  `json:"cardType"`
	ClientID      string  `json:"clientID"`
	ClientName    string  `json:"clientName"`
	Date          string  `json:"date"`
	TransactionID string  `json:"id_transaccion"`
	State         string  `json:"state"`
	Token         string  `json:"token"`
	TypePayment   string  `json:"typePayment"`
	TipoPago      string  `json:"tipoPago"`
	Bank          string  `json:"bank"`
	Detail        string  `json:"detail"`
	Extras        *string `json:"extras"`
}

// IntentID extracts the correlation id carried in the URL-encoded extras field
func (w *GatewayWebhook) IntentID() string {
	if w.Extras == nil || *w.Extras == "" {
		return ""
	}
	values, err := url.ParseQuery(*w.Extras)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(values.Get("intentId"))
}

// IsPaid reports whether the webhook confirms the payment
func (w *GatewayWebhook) IsPaid() bool {
	return strings.EqualFold(strings.TrimSpace(w.State), GatewayStatePaid)
}

// MethodLabel returns the payment method reported by the gateway
func (w *GatewayWebhook) MethodLabel() string {
	if w.TipoPago != "" {
		return w.TipoPago
	}
	if w.TypePayment != "" {
		return w.TypePayment
	}
	return PaymentMethodPagoPlux.Label()
}

// DirectTransfer is a payment reported by hand without a prior intent
type DirectTransfer struct {
	Amount           Amount        `json:"amount" binding:"required"`
	ClientName       string        `json:"clientName" binding:"required"`
	ClientID         string        `json:"clientId"` // tax id, doubles as RUC
	Email            string        `json:"email" binding:"required,email"`
	Phone            string        `json:"phone" binding:"required"`
	Description      string        `json:"description"`
	Country          string        `json:"country"`
	Bank             string        `json:"bank"`
	BusinessName     string        `json:"businessName" binding:"required"`
	BusinessType     BusinessType  `json:"businessType" binding:"business_type"`
	ClientType       ClientType    `json:"clientType"`
	ValueProposition string        `json:"valueProposition"`
	PaymentMethod    PaymentMethod `json:"paymentMethod"`
}

// Validate checks the fields binding tags cannot express
func (d *DirectTransfer) Validate() error {
	if d.Amount <= 0 {
		return fmt.Errorf("amount must be greater than zero")
	}
	if strings.TrimSpace(d.ClientName) == "" || strings.TrimSpace(d.Email) == "" ||
		strings.TrimSpace(d.Phone) == "" || strings.TrimSpace(d.BusinessName) == "" {
		return fmt.Errorf("clientName, email, phone and businessName are required")
	}
	if !d.PaymentMethod.IsValid() {
		return fmt.Errorf("the payment method '%s' is not valid", d.PaymentMethod)
	}
	if d.ClientType != "" && !d.ClientType.IsValid() {
		return fmt.Errorf("the client type '%s' is not valid", d.ClientType)
	}
	return nil
}

// PaymentNotification is the tagged union of everything the payment webhook accepts
type PaymentNotification struct {
	Kind     NotificationKind
	Gateway  *GatewayWebhook
	Transfer *DirectTransfer
}

// ParsePaymentNotification decodes a webhook body. Bodies declaring
// "kind":"direct_transfer" are manual reports; everything else is a gateway webhook.
func ParsePaymentNotification(body []byte) (*PaymentNotification, error) {
	var envelope struct {
		Kind NotificationKind `json:"kind"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("invalid payment notification: %w", err)
	}

	switch envelope.Kind {
	case NotificationDirectTransfer:
		var transfer DirectTransfer
		if err := json.Unmarshal(body, &transfer); err != nil {
			return nil, fmt.Errorf("invalid direct transfer: %w", err)
		}
		return &PaymentNotification{Kind: NotificationDirectTransfer, Transfer: &transfer}, nil
	case "", NotificationGateway:
		var webhook GatewayWebhook
		if err := json.Unmarshal(body, &webhook); err != nil {
			return nil, fmt.Errorf("invalid gateway webhook: %w", err)
		}
		return &PaymentNotification{Kind: NotificationGateway, Gateway: &webhook}, nil
	default:
		return nil, fmt.Errorf("unknown payment notification kind %q", envelope.Kind)
	}
}

// ConfirmedPayment is the normalized record both notification kinds reduce to
type ConfirmedPayment struct {
	Kind NotificationKind

	// IntentID is the resolved intent id, or a sentinel for direct transfers
	IntentID      string
	TransactionID string

	Amount        float64
	PaymentMethod string
	CardType      string
	CardInfo      string
	Bank          string
	Description   string
	PaidAt        time.Time

	ClientName string
	Email      string
	Phone      string
	TaxID      string
	Country    string
	ClientType ClientType

	BusinessName     string
	BusinessType     BusinessType
	ValueProposition string
}

// RUC returns the tax id usable as a business RUC, empty when there is none
func (p *ConfirmedPayment) RUC() string {
	return realTaxID(p.TaxID)
}

// NationalID returns the tax id usable as the client's national id, empty
// when the payer was billed as a final consumer
func (p *ConfirmedPayment) NationalID() string {
	return realTaxID(p.TaxID)
}

// IsPlaceholderTaxID reports whether id is blank or the final consumer placeholder
func IsPlaceholderTaxID(id string) bool {
	return realTaxID(id) == ""
}

func realTaxID(id string) string {
	id = strings.TrimSpace(id)
	if strings.EqualFold(id, finalConsumerTaxID) {
		return ""
	}
	return id
}
