package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType is what happened to a payment
type PaymentEventType string

const (
	PaymentEventLinkGenerated    PaymentEventType = "link_generated"
	PaymentEventLinkFailed       PaymentEventType = "link_failed"
	PaymentEventWebhookReceived  PaymentEventType = "webhook_received"
	PaymentEventConfirmed        PaymentEventType = "payment_confirmed"
	PaymentEventIgnored          PaymentEventType = "payment_ignored"
	PaymentEventAlreadyProcessed PaymentEventType = "payment_already_processed"
	PaymentEventRejected         PaymentEventType = "payment_rejected"
	PaymentEventFailed           PaymentEventType = "payment_failed"
)

// PaymentEventSource is where the event originated
type PaymentEventSource string

const (
	PaymentSourceGatewayWebhook PaymentEventSource = "pagoplux_webhook"
	PaymentSourceGatewayAPI     PaymentEventSource = "pagoplux_api"
	PaymentSourceBackOffice     PaymentEventSource = "back_office"
)

// PaymentEvent is an immutable audit row for payment links and notifications
type PaymentEvent struct {
	ID               uuid.UUID          `json:"id" db:"id"`
	EventType        PaymentEventType   `json:"eventType" db:"event_type"`
	Source           PaymentEventSource `json:"source" db:"source"`
	IntentID         *string            `json:"intentId,omitempty" db:"intent_id"`
	TransactionID    *string            `json:"transactionId,omitempty" db:"transaction_id"`
	Amount           *float64           `json:"amount,omitempty" db:"amount"`
	GatewayState     *string            `json:"gatewayState,omitempty" db:"gateway_state"`
	Message          *string            `json:"message,omitempty" db:"message"`
	RawBody          *string            `json:"rawBody,omitempty" db:"raw_body"`
	HTTPStatusCode   *int               `json:"httpStatusCode,omitempty" db:"http_status_code"`
	ErrorMessage     *string            `json:"errorMessage,omitempty" db:"error_message"`
	ProcessingTimeMs *int               `json:"processingTimeMs,omitempty" db:"processing_time_ms"`
	IPAddress        *string            `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent        *string            `json:"userAgent,omitempty" db:"user_agent"`
	DeviceType       *string            `json:"deviceType,omitempty" db:"device_type"`
	Browser          *string            `json:"browser,omitempty" db:"browser"`
	OS               *string            `json:"os,omitempty" db:"os"`
	CreatedAt        time.Time          `json:"createdAt" db:"created_at"`
}

// NewPaymentEvent starts an audit entry
func NewPaymentEvent(eventType PaymentEventType, source PaymentEventSource) *PaymentEvent {
	return &PaymentEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Source:    source,
		CreatedAt: time.Now(),
	}
}

// SetIntent records the correlated intent id
func (e *PaymentEvent) SetIntent(intentID string) *PaymentEvent {
	if intentID != "" {
		e.IntentID = &intentID
	}
	return e
}

// SetTransaction records the resulting transaction id
func (e *PaymentEvent) SetTransaction(transactionID string) *PaymentEvent {
	if transactionID != "" {
		e.TransactionID = &transactionID
	}
	return e
}

// SetAmount records the reported amount
func (e *PaymentEvent) SetAmount(amount float64) *PaymentEvent {
	e.Amount = &amount
	return e
}

// SetGatewayState records the state reported by the gateway
func (e *PaymentEvent) SetGatewayState(state string) *PaymentEvent {
	if state != "" {
		e.GatewayState = &state
	}
	return e
}

// SetOutcome records the response status and message returned to the caller
func (e *PaymentEvent) SetOutcome(statusCode int, message string) *PaymentEvent {
	e.HTTPStatusCode = &statusCode
	if message != "" {
		e.Message = &message
	}
	return e
}

// SetRawBody stores the raw notification body
func (e *PaymentEvent) SetRawBody(body string) *PaymentEvent {
	e.RawBody = &body
	return e
}

// SetError records an error message
func (e *PaymentEvent) SetError(err error) *PaymentEvent {
	if err != nil {
		message := err.Error()
		e.ErrorMessage = &message
	}
	return e
}

// SetRequester records the caller IP and parsed user agent
func (e *PaymentEvent) SetRequester(ip, userAgent, deviceType, browser, os string) *PaymentEvent {
	for _, field := range []struct {
		dst **string
		val string
	}{
		{&e.IPAddress, ip},
		{&e.UserAgent, userAgent},
		{&e.DeviceType, deviceType},
		{&e.Browser, browser},
		{&e.OS, os},
	} {
		if field.val != "" {
			v := field.val
			*field.dst = &v
		}
	}
	return e
}

// SetProcessingTime records the time elapsed since start
func (e *PaymentEvent) SetProcessingTime(start time.Time) *PaymentEvent {
	ms := int(time.Since(start).Milliseconds())
	e.ProcessingTimeMs = &ms
	return e
}
