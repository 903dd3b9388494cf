package models

import (
	"time"

	"github.com/google/uuid"
)

// ClientType classifies the size of a client account
type ClientType string

const (
	ClientTypeSmall  ClientType = "SMALL"
	ClientTypeMedium ClientType = "MEDIUM"
	ClientTypeLarge  ClientType = "LARGE"
)

// IsValid reports whether the client type is a known value
func (t ClientType) IsValid() bool {
	switch t {
	case ClientTypeSmall, ClientTypeMedium, ClientTypeLarge:
		return true
	}
	return false
}

// Defaults stored for clients created from a payment that carries no location data
const (
	DefaultClientCity    = "No especificada"
	DefaultClientCountry = "No especificado"
	DefaultBank          = "No especificado"
)

// Client is the paying customer that owns one or more businesses.
// Email is the lookup key but is not unique at the schema level.
type Client struct {
	ID                     uuid.UUID  `json:"id" db:"id"`
	Name                   string     `json:"name" db:"name"`
	Email                  string     `json:"email" db:"email"`
	Phone                  string     `json:"phone" db:"phone"`
	NationalID             *string    `json:"nationalIdentification,omitempty" db:"national_id"`
	Country                string     `json:"country" db:"country"`
	City                   string     `json:"city" db:"city"`
	ClientType             ClientType `json:"clientType" db:"client_type"`
	PreferredPaymentMethod *string    `json:"preferredPaymentMethod,omitempty" db:"preferred_payment_method"`
	LastPaymentDate        *time.Time `json:"lastPaymentDate,omitempty" db:"last_payment_date"`
	PaymentBank            *string    `json:"paymentBank,omitempty" db:"payment_bank"`
	CardType               *string    `json:"cardType,omitempty" db:"card_type"`
	CardInfo               *string    `json:"cardInfo,omitempty" db:"card_info"`
	CreatedAt              time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time  `json:"updatedAt" db:"updated_at"`
}

// PaymentSnapshot is the payment preference written on every confirmed payment
type PaymentSnapshot struct {
	Method   string
	Bank     string
	CardType string
	CardInfo string
	PaidAt   time.Time
}

// ClientFilter narrows the client listing
type ClientFilter struct {
	Email string
	Name  string
	Phone string
	Page  int
	Limit int
}

// ClientDetail is a client with its owned businesses and ledger
type ClientDetail struct {
	Client
	Businesses   []*Business    `json:"businesses"`
	Transactions []*Transaction `json:"transactions,omitempty"`
}
