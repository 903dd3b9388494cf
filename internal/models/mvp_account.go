package models

import (
	"time"

	"github.com/google/uuid"
)

// MVPTypeStoryBrand is the product type of StoryBrand platform accounts
const MVPTypeStoryBrand = "storybrand"

// MVPAccount links a client to an account on an external product platform
type MVPAccount struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ClientID       uuid.UUID `json:"client" db:"client_id"`
	MVPType        string    `json:"mvpType" db:"mvp_type"`
	ExternalUserID *string   `json:"externalUserId,omitempty" db:"external_user_id"`
	AccountData    JSONB     `json:"accountData" db:"account_data"`
	Active         bool      `json:"active" db:"active"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// StoryBrandAccountRequest is the body of the account creation operation
type StoryBrandAccountRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ClientID  string `json:"clientId" binding:"required"`
}

// StoryBrandPasswordRequest is the body of the password change operation
type StoryBrandPasswordRequest struct {
	ClientID    string `json:"clientId" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}
