package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminRole is the only role granted to back-office operators
const AdminRole = "admin"

// AdminUser is a back-office operator of the consultancy dashboard
type AdminUser struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FullName     string     `json:"fullName" db:"full_name"`
	IsActive     bool       `json:"isActive" db:"is_active"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// AdminLoginRequest is the login payload
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// AdminLoginResponse carries the issued token pair
type AdminLoginResponse struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresIn    int64      `json:"expiresIn"`
	AdminUser    *AdminUser `json:"adminUser"`
}

// AdminRefreshRequest is the token refresh payload
type AdminRefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// AdminChangePasswordRequest is the password change payload
type AdminChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// AdminCreateRequest creates a new operator
type AdminCreateRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName" binding:"required"`
}

// AdminRefreshToken is a stored (hashed) refresh token of an operator
type AdminRefreshToken struct {
	ID          uuid.UUID  `db:"id"`
	AdminUserID uuid.UUID  `db:"admin_user_id"`
	TokenHash   string     `db:"token_hash"`
	IPAddress   *string    `db:"ip_address"`
	UserAgent   *string    `db:"user_agent"`
	ExpiresAt   time.Time  `db:"expires_at"`
	Revoked     bool       `db:"revoked"`
	RevokedAt   *time.Time `db:"revoked_at"`
	LastUsedAt  *time.Time `db:"last_used_at"`
	CreatedAt   time.Time  `db:"created_at"`
}
