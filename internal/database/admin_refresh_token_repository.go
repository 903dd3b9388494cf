package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AdminRefreshTokenRepository handles operator refresh token persistence.
// Tokens are only ever stored as SHA-256 hashes.
type AdminRefreshTokenRepository struct {
	db sqlx.ExtContext
}

// NewAdminRefreshTokenRepository creates a new admin refresh token repository
func NewAdminRefreshTokenRepository(db sqlx.ExtContext) *AdminRefreshTokenRepository {
	return &AdminRefreshTokenRepository{db: db}
}

func hashAdminToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Store records a newly issued refresh token
func (r *AdminRefreshTokenRepository) Store(ctx context.Context, adminUserID uuid.UUID, token, ipAddress, userAgent string, expiresAt time.Time) error {
	query := `
		INSERT INTO admin_refresh_tokens (
			id, admin_user_id, token_hash, ip_address, user_agent, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		uuid.New(),
		adminUserID,
		hashAdminToken(token),
		nullableString(ipAddress),
		nullableString(userAgent),
		expiresAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to store admin refresh token: %w", err)
	}

	return nil
}

// Get retrieves a refresh token record by the raw token
func (r *AdminRefreshTokenRepository) Get(ctx context.Context, token string) (*models.AdminRefreshToken, error) {
	var refreshToken models.AdminRefreshToken

	query := `
		SELECT id, admin_user_id, token_hash, ip_address, user_agent, expires_at,
		       revoked, revoked_at, last_used_at, created_at
		FROM admin_refresh_tokens
		WHERE token_hash = $1
	`

	err := sqlx.GetContext(ctx, r.db, &refreshToken, query, hashAdminToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get admin refresh token: %w", err)
	}

	return &refreshToken, nil
}

// Revoke revokes a specific refresh token
func (r *AdminRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	query := `
		UPDATE admin_refresh_tokens
		SET revoked = TRUE,
		    revoked_at = $1
		WHERE token_hash = $2 AND revoked = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), hashAdminToken(token))
	if err != nil {
		return fmt.Errorf("failed to revoke admin token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("admin token not found or already revoked")
	}

	return nil
}

// RevokeAll revokes every refresh token of an operator
func (r *AdminRefreshTokenRepository) RevokeAll(ctx context.Context, adminUserID uuid.UUID) error {
	query := `
		UPDATE admin_refresh_tokens
		SET revoked = TRUE,
		    revoked_at = $1
		WHERE admin_user_id = $2 AND revoked = FALSE
	`

	if _, err := r.db.ExecContext(ctx, query, time.Now(), adminUserID); err != nil {
		return fmt.Errorf("failed to revoke all admin user tokens: %w", err)
	}
	return nil
}

// TouchLastUsed updates the last_used_at timestamp of a token
func (r *AdminRefreshTokenRepository) TouchLastUsed(ctx context.Context, token string) error {
	query := `UPDATE admin_refresh_tokens SET last_used_at = $1 WHERE token_hash = $2`

	if _, err := r.db.ExecContext(ctx, query, time.Now(), hashAdminToken(token)); err != nil {
		return fmt.Errorf("failed to update admin token last used timestamp: %w", err)
	}
	return nil
}

// CleanupExpired removes expired tokens and revoked tokens older than the retention window
func (r *AdminRefreshTokenRepository) CleanupExpired(ctx context.Context, revokedRetention time.Duration) (int64, error) {
	now := time.Now()
	query := `
		DELETE FROM admin_refresh_tokens
		WHERE expires_at < $1 OR (revoked = TRUE AND revoked_at < $2)
	`

	result, err := r.db.ExecContext(ctx, query, now, now.Add(-revokedRetention))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup admin tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
