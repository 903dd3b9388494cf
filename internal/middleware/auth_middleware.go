package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MaxNotificationBody bounds the payment notification body
const MaxNotificationBody = 1 << 20

// UserContextKey is the gin context key holding the authenticated operator
const UserContextKey = "user_context"

// UserContext is the back-office operator extracted from a valid access token
type UserContext struct {
	AdminID uuid.UUID
	Email   string
	Role    string
}

// AuthMiddleware validates the bearer access token and stores the operator in the context
func AuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c, jwtService) {
			c.Next()
		}
	}
}

// authenticate stores the operator on success and aborts the request otherwise
func authenticate(c *gin.Context, jwtService *jwt.Service) bool {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		abort(c, http.StatusUnauthorized, "Authorization header is required", "MISSING_AUTH_HEADER")
		return false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		abort(c, http.StatusUnauthorized, "Authorization header must be in format: Bearer <token>", "INVALID_AUTH_FORMAT")
		return false
	}

	claims, err := jwtService.ValidateAccessToken(strings.TrimSpace(parts[1]))
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			abort(c, http.StatusUnauthorized, "Access token has expired", "TOKEN_EXPIRED")
			return false
		}
		abort(c, http.StatusUnauthorized, "Invalid access token", "INVALID_TOKEN")
		return false
	}

	userCtx := UserContext{
		AdminID: claims.AdminID,
		Email:   claims.Email,
		Role:    claims.Role,
	}
	c.Set(UserContextKey, userCtx)
	c.Set("user_id", claims.AdminID.String())
	c.Set("email", claims.Email)
	return true
}

// AdminGuard returns the middleware chain protecting back-office routes.
// With authentication disabled every request passes untouched.
func AdminGuard(jwtService *jwt.Service, enabled bool, role string) []gin.HandlerFunc {
	if !enabled {
		return []gin.HandlerFunc{func(c *gin.Context) { c.Next() }}
	}
	return []gin.HandlerFunc{AuthMiddleware(jwtService), RequireRole(role)}
}

// DirectTransferGuard holds direct transfer notifications on the public
// payment webhook to the same credentials as the back-office routes. Gateway
// notifications pass untouched. The body is restored for the handler.
func DirectTransferGuard(jwtService *jwt.Service, enabled bool, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxNotificationBody))
		if err != nil {
			abort(c, http.StatusBadRequest, "Failed to read request body", "INVALID_BODY")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var envelope struct {
			Kind models.NotificationKind `json:"kind"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Kind == models.NotificationDirectTransfer {
			if !authenticate(c, jwtService) || !hasRole(c, role) {
				return
			}
		}
		c.Next()
	}
}

// GetUserContext returns the operator stored by AuthMiddleware
func GetUserContext(c *gin.Context) (UserContext, bool) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return UserContext{}, false
	}
	userCtx, ok := value.(UserContext)
	if !ok {
		return UserContext{}, false
	}
	return userCtx, true
}

// MustGetUserContext is GetUserContext for routes behind AuthMiddleware; it panics otherwise
func MustGetUserContext(c *gin.Context) UserContext {
	userCtx, exists := GetUserContext(c)
	if !exists {
		panic("user context not found; route is missing AuthMiddleware")
	}
	return userCtx
}

// RequireRole only lets operators holding one of the given roles through
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hasRole(c, roles...) {
			c.Next()
		}
	}
}

func hasRole(c *gin.Context, roles ...string) bool {
	userCtx, exists := GetUserContext(c)
	if !exists {
		abort(c, http.StatusUnauthorized, "User context not found", "MISSING_USER_CONTEXT")
		return false
	}
	for _, role := range roles {
		if userCtx.Role == role {
			return true
		}
	}
	abort(c, http.StatusForbidden, "Insufficient permissions", "INSUFFICIENT_PERMISSIONS")
	return false
}

func abort(c *gin.Context, status int, message, code string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": message,
		"code":  code,
	})
}
