package handlers

import (
	"context"
	"net/http"

	"github.com/bakano/consultancy-backend/internal/middleware"
	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AdminAuthenticator is the operator authentication surface. Implemented by *services.AdminAuthService.
type AdminAuthenticator interface {
	Login(ctx context.Context, email, password string, requester services.Requester) (*models.AdminLoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.AdminLoginResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, adminID uuid.UUID, oldPassword, newPassword string) error
	CreateAdmin(ctx context.Context, email, password, fullName string) (*models.AdminUser, error)
	GetAdminProfile(ctx context.Context, adminID uuid.UUID) (*models.AdminUser, error)
}

// AdminAuthHandler handles admin authentication HTTP requests
type AdminAuthHandler struct {
	adminAuthService AdminAuthenticator
	logger           *logrus.Logger
}

// NewAdminAuthHandler creates a new admin auth handler
func NewAdminAuthHandler(adminAuthService AdminAuthenticator, logger *logrus.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{
		adminAuthService: adminAuthService,
		logger:           logger,
	}
}

// Login handles admin login requests
// @Summary Admin login
// @Tags Admin Auth
// @Accept json
// @Produce json
// @Param loginRequest body models.AdminLoginRequest true "Login credentials"
// @Success 200 {object} models.AdminLoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/admin/auth/login [post]
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	response, err := h.adminAuthService.Login(c.Request.Context(), req.Email, req.Password, requesterFrom(c))
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"email": req.Email,
			"error": err.Error(),
		}).Warn("Admin login failed")
		respondError(c, h.logger, err, "Login failed")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"admin_id": response.AdminUser.ID,
		"email":    response.AdminUser.Email,
	}).Info("Admin login successful")

	c.JSON(http.StatusOK, response)
}

// RefreshToken handles token refresh requests
// @Summary Refresh access token
// @Tags Admin Auth
// @Accept json
// @Produce json
// @Param refreshRequest body models.AdminRefreshRequest true "Refresh token"
// @Success 200 {object} models.AdminLoginResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/admin/auth/refresh [post]
func (h *AdminAuthHandler) RefreshToken(c *gin.Context) {
	var req models.AdminRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	response, err := h.adminAuthService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.logger.WithError(err).Warn("Token refresh failed")
		respondError(c, h.logger, err, "Token refresh failed")
		return
	}

	c.JSON(http.StatusOK, response)
}

// Logout revokes the refresh token
// @Router /api/admin/auth/logout [post]
func (h *AdminAuthHandler) Logout(c *gin.Context) {
	var req models.AdminRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.adminAuthService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		respondError(c, h.logger, err, "Logout failed")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Logged out successfully"})
}

// GetProfile retrieves the current admin's profile
// @Security BearerAuth
// @Router /api/admin/auth/profile [get]
func (h *AdminAuthHandler) GetProfile(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	admin, err := h.adminAuthService.GetAdminProfile(c.Request.Context(), userCtx.AdminID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to load profile")
		return
	}

	c.JSON(http.StatusOK, admin)
}

// ChangePassword handles password change requests
// @Security BearerAuth
// @Router /api/admin/auth/change-password [post]
func (h *AdminAuthHandler) ChangePassword(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.AdminChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.adminAuthService.ChangePassword(c.Request.Context(), userCtx.AdminID, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, h.logger, err, "Failed to change password")
		return
	}

	h.logger.WithField("admin_id", userCtx.AdminID).Info("Admin password changed")
	c.JSON(http.StatusOK, SuccessResponse{Message: "Password changed successfully"})
}

// CreateAdmin creates a new operator (only accessible by existing admins)
// @Security BearerAuth
// @Router /api/admin/auth/create [post]
func (h *AdminAuthHandler) CreateAdmin(c *gin.Context) {
	creator, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.AdminCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	admin, err := h.adminAuthService.CreateAdmin(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create admin")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"creator_id": creator.AdminID,
		"admin_id":   admin.ID,
		"email":      admin.Email,
	}).Info("Admin user created")

	c.JSON(http.StatusCreated, admin)
}
