package handlers

import (
	"context"
	"net/http"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// StoryBrandAccounts manages client accounts on the StoryBrand platform. Implemented by *services.StoryBrandService.
type StoryBrandAccounts interface {
	CreateAccount(ctx context.Context, req models.StoryBrandAccountRequest) (*models.MVPAccount, error)
	ChangePassword(ctx context.Context, req models.StoryBrandPasswordRequest) (*models.MVPAccount, error)
	DeleteAccount(ctx context.Context, clientID string) error
	ListByClient(ctx context.Context, clientID string) ([]*models.MVPAccount, error)
}

// StoryBrandHandler handles /api/storybrand-account
type StoryBrandHandler struct {
	accounts StoryBrandAccounts
	logger   *logrus.Logger
}

// NewStoryBrandHandler creates a new StoryBrand account handler
func NewStoryBrandHandler(accounts StoryBrandAccounts, logger *logrus.Logger) *StoryBrandHandler {
	return &StoryBrandHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// Create handles POST /api/storybrand-account
func (h *StoryBrandHandler) Create(c *gin.Context) {
	var req models.StoryBrandAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	account, err := h.accounts.CreateAccount(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err, "Error creating StoryBrand account")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "StoryBrand account created successfully",
		"account": account,
	})
}

// ChangePassword handles PUT /api/storybrand-account/password
func (h *StoryBrandHandler) ChangePassword(c *gin.Context) {
	var req models.StoryBrandPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	account, err := h.accounts.ChangePassword(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err, "Error changing StoryBrand password")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password updated successfully",
		"account": account,
	})
}

// Delete handles DELETE /api/storybrand-account/:userId, where userId is the client id
func (h *StoryBrandHandler) Delete(c *gin.Context) {
	if err := h.accounts.DeleteAccount(c.Request.Context(), c.Param("userId")); err != nil {
		respondError(c, h.logger, err, "Error deleting StoryBrand account")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "StoryBrand account deleted successfully"})
}

// ListByClient handles GET /api/storybrand-account/client/:clientId
func (h *StoryBrandHandler) ListByClient(c *gin.Context) {
	accounts, err := h.accounts.ListByClient(c.Request.Context(), c.Param("clientId"))
	if err != nil {
		respondError(c, h.logger, err, "Error listing StoryBrand accounts")
		return
	}
	c.JSON(http.StatusOK, accounts)
}
