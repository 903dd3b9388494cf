package handlers

import (
	"context"
	"net/http"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ClientManager is the client surface. Implemented by *services.ClientService.
type ClientManager interface {
	List(ctx context.Context, filter models.ClientFilter) ([]*models.Client, models.Pagination, error)
	Detail(ctx context.Context, clientID string) (*models.ClientDetail, error)
	OwnedBusiness(ctx context.Context, clientID, businessID string) (*models.Business, error)
	Forget(ctx context.Context, clientID string) error
}

// ClientHandler handles client listing, detail and the forget flow
type ClientHandler struct {
	clients ClientManager
	logger  *logrus.Logger
}

// NewClientHandler creates a new client handler
func NewClientHandler(clients ClientManager, logger *logrus.Logger) *ClientHandler {
	return &ClientHandler{
		clients: clients,
		logger:  logger,
	}
}

// List handles GET /api/clients
func (h *ClientHandler) List(c *gin.Context) {
	clients, page, err := h.clients.List(c.Request.Context(), models.ClientFilter{
		Email: c.Query("email"),
		Name:  c.Query("name"),
		Phone: c.Query("phone"),
		Page:  queryInt(c, "page", services.DefaultPage),
		Limit: queryInt(c, "limit", services.DefaultLimit),
	})
	if err != nil {
		respondError(c, h.logger, err, "Error listing clients")
		return
	}
	if clients == nil {
		clients = []*models.Client{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       clients,
		"pagination": page,
	})
}

// Detail handles GET /api/client/:clientId
func (h *ClientHandler) Detail(c *gin.Context) {
	detail, err := h.clients.Detail(c.Request.Context(), c.Param("clientId"))
	if err != nil {
		respondError(c, h.logger, err, "Error loading client")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// OwnedBusiness handles GET /api/client/:clientId/business/:businessId
func (h *ClientHandler) OwnedBusiness(c *gin.Context) {
	business, err := h.clients.OwnedBusiness(c.Request.Context(), c.Param("clientId"), c.Param("businessId"))
	if err != nil {
		respondError(c, h.logger, err, "Error loading business")
		return
	}
	c.JSON(http.StatusOK, business)
}

// Forget handles DELETE /api/client/:clientId
func (h *ClientHandler) Forget(c *gin.Context) {
	if err := h.clients.Forget(c.Request.Context(), c.Param("clientId")); err != nil {
		respondError(c, h.logger, err, "Error deleting client")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Client data deleted successfully."})
}
