package handlers

import (
	"context"
	"net/http"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Searcher runs the unified search. Implemented by *services.SearchService.
type Searcher interface {
	Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error)
}

// SearchHandler handles HTTP requests for the client search
type SearchHandler struct {
	service Searcher
	logger  *logrus.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service Searcher, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{
		service: service,
		logger:  logger,
	}
}

// Search handles GET /api/search
// @Summary Search clients and businesses
// @Tags Search
// @Produce json
// @Param q query string true "Search term"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} models.SearchResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	req := &models.SearchRequest{
		Query: c.Query("q"),
		Page:  queryInt(c, "page", services.DefaultPage),
		Limit: queryInt(c, "limit", services.SearchDefaultLimit),
	}

	response, err := h.service.Search(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err, "Error performing search")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"query":   req.Query,
		"results": response.Metadata.Total,
	}).Debug("Search completed")

	c.JSON(http.StatusOK, response)
}
