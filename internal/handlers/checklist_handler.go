package handlers

import (
	"context"
	"net/http"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ChecklistManager is the onboarding checklist surface. Implemented by *services.ChecklistService.
type ChecklistManager interface {
	Get(ctx context.Context, businessID string) (*models.Checklist, error)
	SetItem(ctx context.Context, businessID, phaseID, itemID string, update models.ChecklistItemUpdate) (*models.Checklist, error)
	NextPhase(ctx context.Context, businessID string) (*models.Checklist, error)
	Progress(ctx context.Context, businessID string) (*models.ChecklistProgress, error)
	UpdateObservations(ctx context.Context, businessID, phaseID string, update models.ChecklistObservationsUpdate) (*models.Checklist, error)
}

// ChecklistHandler handles the onboarding checklist of a business
type ChecklistHandler struct {
	checklists ChecklistManager
	logger     *logrus.Logger
}

// NewChecklistHandler creates a new checklist handler
func NewChecklistHandler(checklists ChecklistManager, logger *logrus.Logger) *ChecklistHandler {
	return &ChecklistHandler{
		checklists: checklists,
		logger:     logger,
	}
}

// Get handles GET /api/checklist/:businessId
func (h *ChecklistHandler) Get(c *gin.Context) {
	checklist, err := h.checklists.Get(c.Request.Context(), c.Param("businessId"))
	if err != nil {
		respondError(c, h.logger, err, "Error loading checklist")
		return
	}
	c.JSON(http.StatusOK, checklist)
}

// SetItem handles PATCH /api/checklist/:businessId/phase/:phaseId/item/:itemId
func (h *ChecklistHandler) SetItem(c *gin.Context) {
	var update models.ChecklistItemUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err)
		return
	}

	checklist, err := h.checklists.SetItem(c.Request.Context(), c.Param("businessId"), c.Param("phaseId"), c.Param("itemId"), update)
	if err != nil {
		respondError(c, h.logger, err, "Error updating checklist item")
		return
	}
	c.JSON(http.StatusOK, checklist)
}

// NextPhase handles POST /api/checklist/:businessId/next-phase
func (h *ChecklistHandler) NextPhase(c *gin.Context) {
	checklist, err := h.checklists.NextPhase(c.Request.Context(), c.Param("businessId"))
	if err != nil {
		respondError(c, h.logger, err, "Error advancing checklist")
		return
	}
	c.JSON(http.StatusOK, checklist)
}

// Progress handles GET /api/checklist/:businessId/progress
func (h *ChecklistHandler) Progress(c *gin.Context) {
	progress, err := h.checklists.Progress(c.Request.Context(), c.Param("businessId"))
	if err != nil {
		respondError(c, h.logger, err, "Error computing checklist progress")
		return
	}
	c.JSON(http.StatusOK, progress)
}

// UpdateObservations handles PATCH /api/checklist/:businessId/phase/:phaseId/observations
func (h *ChecklistHandler) UpdateObservations(c *gin.Context) {
	var update models.ChecklistObservationsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err)
		return
	}

	checklist, err := h.checklists.UpdateObservations(c.Request.Context(), c.Param("businessId"), c.Param("phaseId"), update)
	if err != nil {
		respondError(c, h.logger, err, "Error updating observations")
		return
	}
	c.JSON(http.StatusOK, checklist)
}
