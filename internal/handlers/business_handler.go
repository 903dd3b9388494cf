package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"sort"
	"time"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BusinessManager is the business surface. Implemented by *services.BusinessService.
type BusinessManager interface {
	Get(ctx context.Context, businessID string) (*models.Business, error)
	SubmitIntake(ctx context.Context, businessID string, intake models.ConsultancyIntake, files []services.IntakeFile) (*models.IntakeResult, error)
	Edit(ctx context.Context, businessID string, payload map[string]interface{}) (*models.Business, error)
	AddManager(ctx context.Context, businessID string, req models.ManagerRequest) (*models.Manager, error)
	ListManagers(ctx context.Context, businessID string) ([]*models.Manager, error)
	RemoveManager(ctx context.Context, businessID, managerID string) error
	CreateHandoff(ctx context.Context, businessID string, req models.HandoffRequest) (*models.Handoff, error)
	GetHandoff(ctx context.Context, businessID string) (*models.Handoff, error)
	Delete(ctx context.Context, businessID string) error
	SendUploadReminders(ctx context.Context, minAge time.Duration) (int, error)
}

// UploadLimits bounds the intake form uploads
type UploadLimits struct {
	MaxFiles       int
	MaxFileSize    int64
	ReminderMinAge time.Duration
}

// BusinessHandler handles businesses, their intake form, managers and handoff
type BusinessHandler struct {
	businesses BusinessManager
	limits     UploadLimits
	logger     *logrus.Logger
}

// NewBusinessHandler creates a new business handler
func NewBusinessHandler(businesses BusinessManager, limits UploadLimits, logger *logrus.Logger) *BusinessHandler {
	return &BusinessHandler{
		businesses: businesses,
		limits:     limits,
		logger:     logger,
	}
}

// Get handles GET /api/business/:businessId
func (h *BusinessHandler) Get(c *gin.Context) {
	business, err := h.businesses.Get(c.Request.Context(), c.Param("businessId"))
	if err != nil {
		respondError(c, h.logger, err, "Error loading business")
		return
	}
	c.JSON(http.StatusOK, business)
}

// SubmitIntake handles POST /api/business/consultancy-data/:businessId (multipart)
func (h *BusinessHandler) SubmitIntake(c *gin.Context) {
	var intake models.ConsultancyIntake
	if err := c.ShouldBind(&intake); err != nil {
		badRequest(c, err)
		return
	}

	files, err := h.collectFiles(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	defer closeAll(files)

	result, err := h.businesses.SubmitIntake(c.Request.Context(), c.Param("businessId"), intake, files)
	if err != nil {
		respondError(c, h.logger, err, "Error saving consultancy data")
		return
	}
	c.JSON(http.StatusOK, result)
}

// collectFiles opens every uploaded file after checking the count and size limits
func (h *BusinessHandler) collectFiles(c *gin.Context) ([]services.IntakeFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if err == http.ErrNotMultipart {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid multipart form: %v", err)
	}

	fields := make([]string, 0, len(form.File))
	total := 0
	for field, headers := range form.File {
		fields = append(fields, field)
		total += len(headers)
	}
	if total > h.limits.MaxFiles {
		return nil, fmt.Errorf("too many files: at most %d are allowed", h.limits.MaxFiles)
	}
	sort.Strings(fields)

	var files []services.IntakeFile
	for _, field := range fields {
		for _, header := range form.File[field] {
			if h.limits.MaxFileSize > 0 && header.Size > h.limits.MaxFileSize {
				closeAll(files)
				return nil, fmt.Errorf("file %s exceeds the %d MB limit", header.Filename, h.limits.MaxFileSize>>20)
			}
			body, err := header.Open()
			if err != nil {
				closeAll(files)
				return nil, fmt.Errorf("could not read file %s", header.Filename)
			}
			files = append(files, services.IntakeFile{
				Field:       field,
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Body:        body,
			})
		}
	}
	return files, nil
}

func closeAll(files []services.IntakeFile) {
	for _, f := range files {
		if closer, ok := f.Body.(multipart.File); ok {
			closer.Close()
		}
	}
}

// Edit handles PATCH /api/business/edit/:businessId
func (h *BusinessHandler) Edit(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err)
		return
	}

	business, err := h.businesses.Edit(c.Request.Context(), c.Param("businessId"), payload)
	if err != nil {
		respondError(c, h.logger, err, "Error updating business")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Business updated successfully.",
		"business": business,
	})
}

// AddManager handles POST /api/business/:businessId/managers
func (h *BusinessHandler) AddManager(c *gin.Context) {
	var req models.ManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	manager, err := h.businesses.AddManager(c.Request.Context(), c.Param("businessId"), req)
	if err != nil {
		respondError(c, h.logger, err, "Error adding manager")
		return
	}
	c.JSON(http.StatusCreated, manager)
}

// ListManagers handles GET /api/business/:businessId/managers
func (h *BusinessHandler) ListManagers(c *gin.Context) {
	managers, err := h.businesses.ListManagers(c.Request.Context(), c.Param("businessId"))
	if err != nil {
		respondError(c, h.logger, err, "Error listing managers")
		return
	}
	if managers == nil {
		managers = []*models.Manager{}
	}
	c.JSON(http.StatusOK, managers)
}

// RemoveManager handles DELETE /api/business/:businessId/managers/:managerId
func (h *BusinessHandler) RemoveManager(c *gin.Context) {
	if err := h.businesses.RemoveManager(c.Request.Context(), c.Param("businessId"), c.Param("managerId")); err != nil {
		respondError(c, h.logger, err, "Error removing manager")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Manager removed successfully."})
}

// CreateHandoff handles POST /api/business/:businessId/handoff
func (h *BusinessHandler) CreateHandoff(c *gin.Context) {
	var req models.HandoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	handoff, err := h.businesses.CreateHandoff(c.Request.Context(), c.Param("businessId"), req)
	if err != nil {
		respondError(c, h.logger, err, "Error creating handoff")
		return
	}
	c.JSON(http.StatusCreated, handoff)
}

// GetHandoff handles GET /api/business/:businessId/handoff
func (h *BusinessHandler) GetHandoff(c *gin.Context) {
	handoff, err := h.businesses.GetHandoff(c.Request.Context(), c.Param("businessId"))
	if err != nil {
		respondError(c, h.logger, err, "Error loading handoff")
		return
	}
	c.JSON(http.StatusOK, handoff)
}

// Delete handles DELETE /api/business/:businessId
func (h *BusinessHandler) Delete(c *gin.Context) {
	if err := h.businesses.Delete(c.Request.Context(), c.Param("businessId")); err != nil {
		respondError(c, h.logger, err, "Error deleting business")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Business deleted successfully."})
}

// SendUploadReminders handles POST /api/business/send-upload-reminders
func (h *BusinessHandler) SendUploadReminders(c *gin.Context) {
	sent, err := h.businesses.SendUploadReminders(c.Request.Context(), h.limits.ReminderMinAge)
	if err != nil {
		respondError(c, h.logger, err, "Error sending upload reminders")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Upload reminders sent.",
		"sent":    sent,
	})
}
