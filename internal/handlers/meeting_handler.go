package handlers

import (
	"context"
	"net/http"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MeetingManager is the meeting surface. Implemented by *services.MeetingService.
type MeetingManager interface {
	HandleAppointment(ctx context.Context, payload *models.AppointmentWebhook) (*services.AppointmentResult, error)
	AssignMeeting(ctx context.Context, meetingID string, req models.MeetingAssignment) (*models.Meeting, error)
	UpdateStatus(ctx context.Context, meetingID string, status models.MeetingStatus) (*models.Meeting, error)
	ClientMeetingStatus(ctx context.Context, clientID string) (*models.MeetingStatusSummary, error)
	ConfirmStrategyMeeting(ctx context.Context, clientID, businessID string) (*models.Meeting, error)
	CompleteDataStrategyMeeting(ctx context.Context, clientID, businessID string) (*models.Meeting, error)
	ListUnassigned(ctx context.Context) ([]*models.Meeting, error)
	ListByClient(ctx context.Context, clientID string) ([]*models.Meeting, error)
	DeleteMeeting(ctx context.Context, meetingID string) error
}

type meetingStatusRequest struct {
	Status models.MeetingStatus `json:"status" binding:"required"`
}

type meetingBusinessRequest struct {
	BusinessID string `json:"businessId" binding:"required"`
}

// MeetingHandler handles calendar webhooks and meeting management
type MeetingHandler struct {
	meetings MeetingManager
	logger   *logrus.Logger
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(meetings MeetingManager, logger *logrus.Logger) *MeetingHandler {
	return &MeetingHandler{
		meetings: meetings,
		logger:   logger,
	}
}

// ReceiveAppointment handles POST /api/webhoook/client/appointment
func (h *MeetingHandler) ReceiveAppointment(c *gin.Context) {
	var payload models.AppointmentWebhook
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.meetings.HandleAppointment(c.Request.Context(), &payload)
	if err != nil {
		respondError(c, h.logger, err, "Error processing appointment")
		return
	}

	status := http.StatusOK
	if result.Outcome == services.AppointmentCreated {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// AssignMeeting handles PATCH /api/client/meetings/:meetingId/asign
func (h *MeetingHandler) AssignMeeting(c *gin.Context) {
	var req models.MeetingAssignment
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	meeting, err := h.meetings.AssignMeeting(c.Request.Context(), c.Param("meetingId"), req)
	if err != nil {
		respondError(c, h.logger, err, "Error assigning meeting")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Meeting assigned successfully.",
		"meeting": meeting,
	})
}

// UpdateStatus handles PATCH /api/meeting/:meetingId/status
func (h *MeetingHandler) UpdateStatus(c *gin.Context) {
	var req meetingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	meeting, err := h.meetings.UpdateStatus(c.Request.Context(), c.Param("meetingId"), req.Status)
	if err != nil {
		respondError(c, h.logger, err, "Error updating meeting status")
		return
	}

	c.JSON(http.StatusOK, meeting)
}

// ListUnassigned handles GET /api/client/meeting/unassigned
func (h *MeetingHandler) ListUnassigned(c *gin.Context) {
	meetings, err := h.meetings.ListUnassigned(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Error listing meetings")
		return
	}
	if meetings == nil {
		meetings = []*models.Meeting{}
	}
	c.JSON(http.StatusOK, meetings)
}

// ClientMeetingStatus handles GET /api/clients/:clientId/meeting-status
func (h *MeetingHandler) ClientMeetingStatus(c *gin.Context) {
	summary, err := h.meetings.ClientMeetingStatus(c.Request.Context(), c.Param("clientId"))
	if err != nil {
		respondError(c, h.logger, err, "Error reading meeting status")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ConfirmStrategyMeeting handles POST /api/client/:clientId/confirm-strategy-meeting
func (h *MeetingHandler) ConfirmStrategyMeeting(c *gin.Context) {
	var req meetingBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	meeting, err := h.meetings.ConfirmStrategyMeeting(c.Request.Context(), c.Param("clientId"), req.BusinessID)
	if err != nil {
		respondError(c, h.logger, err, "Error confirming meeting")
		return
	}
	c.JSON(http.StatusOK, meeting)
}

// CompleteDataStrategyMeeting handles POST /api/client/:clientId/complete-data-strategy-meeting
func (h *MeetingHandler) CompleteDataStrategyMeeting(c *gin.Context) {
	var req meetingBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	meeting, err := h.meetings.CompleteDataStrategyMeeting(c.Request.Context(), c.Param("clientId"), req.BusinessID)
	if err != nil {
		respondError(c, h.logger, err, "Error completing meeting")
		return
	}
	c.JSON(http.StatusOK, meeting)
}

// ListByClient handles GET /api/client/:clientId/all-meetings
func (h *MeetingHandler) ListByClient(c *gin.Context) {
	meetings, err := h.meetings.ListByClient(c.Request.Context(), c.Param("clientId"))
	if err != nil {
		respondError(c, h.logger, err, "Error listing meetings")
		return
	}
	if meetings == nil {
		meetings = []*models.Meeting{}
	}
	c.JSON(http.StatusOK, meetings)
}

// DeleteMeeting handles DELETE /api/meeting/:meetingId
func (h *MeetingHandler) DeleteMeeting(c *gin.Context) {
	if err := h.meetings.DeleteMeeting(c.Request.Context(), c.Param("meetingId")); err != nil {
		respondError(c, h.logger, err, "Error deleting meeting")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Meeting deleted successfully."})
}
