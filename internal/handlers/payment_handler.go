package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/bakano/consultancy-backend/internal/middleware"
	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PaymentReconciler applies confirmed payments. Implemented by *services.ReconciliationService.
type PaymentReconciler interface {
	HandleNotification(ctx context.Context, body []byte, requester services.Requester) (*services.ReconcileResult, error)
	RecordTransfer(ctx context.Context, transfer *models.DirectTransfer, requester services.Requester) (*services.ReconcileResult, error)
}

// PaymentLinks generates links and reports on intents. Implemented by *services.PaymentService.
type PaymentLinks interface {
	GenerateLink(ctx context.Context, req *models.PaymentLinkRequest, requester services.Requester) (*models.PaymentLinkResponse, error)
	ListIntents(ctx context.Context, filter models.IntentFilter) ([]*models.PaymentIntent, models.Pagination, error)
	Summary(ctx context.Context, from, to *time.Time) (*models.PaymentsSummary, error)
}

// PaymentHandler handles payment webhooks, manual transfers and payment links
type PaymentHandler struct {
	reconciler PaymentReconciler
	payments   PaymentLinks
	logger     *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(reconciler PaymentReconciler, payments PaymentLinks, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		reconciler: reconciler,
		payments:   payments,
		logger:     logger,
	}
}

// ReceivePayment handles POST /api/webhook/receive-payment.
// Ignored and duplicate notifications are acknowledged with 200 so the
// gateway stops retrying.
func (h *PaymentHandler) ReceivePayment(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, middleware.MaxNotificationBody))
	if err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.reconciler.HandleNotification(c.Request.Context(), body, requesterFrom(c))
	if err != nil {
		respondError(c, h.logger, err, "Error processing payment")
		return
	}

	h.respondReconciled(c, result)
}

// RecordTransfer handles POST /api/transactions
// @Summary Record a manual transfer
// @Tags Payments
// @Accept json
// @Produce json
// @Param transfer body models.DirectTransfer true "Direct transfer"
// @Success 200 {object} services.ReconcileResult
// @Failure 400 {object} ErrorResponse
// @Router /api/transactions [post]
func (h *PaymentHandler) RecordTransfer(c *gin.Context) {
	var transfer models.DirectTransfer
	if err := c.ShouldBindJSON(&transfer); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.reconciler.RecordTransfer(c.Request.Context(), &transfer, requesterFrom(c))
	if err != nil {
		respondError(c, h.logger, err, "Error processing payment")
		return
	}

	h.respondReconciled(c, result)
}

func (h *PaymentHandler) respondReconciled(c *gin.Context, result *services.ReconcileResult) {
	if result.Outcome != services.OutcomeProcessed {
		c.JSON(http.StatusOK, SuccessResponse{Message: result.Message})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GeneratePaymentLink handles POST /api/pagoplux/generate-payment-link
func (h *PaymentHandler) GeneratePaymentLink(c *gin.Context) {
	var req models.PaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	response, err := h.payments.GenerateLink(c.Request.Context(), &req, requesterFrom(c))
	if err != nil {
		respondError(c, h.logger, err, "Error generating payment link")
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListIntents handles GET /api/pagoplux/payment-intents
func (h *PaymentHandler) ListIntents(c *gin.Context) {
	from, err := queryDate(c, "from", false)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	to, err := queryDate(c, "to", true)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	intents, page, err := h.payments.ListIntents(c.Request.Context(), models.IntentFilter{
		From:         from,
		To:           to,
		State:        models.IntentState(c.Query("state")),
		BusinessName: c.Query("businessName"),
		Email:        c.Query("email"),
		Page:         queryInt(c, "page", services.DefaultPage),
		Limit:        queryInt(c, "limit", services.DefaultLimit),
	})
	if err != nil {
		respondError(c, h.logger, err, "Error listing payment intents")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       intents,
		"pagination": page,
	})
}

// Summary handles GET /api/payments/summary
func (h *PaymentHandler) Summary(c *gin.Context) {
	from, err := queryDate(c, "from", false)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	to, err := queryDate(c, "to", true)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	summary, err := h.payments.Summary(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, h.logger, err, "Error building payments summary")
		return
	}

	c.JSON(http.StatusOK, summary)
}
