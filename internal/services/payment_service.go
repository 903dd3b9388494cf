package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/pkg/pagoplux"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PaymentsSummaryCachePrefix namespaces the cached reporting summaries.
// Every reconciled payment drops the whole namespace.
const PaymentsSummaryCachePrefix = "payments:summary:"

const paymentsSummaryTTL = 5 * time.Minute

// Listing defaults
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// PaymentService generates payment links and reports on payments
type PaymentService struct {
	stores Stores
	events PaymentEventStore
	links  PaymentLinkCreator
	cache  Cache
	logger *logrus.Logger
	now    func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(stores Stores, events PaymentEventStore, links PaymentLinkCreator, cache Cache, logger *logrus.Logger) *PaymentService {
	return &PaymentService{
		stores: stores,
		events: events,
		links:  links,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// GenerateLink creates a hosted payment link and the pending intent correlating it
func (s *PaymentService) GenerateLink(ctx context.Context, req *models.PaymentLinkRequest, requester Requester) (*models.PaymentLinkResponse, error) {
	start := s.now()

	if req.Monto <= 0 || strings.TrimSpace(req.Descripcion) == "" || strings.TrimSpace(req.NombreCliente) == "" ||
		strings.TrimSpace(req.CorreoCliente) == "" || strings.TrimSpace(req.Telefono) == "" ||
		strings.TrimSpace(req.NombreNegocio) == "" {
		return nil, NewValidationError("Faltan campos obligatorios")
	}

	businessType := req.TipoNegocio
	if businessType == "" {
		businessType = models.BusinessTypeUnknown
	}
	if !businessType.IsValid() {
		return nil, NewValidationError("The business type '%s' is not valid.", req.TipoNegocio)
	}

	intentID := uuid.NewString()
	linkReq := pagoplux.LinkRequest{
		Amount:        float64(req.Monto),
		Description:   strings.TrimSpace(req.Descripcion),
		CustomerName:  strings.TrimSpace(req.NombreCliente),
		CustomerEmail: strings.TrimSpace(req.CorreoCliente),
		Phone:         strings.TrimSpace(req.Telefono),
		Prefix:        normalizePrefix(req.Prefijo),
		Address:       orDefault(req.Direccion, pagoplux.DefaultAddress),
		TaxID:         orDefault(req.CI, pagoplux.DefaultTaxID),
		IntentID:      intentID,
	}

	link, err := s.links.CreatePaymentLink(ctx, linkReq)
	if err != nil {
		recordPaymentEvent(ctx, s.events, s.logger,
			models.NewPaymentEvent(models.PaymentEventLinkFailed, models.PaymentSourceGatewayAPI).
				SetIntent(intentID).SetAmount(linkReq.Amount).SetError(err),
			requester, start)
		s.logger.WithError(err).WithField("intent_id", intentID).Error("Failed to create payment link")
		return nil, newError(ErrUpstream, "Could not generate the payment link.")
	}

	intent := &models.PaymentIntent{
		IntentID:     intentID,
		State:        models.IntentStatePending,
		Name:         linkReq.CustomerName,
		Email:        linkReq.CustomerEmail,
		Phone:        linkReq.Phone,
		PhonePrefix:  &linkReq.Prefix,
		Address:      &linkReq.Address,
		TaxID:        &linkReq.TaxID,
		Amount:       linkReq.Amount,
		Description:  linkReq.Description,
		PaymentLink:  link,
		BusinessName: strings.TrimSpace(req.NombreNegocio),
		BusinessType: businessType,
	}
	if err := s.stores.Intents.Create(ctx, intent); err != nil {
		return nil, err
	}

	recordPaymentEvent(ctx, s.events, s.logger,
		models.NewPaymentEvent(models.PaymentEventLinkGenerated, models.PaymentSourceGatewayAPI).
			SetIntent(intentID).SetAmount(linkReq.Amount).SetOutcome(200, link),
		requester, start)

	s.logger.WithFields(logrus.Fields{
		"intent_id": intentID,
		"business":  intent.BusinessName,
		"amount":    intent.Amount,
	}).Info("Payment link generated")

	return &models.PaymentLinkResponse{URL: link, IntentID: intentID}, nil
}

// ListIntents returns one page of intents, newest first
func (s *PaymentService) ListIntents(ctx context.Context, filter models.IntentFilter) ([]*models.PaymentIntent, models.Pagination, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	if filter.State != "" && !filter.State.IsValid() {
		filter.State = ""
	}

	intents, total, err := s.stores.Intents.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return intents, models.NewPagination(total, filter.Page, filter.Limit), nil
}

// Summary aggregates intents and confirmed payments created within the window
func (s *PaymentService) Summary(ctx context.Context, from, to *time.Time) (*models.PaymentsSummary, error) {
	key := PaymentsSummaryCachePrefix + windowKey(from) + ":" + windowKey(to)

	var cached models.PaymentsSummary
	hit, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read payments summary cache")
	}
	if hit {
		return &cached, nil
	}

	intents, err := s.stores.Intents.Summary(ctx, from, to)
	if err != nil {
		return nil, err
	}
	confirmed, err := s.stores.Transactions.Summary(ctx, from, to)
	if err != nil {
		return nil, err
	}

	summary := &models.PaymentsSummary{
		DateRange:         models.DateRange{From: from, To: to},
		Intents:           *intents,
		ConfirmedPayments: *confirmed,
	}
	if err := s.cache.SetJSON(ctx, key, summary, paymentsSummaryTTL); err != nil {
		s.logger.WithError(err).Warn("Failed to cache payments summary")
	}
	return summary, nil
}

func windowKey(t *time.Time) string {
	if t == nil {
		return "open"
	}
	return fmt.Sprintf("%d", t.Unix())
}

// normalizePrefix accepts "593", "+593" or nothing
func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return pagoplux.DefaultPrefix
	}
	if !strings.HasPrefix(prefix, "+") {
		prefix = "+" + prefix
	}
	return prefix
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

// normalizePage applies listing defaults and bounds
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}
