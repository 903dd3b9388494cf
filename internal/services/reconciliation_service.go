package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bakano/consultancy-backend/internal/database"
	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReconcileOutcome tells which class of answer a payment notification got
type ReconcileOutcome string

const (
	OutcomeProcessed        ReconcileOutcome = "processed"
	OutcomeIgnored          ReconcileOutcome = "ignored"
	OutcomeAlreadyProcessed ReconcileOutcome = "already_processed"
)

// Acknowledgement messages of notifications that are not processed
const (
	MessageStateIgnored     = "Estado ignorado: no pagado"
	MessageIntentMissing    = "Notificación ignorada: no contiene intentId"
	MessageIntentUnknown    = "Notificación ignorada: intent no encontrado"
	MessageAlreadyProcessed = "Pago ya procesado"
)

// ReconcileResult is the answer returned to the payment notifier
type ReconcileResult struct {
	Outcome               ReconcileOutcome `json:"-"`
	Message               string           `json:"message"`
	IsFirstPayment        bool             `json:"isFirstPayment"`
	WasNewBusinessCreated bool             `json:"wasNewBusinessCreated"`
	HasRucConflict        bool             `json:"hasRucConflict"`
	TransactionID         string           `json:"transactionId,omitempty"`
	ClientID              *uuid.UUID       `json:"clientId,omitempty"`
	BusinessID            *uuid.UUID       `json:"businessId,omitempty"`
}

// Requester identifies the caller of a payment endpoint for the audit trail
type Requester struct {
	IP        string
	UserAgent string
}

// ReconciliationService turns confirmed payments into client, business and
// ledger state exactly once per payment
type ReconciliationService struct {
	stores Stores
	tx     Transactor
	events PaymentEventStore
	mailer Mailer
	cache  Cache
	logger *logrus.Logger
	now    func() time.Time
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(stores Stores, tx Transactor, events PaymentEventStore, mailer Mailer, cache Cache, logger *logrus.Logger) *ReconciliationService {
	return &ReconciliationService{
		stores: stores,
		tx:     tx,
		events: events,
		mailer: mailer,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// HandleNotification processes a raw payment webhook body. Gateway webhooks
// and direct-transfer reports share the endpoint and are told apart by kind.
func (s *ReconciliationService) HandleNotification(ctx context.Context, body []byte, requester Requester) (*ReconcileResult, error) {
	start := s.now()

	notification, err := models.ParsePaymentNotification(body)
	if err != nil {
		s.record(ctx, models.NewPaymentEvent(models.PaymentEventRejected, models.PaymentSourceGatewayWebhook).
			SetRawBody(string(body)).SetError(err), requester, start)
		return nil, NewValidationError("Invalid payment notification.")
	}

	switch notification.Kind {
	case models.NotificationDirectTransfer:
		return s.reconcileTransfer(ctx, notification.Transfer, models.PaymentSourceGatewayWebhook, string(body), requester, start)
	case models.NotificationGateway:
		return s.reconcileGateway(ctx, notification.Gateway, string(body), requester, start)
	default:
		return nil, NewValidationError("Unsupported payment notification kind '%s'.", notification.Kind)
	}
}

// RecordTransfer registers a payment reported by hand from the back office
func (s *ReconciliationService) RecordTransfer(ctx context.Context, transfer *models.DirectTransfer, requester Requester) (*ReconcileResult, error) {
	return s.reconcileTransfer(ctx, transfer, models.PaymentSourceBackOffice, "", requester, s.now())
}

func (s *ReconciliationService) reconcileGateway(ctx context.Context, webhook *models.GatewayWebhook, rawBody string, requester Requester, start time.Time) (*ReconcileResult, error) {
	intentID := webhook.IntentID()
	event := func(eventType models.PaymentEventType) *models.PaymentEvent {
		return models.NewPaymentEvent(eventType, models.PaymentSourceGatewayWebhook).
			SetIntent(intentID).
			SetTransaction(webhook.TransactionID).
			SetAmount(float64(webhook.Amount)).
			SetGatewayState(webhook.State).
			SetRawBody(rawBody)
	}
	ignore := func(eventType models.PaymentEventType, outcome ReconcileOutcome, message string) *ReconcileResult {
		s.logger.WithFields(logrus.Fields{
			"intent_id": intentID,
			"state":     webhook.State,
		}).Info(message)
		s.record(ctx, event(eventType).SetOutcome(200, message), requester, start)
		return &ReconcileResult{Outcome: outcome, Message: message}
	}

	if !webhook.IsPaid() {
		return ignore(models.PaymentEventIgnored, OutcomeIgnored, MessageStateIgnored), nil
	}
	if intentID == "" {
		return ignore(models.PaymentEventIgnored, OutcomeIgnored, MessageIntentMissing), nil
	}

	intent, err := s.stores.Intents.GetByIntentID(ctx, intentID)
	if err != nil {
		s.record(ctx, event(models.PaymentEventFailed).SetError(err), requester, start)
		return nil, err
	}
	if intent == nil {
		return ignore(models.PaymentEventIgnored, OutcomeIgnored, MessageIntentUnknown), nil
	}
	if intent.State == models.IntentStatePaid {
		return ignore(models.PaymentEventAlreadyProcessed, OutcomeAlreadyProcessed, MessageAlreadyProcessed), nil
	}

	payment := confirmedFromGateway(webhook, intent, s.now())
	if !payment.BusinessType.IsValid() {
		err := NewValidationError("The business type '%s' is not valid.", payment.BusinessType)
		s.record(ctx, event(models.PaymentEventRejected).SetOutcome(400, err.Message), requester, start)
		return nil, err
	}

	result, err := s.apply(ctx, payment)
	if err != nil {
		s.record(ctx, event(models.PaymentEventFailed).SetError(err), requester, start)
		return nil, err
	}

	eventType := models.PaymentEventConfirmed
	if result.Outcome == OutcomeAlreadyProcessed {
		eventType = models.PaymentEventAlreadyProcessed
	}
	s.record(ctx, event(eventType).SetTransaction(result.TransactionID).SetOutcome(200, result.Message), requester, start)
	return result, nil
}

func (s *ReconciliationService) reconcileTransfer(ctx context.Context, transfer *models.DirectTransfer, source models.PaymentEventSource, rawBody string, requester Requester, start time.Time) (*ReconcileResult, error) {
	event := func(eventType models.PaymentEventType) *models.PaymentEvent {
		e := models.NewPaymentEvent(eventType, source).
			SetIntent(transfer.PaymentMethod.Sentinel()).
			SetAmount(float64(transfer.Amount))
		if rawBody != "" {
			e.SetRawBody(rawBody)
		}
		return e
	}

	if err := transfer.Validate(); err != nil {
		s.record(ctx, event(models.PaymentEventRejected).SetError(err), requester, start)
		return nil, NewValidationError("%s", err.Error())
	}
	if !transfer.BusinessType.IsValid() {
		err := NewValidationError("The business type '%s' is not valid.", transfer.BusinessType)
		s.record(ctx, event(models.PaymentEventRejected).SetOutcome(400, err.Message), requester, start)
		return nil, err
	}

	payment := confirmedFromTransfer(transfer, s.now())
	result, err := s.apply(ctx, payment)
	if err != nil {
		s.record(ctx, event(models.PaymentEventFailed).SetTransaction(payment.TransactionID).SetError(err), requester, start)
		return nil, err
	}

	s.record(ctx, event(models.PaymentEventConfirmed).SetTransaction(result.TransactionID).SetOutcome(200, result.Message), requester, start)
	return result, nil
}

// apply runs client resolution, business resolution and ledger writes in one
// database transaction, then notifies the client once it committed
func (s *ReconciliationService) apply(ctx context.Context, payment *models.ConfirmedPayment) (*ReconcileResult, error) {
	result := &ReconcileResult{Outcome: OutcomeProcessed, TransactionID: payment.TransactionID}
	var client *models.Client
	var business *models.Business

	err := s.tx.WithinTx(ctx, func(st Stores) error {
		if payment.Kind == models.NotificationGateway {
			claimed, err := st.Intents.ClaimPending(ctx, payment.IntentID, payment.PaidAt)
			if err != nil {
				return err
			}
			if !claimed {
				result.Outcome = OutcomeAlreadyProcessed
				return nil
			}
		}

		var err error
		client, result.IsFirstPayment, err = s.resolveClient(ctx, st, payment)
		if err != nil {
			return err
		}

		business, result.WasNewBusinessCreated, result.HasRucConflict, err = s.resolveBusiness(ctx, st, client, payment)
		if err != nil {
			return err
		}

		transaction := &models.Transaction{
			TransactionID: payment.TransactionID,
			IntentID:      payment.IntentID,
			Amount:        payment.Amount,
			PaymentMethod: payment.PaymentMethod,
			CardType:      optionalString(payment.CardType),
			CardInfo:      optionalString(payment.CardInfo),
			Bank:          optionalString(payment.Bank),
			Description:   payment.Description,
			ClientID:      client.ID,
			PaidAt:        payment.PaidAt,
		}
		if err := st.Transactions.Create(ctx, transaction); err != nil {
			if errors.Is(err, database.ErrAlreadyExists) {
				return fmt.Errorf("transaction %s already recorded: %w", payment.TransactionID, err)
			}
			return err
		}

		snapshot := models.PaymentSnapshot{
			Method:   payment.PaymentMethod,
			Bank:     payment.Bank,
			CardType: payment.CardType,
			CardInfo: payment.CardInfo,
			PaidAt:   payment.PaidAt,
		}
		if err := st.Clients.UpdatePaymentSnapshot(ctx, client.ID, snapshot); err != nil {
			return err
		}

		if payment.Kind == models.NotificationGateway {
			resolution := models.IntentResolution{
				BusinessID:    business.ID,
				ClientID:      client.ID,
				TransactionID: payment.TransactionID,
				PaidAt:        payment.PaidAt,
			}
			if err := st.Intents.AttachResolution(ctx, payment.IntentID, resolution); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"intent_id":      payment.IntentID,
			"transaction_id": payment.TransactionID,
			"email":          payment.Email,
		}).Error("Failed to reconcile payment")
		return nil, fmt.Errorf("failed to reconcile payment: %w", err)
	}

	if result.Outcome == OutcomeAlreadyProcessed {
		return &ReconcileResult{Outcome: OutcomeAlreadyProcessed, Message: MessageAlreadyProcessed}, nil
	}

	result.ClientID = &client.ID
	result.BusinessID = &business.ID
	result.Message = reconcileMessage(result, business.Name, payment.RUC())

	s.logger.WithFields(logrus.Fields{
		"transaction_id": result.TransactionID,
		"client_id":      client.ID,
		"business_id":    business.ID,
		"first_payment":  result.IsFirstPayment,
		"new_business":   result.WasNewBusinessCreated,
		"ruc_conflict":   result.HasRucConflict,
		"amount":         payment.Amount,
		"kind":           payment.Kind,
	}).Info("Payment reconciled")

	s.notify(ctx, result, client, business, payment)

	if err := s.cache.DeletePrefix(ctx, PaymentsSummaryCachePrefix); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate payments summary cache")
	}
	return result, nil
}

// resolveClient finds the client by email under an advisory lock, creating it
// on the first payment and backfilling a missing national id
func (s *ReconciliationService) resolveClient(ctx context.Context, st Stores, payment *models.ConfirmedPayment) (*models.Client, bool, error) {
	if err := st.Clients.LockEmail(ctx, payment.Email); err != nil {
		return nil, false, err
	}

	client, err := st.Clients.FindByEmail(ctx, payment.Email)
	if err != nil {
		return nil, false, err
	}

	taxID := payment.NationalID()
	if client != nil {
		if taxID != "" && (client.NationalID == nil || models.IsPlaceholderTaxID(*client.NationalID)) {
			if err := st.Clients.SetNationalID(ctx, client.ID, taxID); err != nil {
				return nil, false, err
			}
			client.NationalID = &taxID
		}
		return client, false, nil
	}

	clientType := payment.ClientType
	if clientType == "" {
		clientType = models.ClientTypeMedium
	}
	country := payment.Country
	if country == "" {
		country = models.DefaultClientCountry
	}

	client = &models.Client{
		Name:       payment.ClientName,
		Email:      payment.Email,
		Phone:      payment.Phone,
		NationalID: optionalString(taxID),
		Country:    country,
		City:       models.DefaultClientCity,
		ClientType: clientType,
	}
	if err := st.Clients.Create(ctx, client); err != nil {
		return nil, false, err
	}
	return client, true, nil
}

// resolveBusiness finds the business by owner and name or creates it. A taken
// RUC does not fail the payment: the business is created without one.
func (s *ReconciliationService) resolveBusiness(ctx context.Context, st Stores, client *models.Client, payment *models.ConfirmedPayment) (*models.Business, bool, bool, error) {
	business, err := st.Businesses.FindByOwnerAndName(ctx, client.ID, payment.BusinessName)
	if err != nil {
		return nil, false, false, err
	}
	if business != nil {
		return business, false, false, nil
	}

	address := models.DefaultBusinessAddress
	business = &models.Business{
		OwnerID:          client.ID,
		Name:             payment.BusinessName,
		RUC:              optionalString(payment.RUC()),
		Address:          &address,
		Phone:            optionalString(payment.Phone),
		Email:            optionalString(payment.Email),
		BusinessType:     payment.BusinessType,
		ValueProposition: optionalString(payment.ValueProposition),
		OnboardingStep:   models.OnboardingStepOnBoarding,
	}

	hasConflict := false
	err = st.Businesses.Create(ctx, business)
	if errors.Is(err, database.ErrDuplicateRUC) {
		s.logger.WithFields(logrus.Fields{
			"ruc":      payment.RUC(),
			"business": payment.BusinessName,
		}).Warn("RUC already registered, creating business without it")
		hasConflict = true
		business.RUC = nil
		err = st.Businesses.Create(ctx, business)
	}
	if err != nil {
		return nil, false, false, err
	}
	return business, true, hasConflict, nil
}

// notify sends exactly one onboarding or confirmation email, plus the policy
// email for a new business. Failures are logged only.
func (s *ReconciliationService) notify(ctx context.Context, result *ReconcileResult, client *models.Client, business *models.Business, payment *models.ConfirmedPayment) {
	log := s.logger.WithFields(logrus.Fields{
		"client_id":   client.ID,
		"business_id": business.ID,
		"email":       payment.Email,
	})

	if result.WasNewBusinessCreated {
		if err := s.mailer.SendPolicy(ctx, client.Email, client.Name, business.Name); err != nil {
			log.WithError(err).Warn("Failed to send policy email")
		}
	}

	if result.IsFirstPayment || result.WasNewBusinessCreated {
		if err := s.mailer.SendOnboarding(ctx, payment.Email, payment.ClientName, client.ID.String(), business.ID.String()); err != nil {
			log.WithError(err).Warn("Failed to send onboarding email")
		}
		return
	}

	if err := s.mailer.SendPaymentConfirmation(ctx, payment.Email, payment.ClientName, business.Name); err != nil {
		log.WithError(err).Warn("Failed to send payment confirmation email")
	}
}

func (s *ReconciliationService) record(ctx context.Context, event *models.PaymentEvent, requester Requester, start time.Time) {
	recordPaymentEvent(ctx, s.events, s.logger, event, requester, start)
}

// recordPaymentEvent appends to the audit trail. Failures are logged only.
func recordPaymentEvent(ctx context.Context, events PaymentEventStore, logger *logrus.Logger, event *models.PaymentEvent, requester Requester, start time.Time) {
	device := utils.ParseUserAgent(requester.UserAgent)
	event.SetRequester(requester.IP, requester.UserAgent, device.DeviceType, device.Browser, device.OS).
		SetProcessingTime(start)
	if err := events.Log(ctx, event); err != nil {
		logger.WithError(err).WithField("event_type", event.EventType).Warn("Failed to record payment event")
	}
}

func reconcileMessage(result *ReconcileResult, businessName, ruc string) string {
	var message string
	switch {
	case result.IsFirstPayment:
		message = fmt.Sprintf("Welcome! First payment recorded and '%s' created. Check email for details.", businessName)
	case result.WasNewBusinessCreated:
		message = fmt.Sprintf("Payment recorded and new business created: '%s'. Onboarding email coming soon.", businessName)
	default:
		message = fmt.Sprintf("Thank you for your payment to '%s'. Transaction recorded.", businessName)
	}
	if result.HasRucConflict {
		message += fmt.Sprintf(" Warning: The RUC '%s' is already registered by another business in the system. This may cause conflicts later.", ruc)
	}
	return message
}

func confirmedFromGateway(webhook *models.GatewayWebhook, intent *models.PaymentIntent, now time.Time) *models.ConfirmedPayment {
	amount := float64(webhook.Amount)
	if amount <= 0 {
		amount = intent.Amount
	}

	transactionID := strings.TrimSpace(webhook.TransactionID)
	if transactionID == "" {
		transactionID = fmt.Sprintf("%s-%s", models.IntentSentinelPagoPlux, intent.IntentID)
	}

	name := intent.Name
	if name == "" {
		name = webhook.ClientName
	}

	businessType := intent.BusinessType
	if businessType == "" {
		businessType = models.BusinessTypeUnknown
	}

	bank := strings.TrimSpace(webhook.Bank)
	if bank == "" {
		bank = models.DefaultBank
	}

	payment := &models.ConfirmedPayment{
		Kind:          models.NotificationGateway,
		IntentID:      intent.IntentID,
		TransactionID: transactionID,
		Amount:        amount,
		PaymentMethod: webhook.MethodLabel(),
		CardType:      webhook.CardType,
		CardInfo:      webhook.CardInfo,
		Bank:          bank,
		Description:   intent.Description,
		PaidAt:        now,
		ClientName:    name,
		Email:         intent.Email,
		Phone:         intent.Phone,
		BusinessName:  intent.BusinessName,
		BusinessType:  businessType,
	}
	if intent.TaxID != nil {
		payment.TaxID = *intent.TaxID
	}
	return payment
}

func confirmedFromTransfer(transfer *models.DirectTransfer, now time.Time) *models.ConfirmedPayment {
	method := transfer.PaymentMethod
	if method == "" {
		method = models.PaymentMethodBankTransfer
	}

	bank := strings.TrimSpace(transfer.Bank)
	if bank == "" {
		bank = models.DefaultBank
	}

	description := strings.TrimSpace(transfer.Description)
	if description == "" {
		description = "Sin descripción"
	}

	taxID := strings.TrimSpace(transfer.ClientID)

	return &models.ConfirmedPayment{
		Kind:             models.NotificationDirectTransfer,
		IntentID:         method.Sentinel(),
		TransactionID:    fmt.Sprintf("%s-%d-%s", method.Sentinel(), now.UnixMilli(), lastFour(taxID)),
		Amount:           float64(transfer.Amount),
		PaymentMethod:    method.Label(),
		Bank:             bank,
		Description:      description,
		PaidAt:           now,
		ClientName:       strings.TrimSpace(transfer.ClientName),
		Email:            strings.TrimSpace(transfer.Email),
		Phone:            strings.TrimSpace(transfer.Phone),
		TaxID:            taxID,
		Country:          strings.TrimSpace(transfer.Country),
		ClientType:       transfer.ClientType,
		BusinessName:     strings.TrimSpace(transfer.BusinessName),
		BusinessType:     transfer.BusinessType,
		ValueProposition: strings.TrimSpace(transfer.ValueProposition),
	}
}

func lastFour(id string) string {
	if id == "" {
		return "XXXX"
	}
	if len(id) <= 4 {
		return id
	}
	return id[len(id)-4:]
}

// optionalString maps an empty string to nil
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
