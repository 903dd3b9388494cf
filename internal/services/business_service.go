package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bakano/consultancy-backend/internal/database"
	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/pkg/storage"
	playground "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MessageIntakeSaved is returned after the consultancy intake was stored
const MessageIntakeSaved = "Datos de consultoría actualizados correctamente"

// IntakeFile is one uploaded document of the consultancy intake form
type IntakeFile struct {
	Field       string
	Name        string
	ContentType string
	Body        io.Reader
}

// BusinessService manages businesses and their sub-records
type BusinessService struct {
	stores   Stores
	tx       Transactor
	storage  FileStorage
	mailer   Mailer
	validate *playground.Validate
	logger   *logrus.Logger
	now      func() time.Time
}

// NewBusinessService creates a new business service
func NewBusinessService(stores Stores, tx Transactor, storage FileStorage, mailer Mailer, logger *logrus.Logger) *BusinessService {
	return &BusinessService{
		stores:   stores,
		tx:       tx,
		storage:  storage,
		mailer:   mailer,
		validate: playground.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns a business with its managers and files
func (s *BusinessService) Get(ctx context.Context, businessID string) (*models.Business, error) {
	business, err := s.requireBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if business.Managers, err = s.stores.Managers.ListByBusiness(ctx, business.ID); err != nil {
		return nil, err
	}
	if business.Files, err = s.stores.Files.ListByBusiness(ctx, business.ID); err != nil {
		return nil, err
	}
	return business, nil
}

// SubmitIntake stores the intake answers and uploads the documents into the
// business folder. Any upload failure aborts the request.
func (s *BusinessService) SubmitIntake(ctx context.Context, businessID string, intake models.ConsultancyIntake, files []IntakeFile) (*models.IntakeResult, error) {
	business, err := s.requireBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	folder := storage.FolderName(business.Name, business.ID.String())
	paths := make(map[string]string, len(files))

	if len(files) > 0 {
		if err := s.storage.EnsureFolder(ctx, folder); err != nil {
			s.logger.WithError(err).WithField("business_id", business.ID).Error("Failed to prepare business folder")
			return nil, newError(ErrUpstream, "Could not prepare the storage folder.")
		}
	}

	for _, file := range files {
		url, err := s.storage.Upload(ctx, folder, file.Name, file.ContentType, file.Body)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"business_id": business.ID,
				"field":       file.Field,
				"file":        file.Name,
			}).Error("Failed to upload intake file")
			return nil, newError(ErrUpstream, "Could not upload the file %s.", file.Name)
		}
		paths[file.Field] = url
	}

	err = s.tx.WithinTx(ctx, func(st Stores) error {
		if columns := intake.Columns(); len(columns) > 0 {
			if _, err := st.Businesses.Update(ctx, business.ID, columns); err != nil {
				return err
			}
		}
		for _, file := range files {
			record := &models.BusinessFile{
				BusinessID:   business.ID,
				FieldName:    file.Field,
				URL:          paths[file.Field],
				OriginalName: file.Name,
			}
			if err := st.Files.Upsert(ctx, record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(paths) > 0 {
		urls := make([]string, 0, len(paths))
		for _, url := range paths {
			urls = append(urls, url)
		}
		if err := s.mailer.SendUploadNotification(ctx, business.Name, business.ID.String(), urls); err != nil {
			s.logger.WithError(err).WithField("business_id", business.ID).Warn("Failed to send upload notification")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"business_id": business.ID,
		"files":       len(paths),
	}).Info("Consultancy intake stored")

	return &models.IntakeResult{
		Message:    MessageIntakeSaved,
		BusinessID: business.ID,
		FilePaths:  paths,
	}, nil
}

// Edit applies a partial update restricted to the editable fields
func (s *BusinessService) Edit(ctx context.Context, businessID string, payload map[string]interface{}) (*models.Business, error) {
	id, err := uuid.Parse(strings.TrimSpace(businessID))
	if err != nil {
		return nil, ErrInvalidBusinessID
	}
	if len(payload) == 0 {
		return nil, NewValidationError("No fields to update were provided.")
	}

	columns := make(map[string]interface{}, len(payload))
	for key, value := range payload {
		column, ok := models.EditableBusinessFields[key]
		if !ok {
			continue
		}
		normalized, err := normalizeEditValue(key, value)
		if err != nil {
			return nil, err
		}
		columns[column] = normalized
	}
	if len(columns) == 0 {
		return nil, NewValidationError("None of the provided fields can be edited.")
	}

	business, err := s.stores.Businesses.Update(ctx, id, columns)
	if err != nil {
		if errors.Is(err, database.ErrDuplicateRUC) {
			return nil, newError(ErrConflict, "The RUC is already registered to another business.")
		}
		return nil, err
	}
	if business == nil {
		return nil, ErrBusinessNotFound
	}
	return business, nil
}

func normalizeEditValue(key string, value interface{}) (interface{}, error) {
	if value == nil {
		if key == "name" || key == "businessType" || key == "onboardingStep" {
			return nil, NewValidationError("The field %s cannot be empty.", key)
		}
		return nil, nil
	}
	str, ok := value.(string)
	if !ok {
		return nil, NewValidationError("The field %s must be a string.", key)
	}
	str = strings.TrimSpace(str)

	switch key {
	case "name":
		if str == "" {
			return nil, NewValidationError("The field name cannot be empty.")
		}
		return str, nil
	case "businessType":
		if !models.BusinessType(str).IsValid() {
			return nil, NewValidationError("The business type '%s' is not valid.", str)
		}
		return str, nil
	case "onboardingStep":
		if !models.OnboardingStep(str).IsValid() {
			return nil, NewValidationError("The onboarding step '%s' is not valid.", str)
		}
		return str, nil
	}
	if str == "" {
		return nil, nil
	}
	return str, nil
}

// AddManager registers a manager on a business and emails an invitation
func (s *BusinessService) AddManager(ctx context.Context, businessID string, req models.ManagerRequest) (*models.Manager, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		return nil, NewValidationError("Manager name and email are required.")
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return nil, NewValidationError("The manager email is not valid.")
	}

	business, err := s.requireBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	manager := &models.Manager{
		BusinessID: business.ID,
		Name:       name,
		Email:      email,
		Role:       optionalString(req.Role),
	}
	if err := s.stores.Managers.Create(ctx, manager); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return nil, newError(ErrConflict, "A manager with email %s already exists in this business.", email)
		}
		return nil, err
	}

	if err := s.mailer.SendManagerInvite(ctx, manager.Email, manager.Name, business.Name,
		business.OwnerID.String(), business.ID.String()); err != nil {
		s.logger.WithError(err).WithField("manager_id", manager.ID).Warn("Failed to send manager invite")
	}

	s.logger.WithFields(logrus.Fields{
		"business_id": business.ID,
		"manager_id":  manager.ID,
	}).Info("Manager added")
	return manager, nil
}

// ListManagers returns the managers of a business
func (s *BusinessService) ListManagers(ctx context.Context, businessID string) ([]*models.Manager, error) {
	business, err := s.requireBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	return s.stores.Managers.ListByBusiness(ctx, business.ID)
}

// RemoveManager deletes a manager from a business
func (s *BusinessService) RemoveManager(ctx context.Context, businessID, managerID string) error {
	bid, err := uuid.Parse(strings.TrimSpace(businessID))
	if err != nil {
		return ErrInvalidBusinessID
	}
	mid, err := uuid.Parse(strings.TrimSpace(managerID))
	if err != nil {
		return NewValidationError("The provided manager ID is not valid.")
	}
	deleted, err := s.stores.Managers.Delete(ctx, bid, mid)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrManagerNotFound
	}
	return nil
}

// CreateHandoff stores the one handoff a business can ever have
func (s *BusinessService) CreateHandoff(ctx context.Context, businessID string, req models.HandoffRequest) (*models.Handoff, error) {
	business, err := s.requireBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.SalesRep) == "" || strings.TrimSpace(req.PackageSold) == "" {
		return nil, NewValidationError("Sales rep and package sold are required.")
	}

	handoff := &models.Handoff{
		BusinessID:     business.ID,
		SalesRep:       strings.TrimSpace(req.SalesRep),
		PackageSold:    strings.TrimSpace(req.PackageSold),
		Expectations:   optionalString(req.Expectations),
		Notes:          optionalString(req.Notes),
		AdditionalData: req.AdditionalData,
	}
	if handoff.AdditionalData == nil {
		handoff.AdditionalData = models.JSONB{}
	}
	if err := s.stores.Handoffs.Create(ctx, handoff); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return nil, ErrHandoffExists
		}
		return nil, err
	}
	return handoff, nil
}

// GetHandoff returns the handoff of a business
func (s *BusinessService) GetHandoff(ctx context.Context, businessID string) (*models.Handoff, error) {
	business, err := s.requireBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	handoff, err := s.stores.Handoffs.GetByBusiness(ctx, business.ID)
	if err != nil {
		return nil, err
	}
	if handoff == nil {
		return nil, newError(ErrNotFound, "Handoff not found.")
	}
	return handoff, nil
}

// Delete removes a business together with its checklist, meetings, managers,
// files and handoff. The storage folder and the owner notification are best effort.
func (s *BusinessService) Delete(ctx context.Context, businessID string) error {
	business, err := s.requireBusiness(ctx, businessID)
	if err != nil {
		return err
	}
	owner, err := s.stores.Clients.GetByID(ctx, business.OwnerID)
	if err != nil {
		return err
	}

	deleted, err := s.stores.Businesses.Delete(ctx, business.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrBusinessNotFound
	}

	log := s.logger.WithField("business_id", business.ID)
	folder := storage.FolderName(business.Name, business.ID.String())
	if err := s.storage.DeleteFolder(ctx, folder); err != nil && !errors.Is(err, storage.ErrNotConfigured) {
		log.WithError(err).Warn("Failed to delete business folder")
	}
	if owner != nil {
		if err := s.mailer.SendBusinessDeleted(ctx, owner.Email, owner.Name, business.Name); err != nil {
			log.WithError(err).Warn("Failed to notify owner of business deletion")
		}
	}

	log.Info("Business deleted")
	return nil
}

// SendUploadReminders emails every business older than minAge that still has
// no intake documents. Returns the number of reminders sent.
func (s *BusinessService) SendUploadReminders(ctx context.Context, minAge time.Duration) (int, error) {
	targets, err := s.stores.Businesses.ListReminderTargets(ctx, s.now().Add(-minAge))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, target := range targets {
		recipients := []string{target.OwnerEmail}
		if target.BusinessEmail != nil && *target.BusinessEmail != "" &&
			!strings.EqualFold(*target.BusinessEmail, target.OwnerEmail) {
			recipients = append(recipients, *target.BusinessEmail)
		}
		err := s.mailer.SendUploadReminder(ctx, recipients, target.BusinessName,
			target.OwnerID.String(), target.BusinessID.String())
		if err != nil {
			s.logger.WithError(err).WithField("business_id", target.BusinessID).Warn("Failed to send upload reminder")
			continue
		}
		sent++
	}

	s.logger.WithFields(logrus.Fields{
		"candidates": len(targets),
		"sent":       sent,
	}).Info("Upload reminders processed")
	return sent, nil
}

// BackfillBusinessType sets every missing or unrecognized business type to UNKNOWN
func (s *BusinessService) BackfillBusinessType(ctx context.Context) (int64, error) {
	updated, err := s.stores.Businesses.BackfillBusinessType(ctx, models.BusinessTypes(), models.BusinessTypeUnknown)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill business types: %w", err)
	}
	s.logger.WithField("updated", updated).Info("Business types backfilled")
	return updated, nil
}

func (s *BusinessService) requireBusiness(ctx context.Context, businessID string) (*models.Business, error) {
	id, err := uuid.Parse(strings.TrimSpace(businessID))
	if err != nil {
		return nil, ErrInvalidBusinessID
	}
	business, err := s.stores.Businesses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, ErrBusinessNotFound
	}
	return business, nil
}
