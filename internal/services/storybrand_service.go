package services

import (
	"context"
	"errors"
	"strings"

	"github.com/bakano/consultancy-backend/internal/database"
	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/pkg/storybrand"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const minStoryBrandPasswordLength = 6

// StoryBrandService links clients to accounts on the StoryBrand platform
type StoryBrandService struct {
	stores Stores
	api    StoryBrandAPI
	logger *logrus.Logger
}

// NewStoryBrandService creates a new StoryBrand account service
func NewStoryBrandService(stores Stores, api StoryBrandAPI, logger *logrus.Logger) *StoryBrandService {
	return &StoryBrandService{
		stores: stores,
		api:    api,
		logger: logger,
	}
}

// CreateAccount creates the external account and records it for the client
func (s *StoryBrandService) CreateAccount(ctx context.Context, req models.StoryBrandAccountRequest) (*models.MVPAccount, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || len(req.Password) < minStoryBrandPasswordLength || strings.TrimSpace(req.ClientID) == "" {
		return nil, NewValidationError("Email and password are required. Password must be at least 6 characters long. ClientId is required.")
	}

	clientID, err := uuid.Parse(strings.TrimSpace(req.ClientID))
	if err != nil {
		return nil, ErrInvalidClientID
	}
	client, err := s.stores.Clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}

	existing, err := s.stores.MVPAccounts.GetByClient(ctx, clientID, models.MVPTypeStoryBrand)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAccountExists
	}

	firstName := strings.TrimSpace(req.FirstName)
	if firstName == "" {
		firstName = strings.SplitN(email, "@", 2)[0]
	}

	data, err := s.api.CreateAccount(ctx, storybrand.CreateAccountRequest{
		Email:           email,
		Password:        req.Password,
		FirstName:       firstName,
		LastName:        strings.TrimSpace(req.LastName),
		ClientReference: clientID.String(),
	})
	if err != nil {
		return nil, s.upstream(err, "Error creating StoryBrand account")
	}

	account := &models.MVPAccount{
		ClientID:       clientID,
		MVPType:        models.MVPTypeStoryBrand,
		ExternalUserID: optionalString(storybrand.ExternalUserID(data)),
		AccountData:    models.JSONB(data),
		Active:         true,
	}
	if err := s.stores.MVPAccounts.Create(ctx, account); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return nil, ErrAccountExists
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"client_id":  clientID,
		"account_id": account.ID,
	}).Info("StoryBrand account created")
	return account, nil
}

// ChangePassword changes the password of the client's account and merges the
// returned user into the stored account data
func (s *StoryBrandService) ChangePassword(ctx context.Context, req models.StoryBrandPasswordRequest) (*models.MVPAccount, error) {
	if strings.TrimSpace(req.ClientID) == "" || len(req.NewPassword) < minStoryBrandPasswordLength {
		return nil, NewValidationError("Client ID and new password are required. New password must be at least 6 characters long")
	}

	account, externalID, err := s.accountFor(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	resp, err := s.api.ChangePassword(ctx, externalID, req.NewPassword)
	if err != nil {
		return nil, s.upstream(err, "Error changing StoryBrand account password")
	}

	if user, ok := resp["user"].(map[string]interface{}); ok {
		merged := models.JSONB{}
		for k, v := range account.AccountData {
			merged[k] = v
		}
		for k, v := range user {
			merged[k] = v
		}
		if err := s.stores.MVPAccounts.UpdateAccountData(ctx, account.ID, merged); err != nil {
			return nil, err
		}
		account.AccountData = merged
	}

	s.logger.WithField("account_id", account.ID).Info("StoryBrand password changed")
	return account, nil
}

// DeleteAccount deletes the client's external account and its local record
func (s *StoryBrandService) DeleteAccount(ctx context.Context, clientID string) error {
	account, externalID, err := s.accountFor(ctx, clientID)
	if err != nil {
		return err
	}

	if err := s.api.DeleteAccount(ctx, externalID); err != nil {
		return s.upstream(err, "Error deleting StoryBrand account")
	}
	if err := s.stores.MVPAccounts.Delete(ctx, account.ID); err != nil {
		return err
	}

	s.logger.WithField("account_id", account.ID).Info("StoryBrand account deleted")
	return nil
}

// ListByClient returns every StoryBrand account of a client
func (s *StoryBrandService) ListByClient(ctx context.Context, clientID string) ([]*models.MVPAccount, error) {
	id, err := uuid.Parse(strings.TrimSpace(clientID))
	if err != nil {
		return nil, ErrInvalidClientID
	}
	accounts, err := s.stores.MVPAccounts.ListByClient(ctx, id, models.MVPTypeStoryBrand)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []*models.MVPAccount{}
	}
	return accounts, nil
}

func (s *StoryBrandService) accountFor(ctx context.Context, clientID string) (*models.MVPAccount, string, error) {
	id, err := uuid.Parse(strings.TrimSpace(clientID))
	if err != nil {
		return nil, "", ErrInvalidClientID
	}
	account, err := s.stores.MVPAccounts.GetByClient(ctx, id, models.MVPTypeStoryBrand)
	if err != nil {
		return nil, "", err
	}
	if account == nil {
		return nil, "", ErrAccountNotFound
	}

	externalID := storybrand.ExternalUserID(account.AccountData)
	if externalID == "" && account.ExternalUserID != nil {
		externalID = *account.ExternalUserID
	}
	if externalID == "" {
		return nil, "", errors.New("storybrand account has no external reference")
	}
	return account, externalID, nil
}

// upstream turns a StoryBrand failure into a 502 carrying the remote message
func (s *StoryBrandService) upstream(err error, fallback string) error {
	s.logger.WithError(err).Error("StoryBrand request failed")
	var apiErr *storybrand.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return newError(ErrUpstream, "%s", apiErr.Message)
	}
	return newError(ErrUpstream, "%s", fallback)
}
