package services

import (
	"context"
	"errors"
	"strings"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/pkg/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ClientService exposes the client listing, detail and forget flow
type ClientService struct {
	stores  Stores
	storage FileStorage
	mailer  Mailer
	logger  *logrus.Logger
}

// NewClientService creates a new client service
func NewClientService(stores Stores, storage FileStorage, mailer Mailer, logger *logrus.Logger) *ClientService {
	return &ClientService{
		stores:  stores,
		storage: storage,
		mailer:  mailer,
		logger:  logger,
	}
}

// List returns one page of clients filtered by email, name or phone
func (s *ClientService) List(ctx context.Context, filter models.ClientFilter) ([]*models.Client, models.Pagination, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	filter.Email = strings.TrimSpace(filter.Email)
	filter.Name = strings.TrimSpace(filter.Name)
	filter.Phone = strings.TrimSpace(filter.Phone)

	clients, total, err := s.stores.Clients.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return clients, models.NewPagination(total, filter.Page, filter.Limit), nil
}

// Detail returns a client with its businesses and payment ledger
func (s *ClientService) Detail(ctx context.Context, clientID string) (*models.ClientDetail, error) {
	client, err := s.requireClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	businesses, err := s.stores.Businesses.ListByOwner(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	transactions, err := s.stores.Transactions.ListByClient(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	if businesses == nil {
		businesses = []*models.Business{}
	}
	return &models.ClientDetail{
		Client:       *client,
		Businesses:   businesses,
		Transactions: transactions,
	}, nil
}

// OwnedBusiness returns a business of the client, with managers and files
func (s *ClientService) OwnedBusiness(ctx context.Context, clientID, businessID string) (*models.Business, error) {
	client, err := s.requireClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	bid, err := uuid.Parse(strings.TrimSpace(businessID))
	if err != nil {
		return nil, ErrInvalidBusinessID
	}

	business, err := s.stores.Businesses.GetByID(ctx, bid)
	if err != nil {
		return nil, err
	}
	if business == nil || business.OwnerID != client.ID {
		return nil, ErrBusinessNotFound
	}

	if business.Managers, err = s.stores.Managers.ListByBusiness(ctx, business.ID); err != nil {
		return nil, err
	}
	if business.Files, err = s.stores.Files.ListByBusiness(ctx, business.ID); err != nil {
		return nil, err
	}
	return business, nil
}

// Forget deletes a client and everything it owns, then confirms the deletion by email
func (s *ClientService) Forget(ctx context.Context, clientID string) error {
	client, err := s.requireClient(ctx, clientID)
	if err != nil {
		return err
	}

	businesses, err := s.stores.Businesses.ListByOwner(ctx, client.ID)
	if err != nil {
		return err
	}

	deleted, err := s.stores.Clients.Delete(ctx, client.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrClientNotFound
	}

	log := s.logger.WithField("client_id", client.ID)
	for _, business := range businesses {
		folder := storage.FolderName(business.Name, business.ID.String())
		if err := s.storage.DeleteFolder(ctx, folder); err != nil && !errors.Is(err, storage.ErrNotConfigured) {
			log.WithError(err).WithField("business_id", business.ID).Warn("Failed to delete business folder")
		}
	}
	if err := s.mailer.SendDataDeletion(ctx, client.Email, client.Name); err != nil {
		log.WithError(err).Warn("Failed to send data deletion confirmation")
	}

	log.WithField("businesses", len(businesses)).Info("Client data deleted")
	return nil
}

func (s *ClientService) requireClient(ctx context.Context, clientID string) (*models.Client, error) {
	id, err := uuid.Parse(strings.TrimSpace(clientID))
	if err != nil {
		return nil, ErrInvalidClientID
	}
	client, err := s.stores.Clients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}
	return client, nil
}
