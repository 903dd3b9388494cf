package services

import (
	"context"
	"strings"
	"time"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Search listing defaults
const (
	SearchDefaultLimit = 10
	SearchMaxLimit     = 50
)

// SearchService handles the unified client search
type SearchService struct {
	repo       SearchStore
	businesses BusinessStore
	logger     *logrus.Logger
}

// NewSearchService creates a new search service
func NewSearchService(repo SearchStore, businesses BusinessStore, logger *logrus.Logger) *SearchService {
	return &SearchService{
		repo:       repo,
		businesses: businesses,
		logger:     logger,
	}
}

// Search matches the term against clients, their businesses and managers and
// returns the matching clients with every business they own
func (s *SearchService) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	startTime := time.Now()

	term := strings.TrimSpace(req.Query)
	if term == "" {
		return nil, NewValidationError("The search query is required.")
	}

	page, limit := req.Page, req.Limit
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = SearchDefaultLimit
	}
	if limit > SearchMaxLimit {
		limit = SearchMaxLimit
	}
	pagination := models.NewPagination(0, page, limit)

	clients, total, err := s.repo.SearchClients(ctx, term, limit, pagination.Offset())
	if err != nil {
		return nil, err
	}

	ownerIDs := make([]uuid.UUID, 0, len(clients))
	for _, client := range clients {
		ownerIDs = append(ownerIDs, client.ID)
	}

	byOwner := make(map[uuid.UUID][]*models.Business, len(clients))
	if len(ownerIDs) > 0 {
		businesses, err := s.businesses.ListByOwners(ctx, ownerIDs)
		if err != nil {
			return nil, err
		}
		for _, business := range businesses {
			byOwner[business.OwnerID] = append(byOwner[business.OwnerID], business)
		}
	}

	results := make([]*models.SearchResult, 0, len(clients))
	for _, client := range clients {
		owned := byOwner[client.ID]
		if owned == nil {
			owned = []*models.Business{}
		}
		results = append(results, &models.SearchResult{Client: *client, Businesses: owned})
	}

	s.logger.WithFields(logrus.Fields{
		"term":        term,
		"total":       total,
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("Search completed")

	message := "Search completed successfully."
	if total == 0 {
		message = "No results found."
	}
	return &models.SearchResponse{
		Message:  message,
		Metadata: models.NewPagination(total, page, limit),
		Data:     results,
	}, nil
}
