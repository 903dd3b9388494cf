package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/jmoiron/sqlx"
)

// matchingClients selects the ids of clients hit by the term through their own
// fields, the businesses they own or the managers of those businesses
const matchingClients = `
	WITH matches AS (
		SELECT c.id
		FROM clients c
		WHERE c.name ILIKE $1 OR c.email ILIKE $1 OR c.phone ILIKE $1 OR c.national_id ILIKE $1
		UNION
		SELECT b.owner_id
		FROM businesses b
		WHERE b.name ILIKE $1 OR b.ruc ILIKE $1
		UNION
		SELECT b.owner_id
		FROM businesses b
		JOIN business_managers m ON m.business_id = b.id
		WHERE m.name ILIKE $1 OR m.email ILIKE $1
	)`

// SearchRepository handles the unified client search
type SearchRepository struct {
	db sqlx.ExtContext
}

// NewSearchRepository creates a new search repository
func NewSearchRepository(db sqlx.ExtContext) *SearchRepository {
	return &SearchRepository{db: db}
}

// SearchClients returns one page of distinct matching clients, newest first,
// together with the total number of matching clients
func (r *SearchRepository) SearchClients(ctx context.Context, term string, limit, offset int) ([]*models.Client, int, error) {
	pattern := containsPattern(strings.TrimSpace(term))

	var total int
	countQuery := matchingClients + ` SELECT COUNT(*) FROM matches`
	if err := sqlx.GetContext(ctx, r.db, &total, countQuery, pattern); err != nil {
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}

	clients := []*models.Client{}
	if total == 0 {
		return clients, 0, nil
	}

	query := matchingClients + `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE id IN (SELECT id FROM matches)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	if err := sqlx.SelectContext(ctx, r.db, &clients, query, pattern, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to search clients: %w", err)
	}

	return clients, total, nil
}
