package services

import (
	"context"
	"testing"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchFixture() (*memDB, *SearchService) {
	db := newMemDB()
	return db, NewSearchService(&memSearch{db}, &memBusinesses{db}, newTestLogger())
}

func TestSearch_MatchesAcrossEntities(t *testing.T) {
	db, service := newSearchFixture()
	ana := seedClient(db, "Ana Torres", "ana@example.com", "0991234567")
	seedBusiness(db, ana, "Café Aurora")
	seedBusiness(db, ana, "Panadería Sol")
	luis := seedClient(db, "Luis Mena", "luis@example.com", "0987654321")
	bar := seedBusiness(db, luis, "Bar Central")
	require.NoError(t, db.stores().Managers.Create(context.Background(), &models.Manager{
		BusinessID: bar.ID, Name: "Aurelio", Email: "aurelio@example.com",
	}))

	resp, err := service.Search(context.Background(), &models.SearchRequest{Query: "aur"})
	require.NoError(t, err)

	assert.Equal(t, "Search completed successfully.", resp.Message)
	assert.Equal(t, 2, resp.Metadata.Total)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Ana Torres", resp.Data[0].Name)
	assert.Len(t, resp.Data[0].Businesses, 2)
	assert.Equal(t, "Luis Mena", resp.Data[1].Name)
	assert.Len(t, resp.Data[1].Businesses, 1)
}

func TestSearch_NoResults(t *testing.T) {
	db, service := newSearchFixture()
	seedClient(db, "Ana Torres", "ana@example.com", "0991234567")

	resp, err := service.Search(context.Background(), &models.SearchRequest{Query: "zzz"})
	require.NoError(t, err)
	assert.Equal(t, "No results found.", resp.Message)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
}

func TestSearch_RequiresQuery(t *testing.T) {
	_, service := newSearchFixture()

	_, err := service.Search(context.Background(), &models.SearchRequest{Query: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSearch_Pagination(t *testing.T) {
	db, service := newSearchFixture()
	for _, name := range []string{"Ana A", "Ana B", "Ana C"} {
		seedClient(db, name, name+"@example.com", "0990000000")
	}

	resp, err := service.Search(context.Background(), &models.SearchRequest{Query: "ana", Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Ana C", resp.Data[0].Name)
	assert.Equal(t, models.Pagination{Total: 3, Page: 2, Limit: 2, TotalPages: 2}, resp.Metadata)

	resp, err = service.Search(context.Background(), &models.SearchRequest{Query: "ana", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, SearchMaxLimit, resp.Metadata.Limit)
}
