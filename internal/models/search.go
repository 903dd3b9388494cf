package models

// SearchRequest is a unified search query over clients and their businesses
type SearchRequest struct {
	Query string
	Page  int
	Limit int
}

// SearchResult is one matching client with every business it owns
type SearchResult struct {
	Client
	Businesses []*Business `json:"businesses"`
}

// SearchResponse splits page metadata from the matched clients
type SearchResponse struct {
	Message  string          `json:"message"`
	Metadata Pagination      `json:"metadata"`
	Data     []*SearchResult `json:"data"`
}
