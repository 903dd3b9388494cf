package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint violation
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// escapeLike escapes the LIKE wildcards of a user supplied search term
func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}

// containsPattern builds an ILIKE substring pattern for term
func containsPattern(term string) string {
	return "%" + escapeLike(term) + "%"
}

// Store conflicts surfaced to the service layer
var (
	// ErrDuplicateRUC is returned when a business RUC is already registered
	ErrDuplicateRUC = errors.New("ruc already registered")
	// ErrAlreadyExists is returned when a unique key of the row is taken
	ErrAlreadyExists = errors.New("record already exists")
)
