package search

import (
	"strings"

	"github.com/hyperjump/chunkd/internal/models"
)

// ProcessQuery collapses whitespace in the query text, then validates it and applies limits.
func ProcessQuery(query *models.SearchQuery, defaultLimit, maxLimit int) error {
	query.Query = strings.Join(strings.Fields(query.Query), " ")
	return query.Validate(defaultLimit, maxLimit)
}
