package output

import (
	"context"

	"search-agent/internal/domain/entity"
)

// SearchPort queries a hosted web-search API.
type SearchPort interface {
	Search(ctx context.Context, query string, maxResults int) ([]entity.SearchResult, error)
}
