package input

import (
	"context"

	"search-agent/internal/domain/entity"
)

type SearchExecutor interface {
	Search(ctx context.Context, query string) (*entity.SearchOutcome, error)
}
