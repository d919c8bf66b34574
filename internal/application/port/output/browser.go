package output

import (
	"context"

	"search-agent/internal/domain/entity"
)

type BrowserPort interface {
	FetchPage(ctx context.Context, url string) (*entity.PageContent, error)
	Close()
}
