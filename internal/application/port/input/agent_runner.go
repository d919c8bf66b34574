package input

import (
	"context"

	"search-agent/internal/domain/entity"
)

// AgentRunner answers a query by reasoning over the registered tools.
type AgentRunner interface {
	Run(ctx context.Context, query string) (*entity.AgentRun, error)
}
