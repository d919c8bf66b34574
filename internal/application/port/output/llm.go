package output

import (
	"context"

	"search-agent/internal/domain/entity"
)

type LLMPort interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// StreamingLLMPort is implemented by providers that can read the reply as a
// stream. The result is the same assembled message Chat returns.
type StreamingLLMPort interface {
	LLMPort
	ChatStream(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ChatRequest struct {
	Messages    []entity.Message
	Tools       []entity.ToolDefinition
	Temperature float32
	MaxTokens   int
}

type ChatResponse struct {
	Message entity.Message
}
