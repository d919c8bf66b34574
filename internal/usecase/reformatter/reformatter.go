package reformatter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"search-agent/internal/application/port/output"
	"search-agent/internal/domain/entity"
)

var ErrEmptyReply = errors.New("reformatter returned an empty reply")

// Reformatter asks the model to restate a free-text answer as a structured
// block. It makes exactly one request per call.
type Reformatter struct {
	llm       output.LLMPort
	logger    output.LoggerPort
	prompt    string
	maxTokens int
}

func New(llm output.LLMPort, logger output.LoggerPort, prompt string, maxTokens int) *Reformatter {
	return &Reformatter{
		llm:       llm,
		logger:    logger,
		prompt:    prompt,
		maxTokens: maxTokens,
	}
}

func (r *Reformatter) Reformat(ctx context.Context, query, answer string) (string, error) {
	messages := []entity.Message{
		{Role: entity.RoleSystem, Content: r.prompt},
		{Role: entity.RoleUser, Content: fmt.Sprintf("Question: %s\n\nText:\n%s", query, answer)},
	}

	resp, err := r.llm.Chat(ctx, output.ChatRequest{
		Messages:    messages,
		Temperature: 0.0,
		MaxTokens:   r.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("reformat llm request failed: %w", err)
	}

	reply := strings.TrimSpace(resp.Message.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}

	r.logger.Info("Reformat completed", "inputLen", len(answer), "replyLen", len(reply))
	return reply, nil
}
