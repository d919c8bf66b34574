package langchain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"search-agent/internal/application/port/output"
	"search-agent/internal/domain/entity"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

var _ output.LLMPort = (*Adapter)(nil)

// Adapter serves LLMPort from any langchaingo model.
type Adapter struct {
	model  llms.Model
	logger output.LoggerPort
}

type AnthropicConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     output.LoggerPort
}

func DefaultAnthropicConfig(apiKey string) AnthropicConfig {
	return AnthropicConfig{
		APIKey: apiKey,
		Model:  "claude-3-5-sonnet-latest",
	}
}

func NewAnthropicAdapter(cfg AnthropicConfig) (*Adapter, error) {
	opts := []anthropic.Option{
		anthropic.WithToken(cfg.APIKey),
		anthropic.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, anthropic.WithHTTPClient(cfg.HTTPClient))
	}

	model, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create anthropic client: %w", err)
	}
	return NewAdapter(model, cfg.Logger), nil
}

// OpenAIConfig points langchaingo's OpenAI client at any compatible
// endpoint, OpenRouter included.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     output.LoggerPort
}

func NewOpenAIAdapter(cfg OpenAIConfig) (*Adapter, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, openai.WithHTTPClient(cfg.HTTPClient))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return NewAdapter(model, cfg.Logger), nil
}

func NewAdapter(model llms.Model, logger output.LoggerPort) *Adapter {
	return &Adapter{model: model, logger: logger}
}

// Model exposes the underlying langchaingo model for langchaingo agents.
func (a *Adapter) Model() llms.Model {
	return a.model
}

func (a *Adapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	opts := []llms.CallOption{llms.WithTemperature(float64(req.Temperature))}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		opts = append(opts, llms.WithTools(convertTools(req.Tools)))
	}

	if a.logger != nil {
		a.logger.Debug("Generating content", "messagesCount", len(messages), "toolsCount", len(req.Tools))
	}

	resp, err := a.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("generate content failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in response")
	}

	return &output.ChatResponse{Message: convertChoices(resp.Choices)}, nil
}

func convertMessages(messages []entity.Message) ([]llms.MessageContent, error) {
	result := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case entity.RoleSystem:
			result = append(result, llms.TextParts(llms.ChatMessageTypeSystem, msg.Content))
		case entity.RoleUser:
			result = append(result, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		case entity.RoleAssistant:
			// Providers read one part per assistant message, so each tool call
			// travels in its own message.
			if msg.Content != "" {
				result = append(result, llms.TextParts(llms.ChatMessageTypeAI, msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				result = append(result, llms.MessageContent{
					Role: llms.ChatMessageTypeAI,
					Parts: []llms.ContentPart{llms.ToolCall{
						ID:   tc.ID,
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					}},
				})
			}
		case entity.RoleTool:
			result = append(result, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: msg.ToolCallID,
					Name:       msg.Name,
					Content:    msg.Content,
				}},
			})
		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	return result, nil
}

func convertTools(tools []entity.ToolDefinition) []llms.Tool {
	result := make([]llms.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return result
}

// convertChoices folds the per-block choices some providers return into one
// assistant message.
func convertChoices(choices []*llms.ContentChoice) entity.Message {
	msg := entity.Message{Role: entity.RoleAssistant}

	var text, thinking strings.Builder
	for _, c := range choices {
		if c == nil {
			continue
		}
		text.WriteString(c.Content)
		if t, ok := c.GenerationInfo["ThinkingContent"].(string); ok {
			thinking.WriteString(t)
		}
		if c.ReasoningContent != "" {
			thinking.WriteString(c.ReasoningContent)
		}
		for _, tc := range c.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			msg.ToolCalls = append(msg.ToolCalls, entity.ToolCall{
				ID:        tc.ID,
				Name:      tc.FunctionCall.Name,
				Arguments: tc.FunctionCall.Arguments,
			})
		}
	}

	if thinking.Len() > 0 {
		msg.ContentBlocks = append(msg.ContentBlocks, entity.ContentBlock{
			Type:     entity.ContentTypeThinking,
			Thinking: thinking.String(),
		})
	}
	msg.Content = text.String()
	if msg.Content != "" {
		msg.ContentBlocks = append(msg.ContentBlocks, entity.ContentBlock{
			Type: entity.ContentTypeText,
			Text: msg.Content,
		})
	}
	for i := range msg.ToolCalls {
		msg.ContentBlocks = append(msg.ContentBlocks, entity.ContentBlock{
			Type:    entity.ContentTypeToolUse,
			ToolUse: &msg.ToolCalls[i],
		})
	}
	return msg
}
