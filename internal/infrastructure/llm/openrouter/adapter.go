package openrouter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"search-agent/internal/application/port/output"
	"search-agent/internal/infrastructure/logger"

	"github.com/sashabaranov/go-openai"
)

var _ output.StreamingLLMPort = (*Adapter)(nil)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Adapter talks to OpenRouter (or any OpenAI-compatible endpoint) with
// native tool calling.
type Adapter struct {
	client *openai.Client
	model  string
	logger output.LoggerPort
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// Transport overrides http.DefaultTransport; tests point it at httptest.
	Transport http.RoundTripper
	Logger    output.LoggerPort
}

func DefaultConfig(apiKey, model string) Config {
	return Config{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: defaultBaseURL,
	}
}

func New(cfg Config) *Adapter {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Transport: &debugTransport{base: base, logger: log}}

	return &Adapter{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: log,
	}
}

func (a *Adapter) request(req output.ChatRequest, stream bool) openai.ChatCompletionRequest {
	tools := convertTools(req.Tools)
	return openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    convertMessages(req.Messages),
		Tools:       tools,
		ToolChoice:  toolChoice(tools),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

func (a *Adapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	resp, err := a.client.CreateChatCompletion(ctx, a.request(req, false))
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in response")
	}

	msg := resp.Choices[0].Message
	return &output.ChatResponse{
		Message: assistantMessage(msg.Content, msg.ReasoningContent, toEntityCalls(msg.ToolCalls)),
	}, nil
}

// ChatStream reads the reply as server-sent events and assembles it into a
// single message.
func (a *Adapter) ChatStream(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	stream, err := a.client.CreateChatCompletionStream(ctx, a.request(req, true))
	if err != nil {
		return nil, fmt.Errorf("chat stream failed: %w", err)
	}
	defer stream.Close()

	var acc streamAccumulator
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("chat stream interrupted: %w", ctxErr)
			}
			a.logger.Error("Stream receive failed", "error", err, "chunks", acc.chunks)
			return nil, fmt.Errorf("stream recv error: %w", err)
		}
		acc.add(chunk)
	}

	msg := acc.message()
	a.logger.Debug("Stream assembled",
		"chunks", acc.chunks,
		"textLen", len(msg.Content),
		"toolCalls", len(msg.ToolCalls),
		"unindexedToolDeltas", acc.unindexed)
	return &output.ChatResponse{Message: msg}, nil
}

// toolChoice is only sent alongside tools; some providers reject it otherwise.
func toolChoice(tools []openai.Tool) any {
	if len(tools) == 0 {
		return nil
	}
	return "auto"
}
