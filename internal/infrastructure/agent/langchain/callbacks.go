package langchain

import (
	"context"

	"search-agent/internal/application/port/output"

	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/schema"
)

var _ callbacks.Handler = (*callbackHandler)(nil)

type callbackHandler struct {
	callbacks.SimpleHandler
	logger   output.LoggerPort
	progress output.ProgressPort
}

func (h *callbackHandler) HandleAgentAction(ctx context.Context, action schema.AgentAction) {
	h.logger.Debug("Agent action", "tool", action.Tool, "input", action.ToolInput)
	if thought := thoughtOf(action.Log); thought != "" && h.progress != nil {
		h.progress.ShowThinking(ctx, thought)
	}
}

func (h *callbackHandler) HandleAgentFinish(ctx context.Context, finish schema.AgentFinish) {
	h.logger.Debug("Agent finish", "log", finish.Log)
}

func (h *callbackHandler) HandleChainError(ctx context.Context, err error) {
	h.logger.Error("Chain failed", "error", err)
}

func (h *callbackHandler) HandleLLMError(ctx context.Context, err error) {
	h.logger.Error("LLM request failed", "error", err)
}
