package di

import (
	"context"
	"fmt"

	"search-agent/internal/adapter/tool"
	"search-agent/internal/application/port/input"
	"search-agent/internal/application/port/output"
	"search-agent/internal/application/service"
	lcagent "search-agent/internal/infrastructure/agent/langchain"
	"search-agent/internal/infrastructure/browser/rod"
	lcllm "search-agent/internal/infrastructure/llm/langchain"
	"search-agent/internal/infrastructure/llm/openrouter"
	"search-agent/internal/infrastructure/prompts"
	"search-agent/internal/infrastructure/search/duckduckgo"
	"search-agent/internal/infrastructure/search/tavily"
	"search-agent/internal/usecase/executor"
	"search-agent/internal/usecase/extractor"
	"search-agent/internal/usecase/reformatter"
	searchsvc "search-agent/internal/usecase/search"

	"github.com/tmc/langchaingo/llms"
)

type Container struct {
	Browser output.BrowserPort
	LLM     output.LLMPort
	Logger  output.LoggerPort
	Tools   output.ToolRegistry
	Agent   input.AgentRunner
	Search  input.SearchExecutor
}

// NewContainer wires the application. progress may be nil. The logger is
// owned by the caller.
func NewContainer(ctx context.Context, cfg Config, log output.LoggerPort, progress output.ProgressPort) (*Container, error) {
	llm, model, err := newLLM(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm: %w", err)
	}

	tools := service.NewToolRegistry()
	if err := tools.Register(tool.NewWebSearchTool(newSearchPort(cfg, log), cfg.SearchMaxResults, log)); err != nil {
		return nil, err
	}

	var browser output.BrowserPort
	if cfg.BrowserEnabled {
		browserCfg := rod.DefaultConfig()
		browserCfg.Headless = cfg.BrowserHeadless
		b, err := rod.NewBrowserAdapter(ctx, browserCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create browser: %w", err)
		}
		browser = b
		if err := tools.Register(tool.NewFetchPageTool(browser, log)); err != nil {
			browser.Close()
			return nil, err
		}
	}

	c := &Container{
		Browser: browser,
		LLM:     llm,
		Logger:  log,
		Tools:   tools,
	}

	example := extractor.FormatBlock(prompts.ExampleResult)
	systemPrompt, err := prompts.GenerateSystemPrompt(prompts.SystemPrompt, tools, example)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to render system prompt: %w", err)
	}

	switch cfg.AgentEngine {
	case EngineLangchain:
		c.Agent = lcagent.New(model, tools, log, progress, lcagent.Config{
			SystemPrompt:  systemPrompt,
			MaxIterations: cfg.MaxIterations,
			Temperature:   cfg.Temperature,
			MaxTokens:     cfg.MaxTokens,
		})
	default:
		c.Agent = executor.New(llm, tools, log, progress, executor.Config{
			SystemPrompt:  systemPrompt,
			MaxIterations: cfg.MaxIterations,
			Temperature:   float32(cfg.Temperature),
			MaxTokens:     cfg.MaxTokens,
		})
	}

	var rf searchsvc.Reformatter
	if cfg.ReformatOnFailure {
		prompt, err := prompts.GenerateReformatPrompt(prompts.ReformatPrompt, example)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to render reformat prompt: %w", err)
		}
		rf = reformatter.New(llm, log, prompt, cfg.MaxTokens)
	}

	c.Search = searchsvc.New(c.Agent, rf, log, searchsvc.Config{
		Extract:           cfg.Extract,
		ReformatOnFailure: cfg.ReformatOnFailure,
		Timeout:           cfg.RequestTimeout,
	})
	return c, nil
}

// Close releases the browser. The logger stays open for the caller.
func (c *Container) Close() {
	if c.Browser != nil {
		c.Browser.Close()
	}
}

// newLLM returns the chat port plus, for the langchain engine, the
// langchaingo model behind the same provider.
func newLLM(cfg Config, log output.LoggerPort) (output.LLMPort, llms.Model, error) {
	switch cfg.LLMProvider {
	case ProviderAnthropic:
		anthropicCfg := lcllm.DefaultAnthropicConfig(cfg.AnthropicAPIKey)
		anthropicCfg.Model = cfg.AnthropicModel
		anthropicCfg.Logger = log
		adapter, err := lcllm.NewAnthropicAdapter(anthropicCfg)
		if err != nil {
			return nil, nil, err
		}
		return adapter, adapter.Model(), nil

	case ProviderOpenRouter:
		llmCfg := openrouter.DefaultConfig(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
		llmCfg.BaseURL = cfg.OpenRouterBaseURL
		llmCfg.Logger = log
		llm := openrouter.New(llmCfg)

		if cfg.AgentEngine != EngineLangchain {
			return llm, nil, nil
		}
		adapter, err := lcllm.NewOpenAIAdapter(lcllm.OpenAIConfig{
			APIKey:  cfg.OpenRouterAPIKey,
			Model:   cfg.OpenRouterModel,
			BaseURL: cfg.OpenRouterBaseURL,
			Logger:  log,
		})
		if err != nil {
			return nil, nil, err
		}
		return llm, adapter.Model(), nil

	default:
		return nil, nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

func newSearchPort(cfg Config, log output.LoggerPort) output.SearchPort {
	if cfg.SearchProvider == SearchDuckDuckGo {
		return duckduckgo.NewClient()
	}
	return tavily.NewClient(cfg.TavilyAPIKey, tavily.WithLogger(log))
}
