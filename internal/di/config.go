package di

import (
	"fmt"
	"time"

	"search-agent/internal/application/port/output"
	"search-agent/internal/usecase/extractor"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"

	EngineNative    = "native"
	EngineLangchain = "langchain"

	SearchTavily     = "tavily"
	SearchDuckDuckGo = "duckduckgo"
)

type Config struct {
	LLMProvider       string
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string
	AnthropicAPIKey   string
	AnthropicModel    string
	Temperature       float64
	MaxTokens         int

	AgentEngine   string
	MaxIterations int

	SearchProvider   string
	TavilyAPIKey     string
	SearchMaxResults int

	BrowserEnabled  bool
	BrowserHeadless bool

	Extract           extractor.Options
	ReformatOnFailure bool
	RequestTimeout    time.Duration

	LogLevel   string
	LogDir     string
	ServerAddr string
}

// ConfigFromEnv reads the configuration. Keys required by the selected
// providers must be present.
func ConfigFromEnv(env output.ConfigPort) (Config, error) {
	cfg := Config{
		LLMProvider:       env.GetWithDefault("LLM_PROVIDER", ProviderOpenRouter),
		OpenRouterBaseURL: env.GetWithDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		AnthropicModel:    env.GetWithDefault("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
		Temperature:       env.GetFloat("LLM_TEMPERATURE", 0),
		MaxTokens:         env.GetInt("LLM_MAX_TOKENS", 512),

		AgentEngine:   env.GetWithDefault("AGENT_ENGINE", EngineNative),
		MaxIterations: env.GetInt("AGENT_MAX_ITERATIONS", 15),

		SearchProvider:   env.GetWithDefault("SEARCH_PROVIDER", SearchTavily),
		SearchMaxResults: env.GetInt("SEARCH_MAX_RESULTS", 5),

		BrowserEnabled:  env.GetBool("BROWSER_ENABLED", false),
		BrowserHeadless: env.GetBool("BROWSER_HEADLESS", true),

		Extract: extractor.Options{
			StrictSources: env.GetBool("EXTRACT_STRICT_SOURCES", false),
			DedupeSources: env.GetBool("EXTRACT_DEDUPE_SOURCES", false),
		},
		ReformatOnFailure: env.GetBool("REFORMAT_ON_FAILURE", true),
		RequestTimeout:    env.GetDuration("REQUEST_TIMEOUT", 5*time.Minute),

		LogLevel:   env.GetWithDefault("LOG_LEVEL", "info"),
		LogDir:     env.GetWithDefault("LOG_DIR", "log"),
		ServerAddr: env.GetWithDefault("SERVER_ADDR", ":8080"),
	}

	var err error
	switch cfg.LLMProvider {
	case ProviderOpenRouter:
		if cfg.OpenRouterAPIKey, err = env.MustGet("OPENROUTER_API_KEY"); err != nil {
			return cfg, err
		}
		if cfg.OpenRouterModel, err = env.MustGet("OPENROUTER_MODEL_NAME"); err != nil {
			return cfg, err
		}
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey, err = env.MustGet("ANTHROPIC_API_KEY"); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	switch cfg.AgentEngine {
	case EngineNative, EngineLangchain:
	default:
		return cfg, fmt.Errorf("unknown AGENT_ENGINE %q", cfg.AgentEngine)
	}

	switch cfg.SearchProvider {
	case SearchTavily:
		if cfg.TavilyAPIKey, err = env.MustGet("TAVILY_API_KEY"); err != nil {
			return cfg, err
		}
	case SearchDuckDuckGo:
	default:
		return cfg, fmt.Errorf("unknown SEARCH_PROVIDER %q", cfg.SearchProvider)
	}

	return cfg, nil
}
