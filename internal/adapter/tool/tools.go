package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"search-agent/internal/application/port/output"
	"search-agent/internal/domain/entity"
)

var (
	_ output.ToolPort = (*WebSearchTool)(nil)
	_ output.ToolPort = (*FetchPageTool)(nil)
)

const maxPageTextRunes = 8000

type WebSearchTool struct {
	search     output.SearchPort
	maxResults int
	logger     output.LoggerPort
}

func NewWebSearchTool(search output.SearchPort, maxResults int, logger output.LoggerPort) *WebSearchTool {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &WebSearchTool{search: search, maxResults: maxResults, logger: logger}
}

func (t *WebSearchTool) Name() entity.ToolName { return entity.ToolWebSearch }
func (t *WebSearchTool) Description() string {
	return "Searches the web and returns the top results with title, URL and a short snippet. " +
		"Use it to find current facts and the pages that support them."
}
func (t *WebSearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search query",
			},
		},
		"required": []string{"query"},
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, args string) (string, error) {
	var input struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(args), &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	input.Query = strings.TrimSpace(input.Query)
	if input.Query == "" {
		return "", errors.New("query is required")
	}

	results, err := t.search.Search(ctx, input.Query, t.maxResults)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	t.logger.Debug("Search completed", "query", input.Query, "results", len(results))

	return FormatSearchResults(results), nil
}

// FormatSearchResults renders results as the numbered text block the agent
// reads as its observation.
func FormatSearchResults(results []entity.SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   URL: %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Snippet)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

type FetchPageTool struct {
	browser output.BrowserPort
	logger  output.LoggerPort
}

func NewFetchPageTool(browser output.BrowserPort, logger output.LoggerPort) *FetchPageTool {
	return &FetchPageTool{browser: browser, logger: logger}
}

func (t *FetchPageTool) Name() entity.ToolName { return entity.ToolFetchPage }
func (t *FetchPageTool) Description() string {
	return "Opens a web page and returns its title and readable text. " +
		"Use it to verify a search result before citing it."
}
func (t *FetchPageTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "Absolute http(s) URL to open",
			},
		},
		"required": []string{"url"},
	}
}

func (t *FetchPageTool) Execute(ctx context.Context, args string) (string, error) {
	var input struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(args), &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	input.URL = strings.TrimSpace(input.URL)
	if !strings.HasPrefix(input.URL, "http://") && !strings.HasPrefix(input.URL, "https://") {
		return "", fmt.Errorf("url must start with http:// or https://, got %q", input.URL)
	}

	page, err := t.browser.FetchPage(ctx, input.URL)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	t.logger.Debug("Page fetched", "url", page.URL, "textLen", len(page.Text))

	text := page.Text
	if utf8.RuneCountInString(text) > maxPageTextRunes {
		text = string([]rune(text)[:maxPageTextRunes]) + "\n... (truncated)"
	}
	return fmt.Sprintf("Title: %s\nURL: %s\n\n%s", page.Title, page.URL, text), nil
}
