package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"search-agent/internal/application/port/output"
	"search-agent/internal/domain/entity"

	"github.com/tmc/langchaingo/tools/duckduckgo"
)

var _ output.SearchPort = (*Client)(nil)

const noResults = "No good DuckDuckGo Search Results was found"

// Client runs searches through the langchaingo DuckDuckGo tool and parses
// its text output back into results. No API key is needed.
type Client struct {
	userAgent  string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func NewClient(opts ...Option) *Client {
	c := &Client{userAgent: duckduckgo.DefaultUserAgent}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]entity.SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	var toolOpts []duckduckgo.Option
	if c.httpClient != nil {
		toolOpts = append(toolOpts, duckduckgo.WithHTTPClient(c.httpClient))
	}
	// The tool fixes its result count at construction.
	tool, err := duckduckgo.New(maxResults, c.userAgent, toolOpts...)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: create tool: %w", err)
	}

	out, err := tool.Call(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: search failed: %w", err)
	}
	return parseResults(out), nil
}

// parseResults reads blocks of "Title: ...\nDescription: ...\nURL: ..."
// separated by blank lines.
func parseResults(out string) []entity.SearchResult {
	out = strings.TrimSpace(out)
	if out == "" || out == noResults {
		return []entity.SearchResult{}
	}

	var results []entity.SearchResult
	for _, block := range strings.Split(out, "\n\nTitle: ") {
		block = strings.TrimPrefix(strings.TrimSpace(block), "Title: ")

		urlIdx := strings.LastIndex(block, "\nURL: ")
		if urlIdx < 0 {
			continue
		}
		link := strings.TrimSpace(block[urlIdx+len("\nURL: "):])
		head := block[:urlIdx]

		title, snippet := head, ""
		if descIdx := strings.Index(head, "\nDescription: "); descIdx >= 0 {
			title = head[:descIdx]
			snippet = head[descIdx+len("\nDescription: "):]
		}

		if link == "" {
			continue
		}
		results = append(results, entity.SearchResult{
			Title:   strings.TrimSpace(title),
			URL:     link,
			Snippet: strings.Join(strings.Fields(snippet), " "),
		})
	}
	if results == nil {
		results = []entity.SearchResult{}
	}
	return results
}
