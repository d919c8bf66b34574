package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"search-agent/internal/application/port/output"
	"search-agent/internal/domain/entity"
)

var _ output.SearchPort = (*Client)(nil)

const defaultBaseURL = "https://api.tavily.com"

var (
	ErrMissingAPIKey = errors.New("tavily: API key is empty")
	ErrUnauthorized  = errors.New("tavily: unauthorized (check API key)")
)

type Client struct {
	apiKey     string
	baseURL    string
	depth      string
	http       *http.Client
	maxRetries int
	minBackoff time.Duration
	logger     output.LoggerPort
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithSearchDepth selects "basic" or "advanced" search.
func WithSearchDepth(depth string) Option {
	return func(c *Client) { c.depth = depth }
}

// WithRetry configures retries for 429 and 5xx responses.
func WithRetry(maxRetries int, minBackoff time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if minBackoff > 0 {
			c.minBackoff = minBackoff
		}
	}
}

func WithLogger(logger output.LoggerPort) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		depth:      "basic",
		http:       &http.Client{Timeout: 30 * time.Second},
		maxRetries: 2,
		minBackoff: 500 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type searchResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("tavily api error: %s (status=%d)", e.Detail, e.Status)
	}
	return fmt.Sprintf("tavily api error (status=%d)", e.Status)
}

func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]entity.SearchResult, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	body, err := json.Marshal(searchRequest{
		Query:       query,
		SearchDepth: c.depth,
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, err
	}

	data, err := c.post(ctx, "/search", body)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	results := make([]entity.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, entity.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Score:   r.Score,
		})
	}
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	url := c.baseURL + path

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		res, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("tavily: request failed: %w", err)
		}

		data, readErr := io.ReadAll(io.LimitReader(res.Body, 4<<20))
		res.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("tavily: read response: %w", readErr)
		}

		if res.StatusCode >= 200 && res.StatusCode < 300 {
			return data, nil
		}

		retryable := res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500
		if retryable && attempt < c.maxRetries {
			wait := c.minBackoff * time.Duration(1<<attempt)
			if secs, err := strconv.Atoi(res.Header.Get("Retry-After")); err == nil && secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
			if c.logger != nil {
				c.logger.Warn("Tavily request retry", "status", res.StatusCode, "attempt", attempt+1, "wait", wait.String())
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		if res.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, &APIError{Status: res.StatusCode, Detail: errorDetail(data)}
	}
}

// errorDetail pulls the message out of {"detail": "..."} or
// {"detail": {"error": "..."}} bodies.
func errorDetail(data []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload.Detail, &obj); err == nil {
		return obj.Error
	}
	return ""
}
