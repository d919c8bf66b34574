package openrouter

import (
	"net/http"
	"time"

	"search-agent/internal/application/port/output"
)

// debugTransport logs request metadata at debug level. Bodies carry the
// whole conversation, so only their size is recorded.
type debugTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Debug("OpenRouter request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"error", err)
		return nil, err
	}

	t.logger.Debug("OpenRouter request",
		"method", req.Method,
		"path", req.URL.Path,
		"requestBytes", req.ContentLength,
		"status", resp.StatusCode,
		"elapsed", time.Since(start).String())
	return resp, nil
}
