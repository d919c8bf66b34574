package rod

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Headless)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.False(t, cfg.NoSandbox, "Should be secure by default")
	assert.Empty(t, cfg.ControlURL)
}

func newTestAdapter(t *testing.T) *BrowserAdapter {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no local browser available")
	}

	cfg := DefaultConfig()
	cfg.Timeout = 15 * time.Second
	cfg.NoSandbox = true

	adapter, err := NewBrowserAdapter(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(adapter.Close)
	return adapter
}

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBrowserAdapter_FetchPage(t *testing.T) {
	adapter := newTestAdapter(t)
	srv := serve(t, ArticleHTML)

	page, err := adapter.FetchPage(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Test Page", page.Title)
	assert.Equal(t, "Hello World\nFirst paragraph.", page.Text)
	assert.Contains(t, page.URL, srv.URL)
}

func TestBrowserAdapter_FetchPage_RunsScripts(t *testing.T) {
	adapter := newTestAdapter(t)
	srv := serve(t, DynamicHTML)

	page, err := adapter.FetchPage(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, page.Text, "Rendered by script")
}

func TestBrowserAdapter_FetchPage_CanceledContext(t *testing.T) {
	adapter := newTestAdapter(t)
	srv := serve(t, ArticleHTML)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := adapter.FetchPage(ctx, srv.URL)
	assert.Error(t, err)
}

func TestBrowserAdapter_Close(t *testing.T) {
	adapter := newTestAdapter(t)

	adapter.Close()
	adapter.Close()

	_, err := adapter.FetchPage(context.Background(), "http://127.0.0.1")
	assert.ErrorIs(t, err, ErrClosed)
}
