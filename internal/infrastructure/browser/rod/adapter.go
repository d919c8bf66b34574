package rod

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"search-agent/internal/application/port/output"
	"search-agent/internal/domain/entity"
	"search-agent/internal/infrastructure/browser/htmltext"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

var _ output.BrowserPort = (*BrowserAdapter)(nil)

const (
	defaultTimeout  = 30 * time.Second
	defaultIdleWait = 2 * time.Second
)

var ErrClosed = errors.New("browser is closed")

type BrowserAdapter struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	timeout  time.Duration
	idleWait time.Duration
	clean    *htmltext.CleanConfig
	closed   bool
}

type BrowserConfig struct {
	Headless  bool
	Timeout   time.Duration
	NoSandbox bool
	// ControlURL connects to an already running browser instead of launching one.
	ControlURL string
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless: true,
		Timeout:  defaultTimeout,
	}
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	var l *launcher.Launcher
	controlURL := cfg.ControlURL
	if controlURL == "" {
		l = launcher.New().
			Context(ctx).
			Headless(cfg.Headless).
			NoSandbox(cfg.NoSandbox)

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &BrowserAdapter{
		browser:  browser,
		launcher: l,
		timeout:  cfg.Timeout,
		idleWait: defaultIdleWait,
		clean:    &htmltext.DefaultCleanConfig,
	}, nil
}

// FetchPage opens url in a fresh tab, waits for it to settle and returns its
// readable text. Pages are fetched one at a time.
func (b *BrowserAdapter) FetchPage(ctx context.Context, url string) (*entity.PageContent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}
	defer func() { _ = page.Close() }()

	p := page.Timeout(b.timeout)
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("page load failed: %w", err)
	}
	// Pages that keep long-polling never go idle; the load event is enough.
	_ = p.WaitIdle(b.idleWait)

	raw, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page html: %w", err)
	}

	finalURL := url
	if info, err := p.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	title, text := htmltext.Extract(raw, b.clean)
	return &entity.PageContent{
		URL:   finalURL,
		Title: title,
		Text:  text,
	}, nil
}

func (b *BrowserAdapter) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}
