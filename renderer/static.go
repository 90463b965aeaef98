package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// StaticOptions configures the HTTP-only renderer.
type StaticOptions struct {
	UserAgent        string
	Timeout          time.Duration
	RespectRobotsTxt bool
}

// Static renders server-side listings over plain HTTP. Clicking an element
// follows its href, so it only suits listings whose pagination controls are
// real links.
type Static struct {
	collector *colly.Collector

	mu      sync.Mutex
	current *url.URL
	markup  string
	status  int
	closed  bool
}

// NewStatic builds a colly-backed renderer.
func NewStatic(opts StaticOptions) *Static {
	collector := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(opts.UserAgent),
	)
	if opts.Timeout > 0 {
		collector.SetRequestTimeout(opts.Timeout)
	}
	collector.IgnoreRobotsTxt = !opts.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	s := &Static{collector: collector}
	collector.OnResponse(func(r *colly.Response) {
		s.mu.Lock()
		s.current = r.Request.URL
		s.markup = string(r.Body)
		s.status = r.StatusCode
		s.mu.Unlock()
		slog.Debug("static page loaded",
			slog.String("url", r.Request.URL.String()),
			slog.Int("status", r.StatusCode),
			slog.Int("bytes", len(r.Body)),
		)
	})
	return s
}

// StaticOpener returns an Opener producing Static renderers.
func StaticOpener(opts StaticOptions) Opener {
	return func(ctx context.Context) (Renderer, error) {
		return NewStatic(opts), nil
	}
}

// WithTransport swaps the HTTP transport, mainly for tests.
func (s *Static) WithTransport(rt http.RoundTripper) {
	s.collector.WithTransport(rt)
}

func (s *Static) Navigate(ctx context.Context, rawURL string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := s.collector.Visit(rawURL); err != nil {
		return fmt.Errorf("visit %s: %w", rawURL, err)
	}
	return nil
}

func (s *Static) CurrentMarkup(ctx context.Context) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", fmt.Errorf("no page loaded")
	}
	return s.markup, nil
}

// WaitForElement checks once: static markup cannot change while waiting.
func (s *Static) WaitForElement(ctx context.Context, selector string, _ time.Duration) (Element, error) {
	found, err := s.FindElements(ctx, selector)
	if err != nil {
		return Element{}, err
	}
	if len(found) == 0 {
		return Element{}, fmt.Errorf("%w: %s", ErrElementTimeout, selector)
	}
	return found[0], nil
}

func (s *Static) FindElements(ctx context.Context, selector string) ([]Element, error) {
	markup, err := s.CurrentMarkup(ctx)
	if err != nil {
		return nil, err
	}
	return QueryMarkup(markup, selector)
}

func (s *Static) Click(ctx context.Context, el Element) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	href, ok := el.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || href == "#" || strings.HasPrefix(href, "javascript:") {
		return ErrNotClickable
	}

	s.mu.Lock()
	base := s.current
	s.mu.Unlock()

	target, err := url.Parse(href)
	if err != nil {
		return fmt.Errorf("parse href %q: %w", href, err)
	}
	if base != nil {
		target = base.ResolveReference(target)
	}
	return s.Navigate(ctx, target.String())
}

func (s *Static) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Static) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}
