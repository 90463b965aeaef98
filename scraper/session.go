package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-certs/config"
	"github.com/aluiziolira/go-scrape-certs/models"
	"github.com/aluiziolira/go-scrape-certs/parser"
	"github.com/aluiziolira/go-scrape-certs/renderer"
)

// Session owns one renderer for the length of a crawl.
type Session struct {
	cfg       *config.Config
	open      renderer.Opener
	extractor *parser.Extractor
	logger    *slog.Logger
	Metrics   *Metrics
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithExtractor replaces the extractor built from the config.
func WithExtractor(e *parser.Extractor) SessionOption {
	return func(s *Session) { s.extractor = e }
}

// WithSessionLogger sets the session and driver logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession builds a crawl session. A nil opener picks one from cfg.Renderer.
func NewSession(cfg *config.Config, open renderer.Opener, opts ...SessionOption) *Session {
	s := &Session{
		cfg:     cfg,
		open:    open,
		logger:  slog.Default(),
		Metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.open == nil {
		s.open = DefaultOpener(cfg)
	}
	if s.extractor == nil {
		s.extractor = parser.NewExtractor(
			parser.WithLayout(cfg.Layout),
			parser.WithSubProductIDPolicy(cfg.SubProductIDPolicy()),
			parser.WithLogger(s.logger),
		)
	}
	return s
}

// DefaultOpener returns the renderer configured by cfg.Renderer.
func DefaultOpener(cfg *config.Config) renderer.Opener {
	if cfg.Renderer == config.RendererStatic {
		return renderer.StaticOpener(renderer.StaticOptions{
			UserAgent:        cfg.UserAgent,
			Timeout:          cfg.WaitTimeout,
			RespectRobotsTxt: cfg.RespectRobotsTxt,
		})
	}
	return renderer.ChromeOpener(renderer.ChromeOptions{
		Headless:  cfg.Headless,
		UserAgent: cfg.UserAgent,
		ExecPath:  cfg.BrowserPath,
	})
}

// Crawl returns the aggregated records only when every page was walked.
// On failure the result is nil; the counters gathered so far are logged.
func (s *Session) Crawl(ctx context.Context) (*models.CrawlResult, error) {
	result, err := s.run(ctx)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CrawlPartial always returns whatever was collected, marking the result
// Partial when the crawl failed. Callers decide whether partial data is usable.
func (s *Session) CrawlPartial(ctx context.Context) (*models.CrawlResult, error) {
	return s.run(ctx)
}

func (s *Session) run(ctx context.Context) (result *models.CrawlResult, err error) {
	if err := s.cfg.Validate(); err != nil {
		s.Metrics.IncError(errorTypeLabel(err))
		return nil, err
	}

	result = &models.CrawlResult{StartTime: time.Now()}
	defer func() {
		result.EndTime = time.Now()
		if err != nil {
			result.Partial = true
			result.FinalState = Failed.String()
			result.StopReason = StopFailed
			s.Metrics.IncError(errorTypeLabel(err))
			s.Metrics.IncTermination(StopFailed)
			s.logger.Error("crawl failed",
				slog.Int("records", result.TotalCount),
				slog.Int("pages", result.PageCount),
				slog.Any("products_with_sub_products", result.SubProductParents),
				slog.Any("error", err),
			)
		}
	}()

	r, err := s.open(ctx)
	if err != nil {
		return result, navErr("open renderer", err)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			s.logger.Warn("close renderer", slog.Any("error", cerr))
		}
	}()

	s.logger.Info("starting crawl", slog.String("url", s.cfg.BaseURL), slog.String("renderer", s.cfg.Renderer))
	if err := r.Navigate(ctx, s.cfg.BaseURL); err != nil {
		return result, navErr("load start page", err)
	}

	driver := NewDriver(r, s.extractor, DriverOptions{
		WaitTimeout:   s.cfg.WaitTimeout,
		SettleTimeout: s.cfg.SettleTimeout,
		PollInterval:  s.cfg.PollInterval,
		MaxPages:      s.cfg.MaxPages,
	}, s.Metrics, s.logger)
	out := driver.Run(ctx)

	result.Records = out.Records
	result.TotalCount = out.Count
	result.PageCount = out.Pages
	result.SubProductParents = out.SubProductParents
	result.FinalState = out.State.String()
	result.StopReason = out.StopReason
	if out.Err != nil {
		return result, out.Err
	}

	s.Metrics.IncTermination(out.StopReason)
	s.logger.Info("crawl complete",
		slog.Int("records", out.Count),
		slog.Int("pages", out.Pages),
		slog.String("stop_reason", out.StopReason),
		slog.Any("products_with_sub_products", out.SubProductParents),
	)
	return result, nil
}
