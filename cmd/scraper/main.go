package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/option"

	"github.com/aluiziolira/go-scrape-certs/config"
	"github.com/aluiziolira/go-scrape-certs/models"
	"github.com/aluiziolira/go-scrape-certs/pipeline"
	"github.com/aluiziolira/go-scrape-certs/report"
	"github.com/aluiziolira/go-scrape-certs/scraper"
	"github.com/aluiziolira/go-scrape-certs/sheets"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	d := config.DefaultConfig()
	baseURL := flag.String("base-url", envString("SCRAPER_BASE_URL", d.BaseURL), "Listing URL to crawl")
	rendererKind := flag.String("renderer", envString("SCRAPER_RENDERER", d.Renderer), "Renderer: chrome or static")
	headless := flag.Bool("headless", envBool("SCRAPER_HEADLESS", d.Headless), "Run Chrome headless")
	browserPath := flag.String("browser-path", envString("SCRAPER_BROWSER_PATH", d.BrowserPath), "Chrome executable (default: autodetect)")
	userAgent := flag.String("user-agent", envString("SCRAPER_USER_AGENT", d.UserAgent), "User-Agent header")
	respectRobots := flag.Bool("respect-robots", envBool("SCRAPER_RESPECT_ROBOTS", d.RespectRobotsTxt), "Respect robots.txt (static renderer)")
	waitTimeout := flag.Duration("wait-timeout", envDuration("SCRAPER_WAIT_TIMEOUT", d.WaitTimeout), "Maximum wait for the product grid")
	settleTimeout := flag.Duration("settle-timeout", envDuration("SCRAPER_SETTLE_TIMEOUT", d.SettleTimeout), "Maximum wait for the page to change after clicking next")
	pollInterval := flag.Duration("poll-interval", envDuration("SCRAPER_POLL_INTERVAL", d.PollInterval), "Polling interval while waiting for the page to change")
	maxPages := flag.Int("pages", envInt("SCRAPER_PAGES", d.MaxPages), "Maximum listing pages to visit")
	subProductIDs := flag.String("sub-product-ids", envString("SCRAPER_SUB_PRODUCT_IDS", d.SubProductIDs), "Sub-product IKS ID: inherit or none")
	outputDir := flag.String("output-dir", envString("SCRAPER_OUTPUT_DIR", d.OutputDir), "Directory for dated output files")
	outputPrefix := flag.String("output-prefix", envString("SCRAPER_OUTPUT_PREFIX", d.OutputPrefix), "Output file and worksheet name prefix")
	outputFormat := flag.String("format", envString("SCRAPER_FORMAT", d.OutputFormat), "Output format: csv, json, or dual")
	overwrite := flag.Bool("overwrite", false, "Replace today's output file if it exists")
	reuse := flag.Bool("reuse", envBool("SCRAPER_REUSE", false), "Load today's CSV instead of crawling")
	spreadsheetID := flag.String("spreadsheet", envString("SCRAPER_SPREADSHEET_ID", ""), "Google spreadsheet ID to publish to")
	sheetIndex := flag.Int("sheet-index", envInt("SCRAPER_SHEET_INDEX", d.SheetIndex), "Worksheet index holding the previous run (-1: none)")
	credentials := flag.String("credentials", envString("SERVICE_ACCOUNT_FILE", ""), "Service account JSON key file")
	metricsAddr := flag.String("metrics-addr", envString("SCRAPER_METRICS_ADDR", ""), "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.BaseURL = *baseURL
	cfg.Renderer = strings.ToLower(*rendererKind)
	cfg.Headless = *headless
	cfg.BrowserPath = *browserPath
	cfg.UserAgent = *userAgent
	cfg.RespectRobotsTxt = *respectRobots
	cfg.WaitTimeout = *waitTimeout
	cfg.SettleTimeout = *settleTimeout
	cfg.PollInterval = *pollInterval
	cfg.MaxPages = *maxPages
	cfg.SubProductIDs = strings.ToLower(*subProductIDs)
	cfg.OutputDir = *outputDir
	cfg.OutputPrefix = *outputPrefix
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.Overwrite = *overwrite
	cfg.Reuse = *reuse
	cfg.SpreadsheetID = *spreadsheetID
	cfg.SheetIndex = *sheetIndex
	cfg.CredentialsFile = *credentials
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	today := time.Now()
	csvPath := pipeline.DatedFilename(cfg.OutputDir, cfg.OutputPrefix, today, "csv")
	jsonPath := pipeline.DatedFilename(cfg.OutputDir, cfg.OutputPrefix, today, "jsonl")
	worksheetTitle := strings.TrimSuffix(filepath.Base(csvPath), ".csv")

	var records []models.ProductRecord
	if cfg.Reuse {
		loaded, err := pipeline.ReadCSV(csvPath)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Error("no output for today yet; run without -reuse first", slog.String("file", csvPath))
			os.Exit(1)
		}
		if err != nil {
			slog.Error("loading existing output", slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("loaded existing output", slog.String("file", csvPath), slog.Int("records", len(loaded)))
		records = loaded
	} else {
		if err := pipeline.CheckAvailable(cfg.Overwrite, outputPaths(cfg.OutputFormat, csvPath, jsonPath)...); err != nil {
			slog.Error("output already exists; pass -overwrite or -reuse", slog.Any("error", err))
			os.Exit(1)
		}

		result, err := crawl(ctx, cfg)
		if err != nil {
			printFailure(result, err)
			os.Exit(1)
		}

		outputFile := csvPath
		if cfg.OutputFormat == "json" {
			outputFile = jsonPath
		}
		stats, err := persist(ctx, cfg, result.Records, csvPath, jsonPath)
		if err != nil {
			slog.Error("writing output", slog.Any("error", err))
			os.Exit(1)
		}
		printSummary(result, stats, outputFile)
		records = result.Records

		if cfg.SpreadsheetID != "" {
			if err := publish(ctx, cfg, worksheetTitle, records); err != nil {
				slog.Error("publishing to spreadsheet", slog.Any("error", err))
				os.Exit(1)
			}
		}
	}

	report.Render(os.Stdout, records, 10)

	if cfg.SpreadsheetID != "" {
		compareWithPrevious(ctx, cfg, len(records))
	}
}

func crawl(ctx context.Context, cfg *config.Config) (*models.CrawlResult, error) {
	session := scraper.NewSession(cfg, nil)

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(session.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	return session.CrawlPartial(ctx)
}

// persist runs records through a single-worker pipeline so rows keep crawl order.
func persist(ctx context.Context, cfg *config.Config, records []models.ProductRecord, csvPath, jsonPath string) (pipeline.Stats, error) {
	writer, err := createWriter(cfg.OutputFormat, csvPath, jsonPath, cfg.Overwrite)
	if err != nil {
		return pipeline.Stats{}, err
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	p, err := pipeline.NewPipeline(ctx, writer, pipeline.ExportOptions())
	if err != nil {
		return pipeline.Stats{}, err
	}
	p.Start(1)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	if err := p.Process(records); err != nil {
		p.Close()
		return p.Stats(), fmt.Errorf("queue records: %w", err)
	}
	if err := p.Close(); err != nil {
		return p.Stats(), fmt.Errorf("pipeline shutdown: %w", err)
	}
	if err := writer.Validate(); err != nil {
		return p.Stats(), fmt.Errorf("output validation: %w", err)
	}
	stats := p.Stats()
	if stats.Processed != int64(len(records)) {
		return stats, fmt.Errorf("wrote %d of %d records: %v", stats.Processed, len(records), stats.Validation)
	}
	return stats, nil
}

func outputPaths(format, csvPath, jsonPath string) []string {
	switch format {
	case "json":
		return []string{jsonPath}
	case "dual":
		return []string{csvPath, jsonPath}
	default:
		return []string{csvPath}
	}
}

func createWriter(format, csvPath, jsonPath string, overwrite bool) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(jsonPath, overwrite)
	case "csv":
		return pipeline.NewCSVWriter(csvPath, overwrite)
	case "dual":
		return pipeline.NewDualWriter(csvPath, jsonPath, overwrite)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func openSheets(ctx context.Context, cfg *config.Config) (*sheets.Sheets, error) {
	book, err := sheets.NewGoogle(ctx, cfg.SpreadsheetID, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, err
	}
	return sheets.New(book, cfg.DefaultSheetIndex()), nil
}

func publish(ctx context.Context, cfg *config.Config, title string, records []models.ProductRecord) error {
	s, err := openSheets(ctx, cfg)
	if err != nil {
		return err
	}
	if err := s.CreateWriteSheet(ctx, title, records); err != nil {
		return err
	}
	slog.Info("worksheet created", slog.String("title", title), slog.Int("records", len(records)))
	return nil
}

// compareWithPrevious reads the configured worksheet back and logs how it
// differs in size from this run.
func compareWithPrevious(ctx context.Context, cfg *config.Config, current int) {
	s, err := openSheets(ctx, cfg)
	if err != nil {
		slog.Warn("open spreadsheet", slog.Any("error", err))
		return
	}
	previous, err := s.ReadSheet(ctx, nil)
	if err != nil {
		slog.Warn("read previous worksheet", slog.Any("error", err))
		return
	}
	slog.Info("previous worksheet",
		slog.Int("index", cfg.SheetIndex),
		slog.Any("columns", previous.Header),
		slog.Int("rows", len(previous.Rows)),
		slog.Int("current_rows", current),
	)
}

func printSummary(result *models.CrawlResult, stats pipeline.Stats, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Crawl complete")
	fmt.Printf("  Records:       %d\n", result.TotalCount)
	fmt.Printf("  Written:       %d\n", stats.Processed)
	fmt.Printf("  Pages:         %d\n", result.PageCount)
	fmt.Printf("  Stop reason:   %s\n", result.StopReason)
	if len(result.SubProductParents) > 0 {
		fmt.Printf("  Sub-products:  %s\n", strings.Join(result.SubProductParents, ", "))
	}
	if len(stats.Validation) > 0 {
		fmt.Printf("  Rejected:      %v\n", stats.Validation)
	}
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func printFailure(result *models.CrawlResult, err error) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(os.Stderr, "\n"+separator)
	fmt.Fprintln(os.Stderr, "Crawl failed")
	fmt.Fprintf(os.Stderr, "  Error:         %v\n", err)
	if result != nil {
		fmt.Fprintf(os.Stderr, "  Records:       %d (not saved)\n", result.TotalCount)
		fmt.Fprintf(os.Stderr, "  Pages:         %d\n", result.PageCount)
		if len(result.SubProductParents) > 0 {
			fmt.Fprintf(os.Stderr, "  Sub-products:  %s\n", strings.Join(result.SubProductParents, ", "))
		}
	}
	fmt.Fprintln(os.Stderr, separator)
}

func envString(key, fallback string) string {
	if value, ok := config.EnvString(key); ok {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	value, ok, err := config.EnvInt(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s: %v\n", key, err)
		os.Exit(1)
	}
	if !ok {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	value, ok, err := config.EnvBool(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s: %v\n", key, err)
		os.Exit(1)
	}
	if !ok {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value, ok, err := config.EnvDuration(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s: %v\n", key, err)
		os.Exit(1)
	}
	if !ok {
		return fallback
	}
	return value
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
