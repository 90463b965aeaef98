package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-certs/parser"
)

// ErrConfiguration marks every configuration problem; it is reported before
// any browser or network activity starts.
var ErrConfiguration = errors.New("configuration")

// Renderer kinds.
const (
	RendererChrome = "chrome"
	RendererStatic = "static"
)

// Config holds crawler configuration.
type Config struct {
	BaseURL          string
	Renderer         string // chrome or static
	Headless         bool
	BrowserPath      string
	UserAgent        string
	RespectRobotsTxt bool
	WaitTimeout      time.Duration
	SettleTimeout    time.Duration
	PollInterval     time.Duration
	MaxPages         int
	SubProductIDs    string // inherit or none
	Layout           parser.Layout

	OutputDir    string
	OutputPrefix string
	OutputFormat string // csv, json, or dual
	Overwrite    bool
	Reuse        bool

	SpreadsheetID   string
	SheetIndex      int // negative means unset
	CredentialsFile string

	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns defaults for the iKeepSafe product listing.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://ikeepsafe.org/products/",
		Renderer:         RendererChrome,
		Headless:         true,
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		RespectRobotsTxt: false,
		WaitTimeout:      10 * time.Second,
		SettleTimeout:    2 * time.Second,
		PollInterval:     100 * time.Millisecond,
		MaxPages:         200,
		SubProductIDs:    string(parser.InheritParentID),
		Layout:           parser.DefaultLayout(),
		OutputDir:        "data",
		OutputPrefix:     "iKeepSafe_certs",
		OutputFormat:     "csv",
		SheetIndex:       -1,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.Renderer != RendererChrome && c.Renderer != RendererStatic {
		return fmt.Errorf("renderer must be %s or %s", RendererChrome, RendererStatic)
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be positive")
	}
	if c.SettleTimeout <= 0 {
		return fmt.Errorf("settle timeout must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.PollInterval > c.SettleTimeout {
		return fmt.Errorf("poll interval (%s) cannot exceed settle timeout (%s)", c.PollInterval, c.SettleTimeout)
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if _, err := parser.ParseSubProductIDPolicy(c.SubProductIDs); err != nil {
		return err
	}
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if c.OutputPrefix == "" {
		return fmt.Errorf("output prefix cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.Reuse && c.OutputFormat == "json" {
		return fmt.Errorf("reuse requires csv or dual output format")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.SpreadsheetID != "" && c.CredentialsFile == "" {
		return fmt.Errorf("credentials file is required when a spreadsheet is configured")
	}
	if c.SpreadsheetID != "" && c.SheetIndex < 0 {
		return fmt.Errorf("sheet index is required when a spreadsheet is configured")
	}

	return nil
}

// SubProductIDPolicy returns the validated sub-product identifier policy.
func (c *Config) SubProductIDPolicy() parser.SubProductIDPolicy {
	p, err := parser.ParseSubProductIDPolicy(c.SubProductIDs)
	if err != nil {
		return parser.InheritParentID
	}
	return p
}

// DefaultSheetIndex returns the configured sheet index, if any.
func (c *Config) DefaultSheetIndex() *int {
	if c.SheetIndex < 0 {
		return nil
	}
	idx := c.SheetIndex
	return &idx
}
