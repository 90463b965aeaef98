package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-certs/config"
	"github.com/aluiziolira/go-scrape-certs/parser"
	"github.com/aluiziolira/go-scrape-certs/renderer"
)

// ErrNavigation indicates a failure driving the renderer: loading the start
// page, waiting for an element, or operating the pagination controls.
type ErrNavigation struct {
	Op  string
	Err error
}

func (e ErrNavigation) Error() string {
	return fmt.Errorf("navigation: %s: %w", e.Op, e.Err).Error()
}

func (e ErrNavigation) Unwrap() error {
	return e.Err
}

func navErr(op string, err error) error {
	return ErrNavigation{Op: op, Err: err}
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	if errors.Is(err, config.ErrConfiguration) {
		return "configuration"
	}
	var perr *parser.ParseError
	if errors.As(err, &perr) {
		return parser.ErrorTypeLabel(err)
	}
	var nav ErrNavigation
	if errors.As(err, &nav) {
		switch {
		case errors.Is(err, renderer.ErrElementTimeout), errors.Is(err, context.DeadlineExceeded):
			return "timeout"
		case errors.Is(err, context.Canceled):
			return "canceled"
		}
		return "navigation"
	}
	return "other"
}
