package scraper

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/aluiziolira/go-scrape-certs/models"
	"github.com/aluiziolira/go-scrape-certs/parser"
	"github.com/aluiziolira/go-scrape-certs/renderer"
)

// State is a pagination driver state.
type State int

const (
	Rendering State = iota
	Extracting
	CheckingTermination
	Advancing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Rendering:
		return "rendering"
	case Extracting:
		return "extracting"
	case CheckingTermination:
		return "checking_termination"
	case Advancing:
		return "advancing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Reasons a crawl stopped.
const (
	StopDuplicatePage = "duplicate_page"
	StopNoNextControl = "no_next_control"
	StopNextDisabled  = "next_disabled"
	StopMaxPages      = "max_pages"
	StopFailed        = "failed"
)

// DriverOptions bounds the driver's waits and page count.
type DriverOptions struct {
	WaitTimeout   time.Duration
	SettleTimeout time.Duration
	PollInterval  time.Duration
	MaxPages      int
}

// Outcome is what a finished driver run hands back. Records is a copy.
type Outcome struct {
	State             State
	StopReason        string
	Records           []models.ProductRecord
	Count             int
	Pages             int
	SubProductParents []string
	Err               error
}

// crawlState is the driver's private accumulator.
type crawlState struct {
	label      string
	rendered   bool
	markup     string
	next       renderer.Element
	pageStart  time.Time
	pages      int
	count      int
	records    []models.ProductRecord
	subParents []string
	stop       string
}

// Driver walks a paginated listing one page at a time.
type Driver struct {
	renderer  renderer.Renderer
	extractor *parser.Extractor
	layout    parser.Layout
	opts      DriverOptions
	metrics   *Metrics
	logger    *slog.Logger
}

// NewDriver builds a driver over an already-navigated renderer.
func NewDriver(r renderer.Renderer, extractor *parser.Extractor, opts DriverOptions, metrics *Metrics, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		renderer:  r,
		extractor: extractor,
		layout:    extractor.Layout(),
		opts:      opts,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run drives the state machine until Done or Failed.
func (d *Driver) Run(ctx context.Context) Outcome {
	st := &crawlState{}
	state := Rendering
	var err error

	for state != Done && state != Failed {
		if ctxErr := ctx.Err(); ctxErr != nil {
			state, err = Failed, navErr("crawl interrupted", ctxErr)
			break
		}

		from := state
		switch state {
		case Rendering:
			state, err = d.render(ctx, st)
		case Extracting:
			state, err = d.extract(st)
		case CheckingTermination:
			state, err = d.checkTermination(ctx, st)
		case Advancing:
			state, err = d.advance(ctx, st)
		}
		d.logger.Debug("driver transition",
			slog.String("from", from.String()),
			slog.String("to", state.String()),
			slog.String("page", st.label),
		)
	}

	if state == Failed {
		st.stop = StopFailed
	}
	return Outcome{
		State:             state,
		StopReason:        st.stop,
		Records:           slices.Clone(st.records),
		Count:             st.count,
		Pages:             st.pages,
		SubProductParents: slices.Clone(st.subParents),
		Err:               err,
	}
}

func (d *Driver) render(ctx context.Context, st *crawlState) (State, error) {
	if st.pages >= d.opts.MaxPages {
		d.logger.Warn("max pages reached", slog.Int("max_pages", d.opts.MaxPages))
		st.stop = StopMaxPages
		return Done, nil
	}

	st.pageStart = time.Now()
	if _, err := d.renderer.WaitForElement(ctx, d.layout.Grid, d.opts.WaitTimeout); err != nil {
		return Failed, navErr("wait for product grid", err)
	}

	label, err := d.activeLabel(ctx)
	if err != nil {
		return Failed, navErr("read active page", err)
	}
	if label == "" {
		d.logger.Warn("active page indicator not found, relying on the next page control",
			slog.Int("page_index", st.pages+1))
	} else if st.rendered && label == st.label {
		d.logger.Info("active page unchanged, last page reached", slog.String("page", label))
		st.stop = StopDuplicatePage
		return Done, nil
	}
	st.label = label
	st.rendered = true

	markup, err := d.renderer.CurrentMarkup(ctx)
	if err != nil {
		return Failed, navErr("read page markup", err)
	}
	st.markup = markup
	return Extracting, nil
}

func (d *Driver) extract(st *crawlState) (State, error) {
	page, err := d.extractor.Extract(st.markup)
	st.markup = ""
	if err != nil {
		return Failed, err
	}

	st.pages++
	st.count += page.Count
	st.records = append(st.records, page.Records...)
	st.subParents = append(st.subParents, page.SubProductParents...)

	d.metrics.ObservePage(page.Count, len(page.SubProductParents), time.Since(st.pageStart))
	d.logger.Info("page extracted",
		slog.String("page", st.label),
		slog.Int("records", page.Count),
		slog.Int("total", st.count),
	)
	return CheckingTermination, nil
}

func (d *Driver) checkTermination(ctx context.Context, st *crawlState) (State, error) {
	next, err := d.renderer.FindElements(ctx, d.layout.NextPage)
	if err != nil {
		return Failed, navErr("find next page control", err)
	}
	if len(next) == 0 {
		st.stop = StopNoNextControl
		return Done, nil
	}
	st.next = next[0]
	return Advancing, nil
}

func (d *Driver) advance(ctx context.Context, st *crawlState) (State, error) {
	if d.disabled(st.next) {
		st.stop = StopNextDisabled
		return Done, nil
	}
	if err := d.renderer.Click(ctx, st.next); err != nil {
		return Failed, navErr("click next page control", err)
	}
	if err := d.waitForSettle(ctx, st.label); err != nil {
		return Failed, err
	}
	return Rendering, nil
}

// waitForSettle polls until the active-page label moves away from prev. An
// unchanged label at the deadline is left for render to treat as the last
// page; only renderer failures that persist to the deadline are errors.
// Without a previous label there is nothing to compare, so it returns at once
// and render's grid wait is the only settle.
func (d *Driver) waitForSettle(ctx context.Context, prev string) error {
	if prev == "" {
		return nil
	}
	deadline := time.Now().Add(d.opts.SettleTimeout)
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		label, err := d.activeLabel(ctx)
		if err == nil && label != prev {
			return nil
		}
		if !time.Now().Before(deadline) {
			if err != nil {
				return navErr("wait for next page", err)
			}
			d.logger.Debug("active page label did not change before settle timeout", slog.String("page", prev))
			return nil
		}

		select {
		case <-ctx.Done():
			return navErr("wait for next page", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (d *Driver) activeLabel(ctx context.Context) (string, error) {
	found, err := d.renderer.FindElements(ctx, d.layout.ActivePage)
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", nil
	}
	return found[0].Text, nil
}

func (d *Driver) disabled(el renderer.Element) bool {
	if d.layout.DisabledClass != "" && el.HasClass(d.layout.DisabledClass) {
		return true
	}
	if _, ok := el.Attr("disabled"); ok {
		return true
	}
	if v, _ := el.Attr("aria-disabled"); v == "true" {
		return true
	}
	return false
}
