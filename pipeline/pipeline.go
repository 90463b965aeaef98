package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-certs/models"
	"github.com/aluiziolira/go-scrape-certs/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")

	// ErrPipelineCloseTimeout is returned when workers do not drain in time.
	ErrPipelineCloseTimeout = errors.New("pipeline: close timed out")
)

// drainTimeout bounds how long Close waits for queued records to be written.
var drainTimeout = 30 * time.Second

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(records []*models.ProductRecord) error
	Close() error
	Validate() error
}

// Options sizes the pipeline's buffers. DedupeMaxSize 0 turns de-duplication off.
type Options struct {
	BufferSize    int
	BatchSize     int
	DedupeMaxSize int
}

// DefaultOptions returns the sizes the CLI uses.
func DefaultOptions() Options {
	return Options{
		BufferSize:    512,
		BatchSize:     64,
		DedupeMaxSize: 4096,
	}
}

// ExportOptions returns DefaultOptions with de-duplication off, so every
// crawled record becomes one output row even when two records agree on
// every written field.
func ExportOptions() Options {
	opts := DefaultOptions()
	opts.DedupeMaxSize = 0
	return opts
}

// Pipeline coordinates validation, de-duplication, and output writing.
type Pipeline struct {
	writer    OutputWriter
	recordCh  chan *models.ProductRecord
	batchSize int

	wg sync.WaitGroup

	seen   *lru.Cache[string, struct{}]
	seenMu sync.Mutex

	metrics metrics

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
	stopCtx      func() bool
}

// NewPipeline builds a pipeline. Cancelling ctx stops accepting records; records
// already queued are still written by Close.
func NewPipeline(ctx context.Context, writer OutputWriter, opts Options) (*Pipeline, error) {
	defaults := DefaultOptions()
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaults.BufferSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaults.BatchSize
	}

	p := &Pipeline{
		writer:    writer,
		recordCh:  make(chan *models.ProductRecord, opts.BufferSize),
		batchSize: opts.BatchSize,
		metrics:   newMetrics(),
		shutdown:  make(chan struct{}),
	}
	if opts.DedupeMaxSize > 0 {
		cache, err := lru.New[string, struct{}](opts.DedupeMaxSize)
		if err != nil {
			return nil, fmt.Errorf("create dedupe cache: %w", err)
		}
		p.seen = cache
	}
	p.stopCtx = context.AfterFunc(ctx, p.signalShutdown)
	return p, nil
}

// Start launches worker goroutines. More than one worker gives up row order.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues records for downstream processing.
func (p *Pipeline) Process(records []models.ProductRecord) error {
	if len(records) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for i := range records {
		rec := records[i].Clone()
		if err := p.enqueue(&rec); err != nil {
			return err
		}
	}
	return nil
}

// Close prevents more submissions and waits up to drainTimeout for the
// workers to write what is queued.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
	}
	p.mu.Unlock()

	p.stopCtx()
	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.recordCh)
	})

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()
	select {
	case <-drained:
		return p.Err()
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrPipelineCloseTimeout, drainTimeout)
	}
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stats is a point-in-time copy of the pipeline counters.
type Stats struct {
	Processed  int64
	Validation map[string]int
}

// Stats returns a snapshot of the internal counters.
func (p *Pipeline) Stats() Stats {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs until Close.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats := p.Stats()
				slog.Info("pipeline progress",
					slog.Int64("processed", stats.Processed),
					slog.Any("rejected", stats.Validation),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]*models.ProductRecord, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for rec := range p.recordCh {
		prepared := p.prepare(rec)
		if prepared == nil {
			continue
		}
		batch = append(batch, prepared)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) prepare(rec *models.ProductRecord) *models.ProductRecord {
	if err := parser.ValidateRecord(rec); err != nil {
		slog.Debug("dropping invalid record", slog.String("product", rec.Name), slog.Any("error", err))
		p.metrics.addValidation("invalid_record")
		return nil
	}
	rec.Website = parser.NormalizeWebsite(rec.Website)

	if p.seen != nil {
		key := dedupeKey(rec)
		p.seenMu.Lock()
		if p.seen.Contains(key) {
			p.seenMu.Unlock()
			p.metrics.addValidation("duplicate_record")
			return nil
		}
		p.seen.Add(key, struct{}{})
		p.seenMu.Unlock()
	}

	p.metrics.incrementProcessed()
	return rec
}

func dedupeKey(rec *models.ProductRecord) string {
	return strings.Join([]string{rec.IDString(), rec.Name, rec.Company, rec.Website}, "|")
}

func (p *Pipeline) enqueue(rec *models.ProductRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.recordCh <- rec:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.recordCh)
	})
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	validation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		validation[k] = v
	}
	return Stats{Processed: m.processed, Validation: validation}
}
