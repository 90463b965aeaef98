package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawler.
type Metrics struct {
	Registry          *prometheus.Registry
	PagesTotal        prometheus.Counter
	RecordsTotal      prometheus.Counter
	SubProductsTotal  prometheus.Counter
	PageDuration      prometheus.Histogram
	TerminationsTotal *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_pages_total",
			Help: "Total listing pages extracted.",
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_records_total",
			Help: "Total product records extracted.",
		},
	)
	subProducts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_products_with_sub_products_total",
			Help: "Total product cards that expanded into sub-product records.",
		},
	)
	pageDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crawler_page_duration_seconds",
			Help:    "Time from page render to extraction complete.",
			Buckets: prometheus.DefBuckets,
		},
	)
	terminations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_terminations_total",
			Help: "Crawls finished, by stop reason.",
		},
		[]string{"reason"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_errors_total",
			Help: "Total number of crawl errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(pages, records, subProducts, pageDuration, terminations, errorsTotal)

	return &Metrics{
		Registry:          registry,
		PagesTotal:        pages,
		RecordsTotal:      records,
		SubProductsTotal:  subProducts,
		PageDuration:      pageDuration,
		TerminationsTotal: terminations,
		ErrorsTotal:       errorsTotal,
	}
}

// ObservePage records one extracted page.
func (m *Metrics) ObservePage(records, subParents int, d time.Duration) {
	if m == nil {
		return
	}
	m.PagesTotal.Inc()
	m.RecordsTotal.Add(float64(records))
	m.SubProductsTotal.Add(float64(subParents))
	m.PageDuration.Observe(d.Seconds())
}

// IncTermination counts a finished crawl.
func (m *Metrics) IncTermination(reason string) {
	if m == nil {
		return
	}
	m.TerminationsTotal.WithLabelValues(reason).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
