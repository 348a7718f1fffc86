package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	PagesScraped    prometheus.Counter
	LinksDiscovered prometheus.Counter
	ArticlesTotal   *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	JobRunning      prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		PagesScraped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "linkscout_result_pages_scraped_total",
			Help: "The total number of search result pages scraped",
		}),
		LinksDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "linkscout_links_discovered_total",
			Help: "The total number of candidate links discovered",
		}),
		ArticlesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "linkscout_articles_processed_total",
			Help: "The total number of articles processed by outcome",
		}, []string{"status"}), // 'success', 'irrelevant', 'error'
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "linkscout_errors_total",
			Help: "The total number of errors encountered",
		}, []string{"type"}), // e.g. 'discovery_failed', 'extraction_failed', 'sheet_append_failed'
		JobRunning: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "linkscout_job_running",
			Help: "Whether a crawl job is currently running",
		}),
	}
}

func (m *Metrics) IncArticles(status string) {
	m.ArticlesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncErrors(errorType string) {
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
