package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ListingsScraped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unitprice_listings_scraped_total",
			Help: "Product pages scraped and saved",
		},
	)

	ScrapeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitprice_scrape_failures_total",
			Help: "Failed scrape tasks by task type",
		},
		[]string{"task"},
	)

	RowsParsed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unitprice_rows_parsed_total",
			Help: "Option rows that produced a usable size",
		},
	)

	RowsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitprice_rows_dropped_total",
			Help: "Listings and option rows dropped by the pipeline",
		},
		[]string{"reason"},
	)

	AggregatesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unitprice_aggregates_written_total",
			Help: "Aggregated product rows written",
		},
	)

	ComparisonsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unitprice_comparisons_written_total",
			Help: "Mini/standard comparison pairs written",
		},
	)

	PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "unitprice_pipeline_duration_seconds",
			Help:    "Duration of cleaning runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitprice_api_requests_total",
			Help: "Dashboard API requests by route and status",
		},
		[]string{"route", "status"},
	)
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ListingsScraped,
			ScrapeFailures,
			RowsParsed,
			RowsDropped,
			AggregatesWritten,
			ComparisonsWritten,
			PipelineDuration,
			APIRequests,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}
