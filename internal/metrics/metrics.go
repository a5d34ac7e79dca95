package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lottosim/internal/models"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lottosim",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lottosim",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
		[]string{"method", "path"},
	)

	trials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lottosim",
			Name:      "trials_total",
			Help:      "Simulated tickets checked, by prize rank.",
		},
		[]string{"rank"},
	)

	batchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lottosim",
			Name:      "batch_size",
			Help:      "Number of trials per generate request.",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 6), // 1 to 100000
		},
	)

	scrapes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lottosim",
			Name:      "scrape_total",
			Help:      "Attempts to fetch the latest official numbers, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		trials,
		batchSize,
		scrapes,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	for _, rank := range models.Ranks {
		trials.WithLabelValues(rank.String())
	}
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency. The route template is used as
// the path label so URLs with query strings do not blow up cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordBatch counts the ranks of a freshly generated batch.
func RecordBatch(records []models.TrialRecord) {
	batchSize.Observe(float64(len(records)))
	counts := make(map[models.Rank]float64, len(models.Ranks))
	for _, r := range records {
		counts[r.Rank]++
	}
	for rank, n := range counts {
		trials.WithLabelValues(rank.String()).Add(n)
	}
}

// RecordScrape counts one scrape attempt.
func RecordScrape(err error) {
	if err != nil {
		scrapes.WithLabelValues("error").Inc()
		return
	}
	scrapes.WithLabelValues("ok").Inc()
}
