package telemetry

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/httpecho/httpecho/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	LabelPath   = "path"
	LabelMethod = "method"
	LabelStatus = "status_code"
)

var DefaultHistogramBuckets = []float64{
	0.003, // 3 ms
	0.03,  // 30 ms
	0.1,   // 100 ms
	0.3,   // 300 ms
	1.5,   // 1.5 s
	10,    // 10 s
}

// Recorder owns the request-duration histogram and the registry it is scraped from.
// The histogram is the only mutable state shared between requests; prometheus
// vectors are safe for concurrent use.
type Recorder struct {
	cfg      *common.MetricsConfig
	logger   *zerolog.Logger
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	up       prometheus.Gauge
	scrape   http.Handler
}

func NewRecorder(logger *zerolog.Logger, cfg *common.MetricsConfig) (*Recorder, error) {
	buckets, err := ParseHistogramBuckets(cfg.Buckets)
	if err != nil {
		return nil, common.NewErrInvalidConfig("PROMETHEUS_BUCKETS must be a comma-separated list of seconds: " + err.Error())
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	r := &Recorder{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests handled by the echo server.",
			Buckets: buckets,
		}, labelNames(cfg)),
		up: factory.NewGauge(prometheus.GaugeOpts{
			Name: "up",
			Help: "1 while the echo server accepts requests.",
		}),
	}
	r.scrape = promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog:      &promErrorLogger{logger: logger},
		ErrorHandling: promhttp.ContinueOnError,
	})
	r.up.Set(1)

	logger.Info().
		Str("path", cfg.Path).
		Strs("labels", labelNames(cfg)).
		Floats64("buckets", buckets).
		Msg("prometheus metrics enabled")

	return r, nil
}

func labelNames(cfg *common.MetricsConfig) []string {
	labels := make([]string, 0, 3)
	if cfg.WithPath {
		labels = append(labels, LabelPath)
	}
	if cfg.WithMethod {
		labels = append(labels, LabelMethod)
	}
	if cfg.WithStatus {
		labels = append(labels, LabelStatus)
	}
	return labels
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Middleware serves scrape requests directly and times every other request.
// Scrapes are diverted before timing, so they never show up in the histogram.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodGet && req.URL.Path == r.cfg.Path {
			r.scrape.ServeHTTP(w, req)
			return
		}

		m := httpsnoop.CaptureMetrics(next, w, req)
		r.Observe(req.Method, req.URL.Path, m.Code, m.Duration)
	})
}

func (r *Recorder) ScrapeHandler() http.Handler {
	return r.scrape
}

func (r *Recorder) Observe(method, path string, status int, d time.Duration) {
	values := make([]string, 0, 3)
	if r.cfg.WithPath {
		values = append(values, path)
	}
	if r.cfg.WithMethod {
		values = append(values, method)
	}
	if r.cfg.WithStatus {
		values = append(values, strconv.Itoa(status))
	}
	ObserverHandle(r.duration, values...).Observe(d.Seconds())
}

// MarkDown flips the up gauge once the server starts draining.
func (r *Recorder) MarkDown() {
	r.up.Set(0)
}

func ParseHistogramBuckets(bucketsStr string) ([]float64, error) {
	if bucketsStr == "" {
		return DefaultHistogramBuckets, nil
	}

	parts := strings.Split(bucketsStr, ",")
	buckets := make([]float64, 0, len(parts))

	for _, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, value)
	}

	sort.Float64s(buckets)
	for i := 1; i < len(buckets); i++ {
		if buckets[i] == buckets[i-1] {
			return nil, fmt.Errorf("duplicate bucket %v", buckets[i])
		}
	}
	return buckets, nil
}

type promErrorLogger struct {
	logger *zerolog.Logger
}

func (l *promErrorLogger) Println(v ...interface{}) {
	l.logger.Error().Interface("error", v).Msg("failed to serve prometheus metrics")
}
