// Package metrics collects and exposes Prometheus metrics for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Join outcomes recorded by RecordJoin.
const (
	JoinJoined        = "joined"
	JoinAlreadyJoined = "already_joined"
	JoinFull          = "full"
)

// Recorder is the metrics surface seen by services and middleware.
type Recorder interface {
	RecordHTTPRequest(method string, status int, duration time.Duration)
	RecordLogin(method string)
	RecordJoin(outcome string)
	RecordFollow(created bool)
	RecordRateLimited()
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	httpStatus  *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
	logins      *prometheus.CounterVec
	joins       *prometheus.CounterVec
	follows     *prometheus.CounterVec
	rateLimited prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hopon_http_requests_total",
			Help: "HTTP responses by method and status code.",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hopon_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hopon_logins_total",
			Help: "Successful logins by method (password, signup, google, dev, demo, refresh).",
		}, []string{"method"}),
		joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hopon_event_joins_total",
			Help: "Event join attempts by outcome.",
		}, []string{"outcome"}),
		follows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hopon_follows_total",
			Help: "Follow requests, split by whether a new edge was created.",
		}, []string{"created"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hopon_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter.",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.httpLatency,
		c.logins,
		c.joins,
		c.follows,
		c.rateLimited,
	)

	return c
}

func (c *Collector) RecordHTTPRequest(method string, status int, duration time.Duration) {
	c.httpStatus.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method).Observe(duration.Seconds())
}

func (c *Collector) RecordLogin(method string) {
	c.logins.WithLabelValues(method).Inc()
}

func (c *Collector) RecordJoin(outcome string) {
	c.joins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordFollow(created bool) {
	c.follows.WithLabelValues(strconv.FormatBool(created)).Inc()
}

func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// Nop discards everything. Tests that do not assert on metrics use it.
type Nop struct{}

func (Nop) RecordHTTPRequest(string, int, time.Duration) {}
func (Nop) RecordLogin(string)                           {}
func (Nop) RecordJoin(string)                            {}
func (Nop) RecordFollow(bool)                            {}
func (Nop) RecordRateLimited()                           {}

// Handler returns the HTTP handler Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
