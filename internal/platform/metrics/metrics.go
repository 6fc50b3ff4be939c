// Package metrics exposes Prometheus instrumentation for HTTP traffic and
// the product moderation lifecycle.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the instrumentation surface services depend on.
type Recorder interface {
	RecordRequest(method, route string, status int, duration time.Duration)
	RecordTransition(from, to string)
	RecordUpvote(added bool)
	RecordUpload(outcome string)
	RecordWebhook(eventType, outcome string)
	RecordEmail(template string, ok bool)
}

// Collector implements Recorder with Prometheus collectors.
type Collector struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	upvotes     *prometheus.CounterVec
	uploads     *prometheus.CounterVec
	webhooks    *prometheus.CounterVec
	emails      *prometheus.CounterVec
}

// NewCollector builds a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "launchpad_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_product_transitions_total",
			Help: "Applied product status transitions.",
		}, []string{"from", "to"}),
		upvotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_upvote_toggles_total",
			Help: "Upvote toggles by direction.",
		}, []string{"direction"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_uploads_total",
			Help: "Staged upload outcomes.",
		}, []string{"outcome"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_payment_webhooks_total",
			Help: "Payment webhook deliveries by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_emails_total",
			Help: "Transactional email sends by template and result.",
		}, []string{"template", "result"}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.transitions,
		c.upvotes,
		c.uploads,
		c.webhooks,
		c.emails,
	)
	return c
}

func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordTransition(from, to string) {
	c.transitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) RecordUpvote(added bool) {
	direction := "removed"
	if added {
		direction = "added"
	}
	c.upvotes.WithLabelValues(direction).Inc()
}

func (c *Collector) RecordUpload(outcome string) {
	c.uploads.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordWebhook(eventType, outcome string) {
	c.webhooks.WithLabelValues(eventType, outcome).Inc()
}

func (c *Collector) RecordEmail(template string, ok bool) {
	result := "sent"
	if !ok {
		result = "failed"
	}
	c.emails.WithLabelValues(template, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordRequest(string, string, int, time.Duration) {}
func (Nop) RecordTransition(string, string)                 {}
func (Nop) RecordUpvote(bool)                               {}
func (Nop) RecordUpload(string)                             {}
func (Nop) RecordWebhook(string, string)                    {}
func (Nop) RecordEmail(string, bool)                        {}
