package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jotter/cmd/internal/notes"
)

// Metrics holds the Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	NoteOpsTotal    *prometheus.CounterVec
	NoteOpDuration  *prometheus.HistogramVec
	FeedDropsTotal  *prometheus.CounterVec
	FeedSubscribers prometheus.GaugeFunc
}

// NewMetrics creates and registers all collectors. hub may be nil.
func NewMetrics(registry *prometheus.Registry, hub *notes.Hub) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jotter_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jotter_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		NoteOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jotter_note_operations_total",
				Help: "Total number of note repository operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		NoteOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jotter_note_operation_duration_seconds",
				Help:    "Note repository operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		FeedDropsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jotter_feed_dropped_events_total",
				Help: "Change feed events dropped because a subscriber queue was full",
			},
			[]string{"type"},
		),
		FeedSubscribers: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "jotter_feed_subscribers",
				Help: "Live change feed connections",
			},
			func() float64 { return float64(hub.Len()) },
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.NoteOpsTotal,
		m.NoteOpDuration,
		m.FeedDropsTotal,
		m.FeedSubscribers,
	)
	return m
}

// ObserveNoteOp implements notes.Observer.
func (m *Metrics) ObserveNoteOp(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.NoteOpsTotal.WithLabelValues(op, outcome).Inc()
	m.NoteOpDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// FeedDropped counts one event the hub could not deliver.
func (m *Metrics) FeedDropped(ev notes.Event) {
	if m == nil {
		return
	}
	m.FeedDropsTotal.WithLabelValues(ev.Type).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMetricsMiddleware instruments matched routes. The route label is the
// mux path template, so note ids do not explode label cardinality.
func HTTPMetricsMiddleware(m *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)

			next.ServeHTTP(sw, r)

			route := "unmatched"
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
