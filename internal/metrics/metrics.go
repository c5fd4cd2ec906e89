package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
	StatusTransitions    *prometheus.CounterVec
	LoginAttempts        *prometheus.CounterVec
	NotificationsQueued  prometheus.Counter
	NotificationsRelayed prometheus.Counter
	NotificationsFailed  prometheus.Counter
	EmailsSent           *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates and registers all metrics on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "port_logistics_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "port_logistics_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "port_logistics_shipment_status_transitions_total",
			Help: "Shipment status transitions by target status",
		}, []string{"status"}),
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "port_logistics_login_attempts_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		NotificationsQueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "port_logistics_notifications_queued_total",
			Help: "Notifications written to the outbox",
		}),
		NotificationsRelayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "port_logistics_notifications_relayed_total",
			Help: "Outbox rows handed to the task queue",
		}),
		NotificationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "port_logistics_notifications_relay_failures_total",
			Help: "Outbox rows that could not be handed to the task queue",
		}),
		EmailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "port_logistics_emails_sent_total",
			Help: "Email deliveries attempted by the worker, by result",
		}, []string{"result"}),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

func (m *Metrics) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveLogin(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) IncNotificationsQueued() {
	if m == nil {
		return
	}
	m.NotificationsQueued.Inc()
}

func (m *Metrics) IncNotificationsRelayed() {
	if m == nil {
		return
	}
	m.NotificationsRelayed.Inc()
}

func (m *Metrics) IncNotificationsFailed() {
	if m == nil {
		return
	}
	m.NotificationsFailed.Inc()
}

func (m *Metrics) ObserveEmail(err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.EmailsSent.WithLabelValues(result).Inc()
}

// Handler serves the registry m was built on.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request count and latency keyed by the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
