package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry      *prometheus.Registry
	httpReqCnt    *prometheus.CounterVec
	httpDur       *prometheus.HistogramVec
	httpInfl      *prometheus.GaugeVec
	cacheLookups  *prometheus.CounterVec
	ordersCreated prometheus.Counter
	orderStatus   *prometheus.CounterVec
}

func New(ns string) *Metrics {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: prometheus.DefBuckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"method"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "cache_lookups_total"}, []string{"fn", "result"})
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "orders_created_total"})
	orderStatus := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "order_status_changes_total"}, []string{"status"})
	r.MustRegister(cacheLookups, ordersCreated, orderStatus)

	return &Metrics{
		registry:      r,
		httpReqCnt:    httpReqCnt,
		httpDur:       httpDur,
		httpInfl:      httpInfl,
		cacheLookups:  cacheLookups,
		ordersCreated: ordersCreated,
		orderStatus:   orderStatus,
	}
}

func (m *Metrics) CacheHit(fn string)  { m.cacheLookups.WithLabelValues(fn, "hit").Inc() }
func (m *Metrics) CacheMiss(fn string) { m.cacheLookups.WithLabelValues(fn, "miss").Inc() }

func (m *Metrics) OrderCreated() { m.ordersCreated.Inc() }

func (m *Metrics) OrderStatusChanged(status string) { m.orderStatus.WithLabelValues(status).Inc() }

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency labelled by the matched
// ServeMux pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInfl.WithLabelValues(r.Method).Inc()
		defer m.httpInfl.WithLabelValues(r.Method).Dec()
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(sw.status)
		m.httpReqCnt.WithLabelValues(r.Method, route, status).Inc()
		m.httpDur.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
