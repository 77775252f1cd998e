// Package metrics holds the prometheus collectors of the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/habari/core/newsletter"
)

const namespace = "habari"

type Metrics struct {
	registry *prometheus.Registry

	newsletterSent   *prometheus.CounterVec
	newsletterFailed *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

var _ newsletter.Recorder = (*Metrics)(nil)

// New registers the collectors on a dedicated registry, along with the go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		newsletterSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "newsletter",
			Name:      "sent_total",
			Help:      "Newsletter emails delivered, per site.",
		}, []string{"site"}),
		newsletterFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "newsletter",
			Name:      "failed_total",
			Help:      "Newsletter emails that could not be delivered, per site.",
		}, []string{"site"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of the HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.newsletterSent,
		m.newsletterFailed,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) Delivered(siteDomain string) {
	m.newsletterSent.WithLabelValues(siteDomain).Inc()
}

func (m *Metrics) Failed(siteDomain string) {
	m.newsletterFailed.WithLabelValues(siteDomain).Inc()
}

// ObserveRequest records the duration of a request. route is the route pattern, not the raw path.
func (m *Metrics) ObserveRequest(method, route string, code int, took time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(took.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
