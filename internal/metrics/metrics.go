// Package metrics exposes Prometheus collectors for the sending path and
// the HTTP surface.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once
	registerErr  error

	dispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optin_dispatch_total",
		Help: "Confirmation dispatch attempts by result",
	}, []string{"result"}) // result: sent|template_error|resolution_error|store_error|relay_error

	resolutionFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optin_resolution_failures_total",
		Help: "Email service resolution failures by origin and reason",
	}, []string{"origin", "reason"})

	subscribeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optin_subscribe_total",
		Help: "Subscribe calls by outcome",
	}, []string{"outcome"}) // outcome: created|resent|existing

	confirmTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optin_confirm_total",
		Help: "Confirm calls by outcome",
	}, []string{"outcome"}) // outcome: confirmed|not_found

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Register adds every collector to the registry and returns the /metrics
// handler. Safe to call more than once.
func Register(registry prometheus.Registerer) (http.Handler, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	registerOnce.Do(func() {
		for _, c := range []prometheus.Collector{
			dispatchTotal, resolutionFailuresTotal, subscribeTotal,
			confirmTotal, httpRequestsTotal, httpRequestDuration,
		} {
			if err := registerCollector(registry, c); err != nil {
				registerErr = err
				return
			}
		}
	})
	if registerErr != nil {
		return nil, registerErr
	}
	if g, ok := registry.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{}), nil
	}
	return promhttp.Handler(), nil
}

func registerCollector(registry prometheus.Registerer, c prometheus.Collector) error {
	if err := registry.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil
		}
		return err
	}
	return nil
}

// ObserveDispatch counts one confirmation dispatch.
func ObserveDispatch(result string) {
	dispatchTotal.WithLabelValues(result).Inc()
}

// ObserveResolutionFailure counts one email service resolution failure.
func ObserveResolutionFailure(origin, reason string) {
	resolutionFailuresTotal.WithLabelValues(origin, reason).Inc()
}

// ObserveSubscribe counts one subscribe call.
func ObserveSubscribe(outcome string) {
	subscribeTotal.WithLabelValues(outcome).Inc()
}

// ObserveConfirm counts one confirm call.
func ObserveConfirm(outcome string) {
	confirmTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one finished request. path must be a route pattern,
// not the raw URL, to keep label cardinality bounded.
func ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
