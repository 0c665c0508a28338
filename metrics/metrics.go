package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vibetunes"

// Model call outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "breaker_open"
)

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Detection holds metrics for model calls and consensus decisions.
type Detection struct {
	ModelRequests  *prometheus.CounterVec
	ModelDuration  *prometheus.HistogramVec
	Decisions      *prometheus.CounterVec
	Moods          *prometheus.CounterVec
	FallbacksTotal prometheus.Counter
}

func NewDetection(reg prometheus.Registerer) *Detection {
	m := &Detection{
		ModelRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_requests_total",
			Help:      "Emotion model calls by model index and outcome.",
		}, []string{"model", "outcome"}),
		ModelDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_request_duration_seconds",
			Help:      "Duration of emotion model calls in seconds, retries included.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"model"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consensus_decisions_total",
			Help:      "Consensus engine decisions by path taken.",
		}, []string{"decision"}),
		Moods: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moods_total",
			Help:      "Moods reported to clients.",
		}, []string{"mood"}),
		FallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_total",
			Help:      "Detections answered by the simulator because every model failed.",
		}),
	}
	reg.MustRegister(m.ModelRequests, m.ModelDuration, m.Decisions, m.Moods, m.FallbacksTotal)
	return m
}

func (m *Detection) ObserveModel(model int, outcome string, d time.Duration) {
	label := strconv.Itoa(model)
	m.ModelRequests.WithLabelValues(label, outcome).Inc()
	if outcome != OutcomeSkipped {
		m.ModelDuration.WithLabelValues(label).Observe(d.Seconds())
	}
}

// unmatchedRoute labels requests that hit no registered route.
const unmatchedRoute = "unmatched"

// API tracks requests to the JSON API by route template.
type API struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

func NewAPI(reg prometheus.Registerer) *API {
	m := &API{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by method, route and response code.",
		}, []string{"method", "route", "code"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API latency in seconds. Detection calls are dominated by model time.",
			Buckets:   []float64{.005, .05, .25, 1, 2.5, 5, 15, 30, 60},
		}, []string{"route"}),
	}
	reg.MustRegister(m.Requests, m.Latency)
	return m
}

// Middleware counts every request except scrapes and health checks. Handler
// errors are rendered through the echo error handler first so the recorded
// code is the one the client sees.
func (m *API) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "/metrics" || strings.HasSuffix(route, "/test") {
				return next(c)
			}
			if route == "" {
				route = unmatchedRoute
			}

			start := time.Now()
			err := next(c)
			if err != nil && !c.Response().Committed {
				c.Error(err)
			}

			code := strconv.Itoa(c.Response().Status)
			m.Requests.WithLabelValues(c.Request().Method, route, code).Inc()
			m.Latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
