package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the simulator. Each instance
// owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	ActiveSessions  prometheus.Gauge
	SessionsStarted prometheus.Counter
	SessionsEnded   *prometheus.CounterVec

	Turns         *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	StageFailures *prometheus.CounterVec

	CaptureWarnings prometheus.Counter
	CapturedSeconds prometheus.Histogram

	HTTPRequests *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "roleplay_active_sessions",
			Help: "Current number of live simulation sessions",
		}),
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "roleplay_sessions_started_total",
			Help: "Total number of sessions started",
		}),
		SessionsEnded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roleplay_sessions_ended_total",
			Help: "Total number of sessions ended, by reason",
		}, []string{"reason"}),

		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roleplay_turns_total",
			Help: "Total number of user turns, by source and outcome",
		}, []string{"source", "outcome"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roleplay_stage_duration_seconds",
			Help:    "Duration of hosted pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"stage"}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roleplay_stage_failures_total",
			Help: "Total number of failed hosted pipeline stages",
		}, []string{"stage"}),

		CaptureWarnings: f.NewCounter(prometheus.CounterOpts{
			Name: "roleplay_capture_warnings_total",
			Help: "Total number of input stream warnings surfaced to users",
		}),
		CapturedSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "roleplay_captured_audio_seconds",
			Help:    "Seconds of audio collected per streaming window",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roleplay_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage records one hosted stage call.
func (m *Metrics) ObserveStage(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
}

// ObserveTurn records the outcome of one turn.
func (m *Metrics) ObserveTurn(source, outcome string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(source, outcome).Inc()
}
