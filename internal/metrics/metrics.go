// Package metrics counts endpoint calls and tool resolutions for one process.
// The CLI is short-lived, so metrics are written out once at exit instead of
// being served.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "toolcall"

// Tool call outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown_tool"
	StatusTimeout = "timeout"
	StatusSkipped = "skipped"
)

type Metrics struct {
	registry *prometheus.Registry

	chatDuration *prometheus.HistogramVec
	chatTotal    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	toolTotal    *prometheus.CounterVec
	runsTotal    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chatDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chat_duration_seconds",
				Help:      "Duration of model endpoint calls in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"round"},
		),
		chatTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_requests_total",
				Help:      "Total number of model endpoint calls",
			},
			[]string{"round", "status"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Duration of tool handler calls in seconds",
				Buckets:   []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool"},
		),
		toolTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls requested by the model",
			},
			[]string{"tool", "status"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of orchestration runs",
			},
			[]string{"outcome"}, // direct, tools, failed
		),
	}
	m.registry.MustRegister(m.chatDuration, m.chatTotal, m.toolDuration, m.toolTotal, m.runsTotal)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveChat records one endpoint call. round is "first" or "second".
func (m *Metrics) ObserveChat(round string, d time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.chatDuration.WithLabelValues(round).Observe(d.Seconds())
	m.chatTotal.WithLabelValues(round, status).Inc()
}

// ObserveTool records one tool call. d is zero for calls that never reached a
// handler.
func (m *Metrics) ObserveTool(tool, status string, d time.Duration) {
	if d > 0 {
		m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
	}
	m.toolTotal.WithLabelValues(tool, status).Inc()
}

func (m *Metrics) ObserveRun(outcome string) {
	m.runsTotal.WithLabelValues(outcome).Inc()
}

// WriteText encodes every metric family in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes the metrics atomically for a node_exporter textfile
// collector.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
