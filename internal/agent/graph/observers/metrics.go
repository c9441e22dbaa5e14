package observers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
)

const namespace = "albert_query"

// Metrics exposes workflow counters and histograms. A nil *Metrics is a no-op.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	toolCalls     *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	turns         *prometheus.CounterVec
	iterations    prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of workflow stages.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage", "outcome"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool adapter calls by status.",
		}, []string{"tool", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Duration of tool adapter calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"tool"}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed turns by outcome.",
		}, []string{"outcome"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_iterations",
			Help:      "Planner/executor/evaluator cycles per turn.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		}),
	}
	for _, c := range []prometheus.Collector{m.stageDuration, m.toolCalls, m.toolDuration, m.turns, m.iterations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveStage(stage model.Stage, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage.String(), outcome(err)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveTool(tool model.ToolName, elapsed time.Duration, res model.ToolResult) {
	if m == nil {
		return
	}
	status := "ok"
	if res.Failed() {
		status = "error"
	}
	m.toolCalls.WithLabelValues(string(tool), status).Inc()
	m.toolDuration.WithLabelValues(string(tool)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveTurn(iterations int, err error) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		m.iterations.Observe(float64(iterations))
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
